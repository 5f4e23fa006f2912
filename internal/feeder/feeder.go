// Package feeder supplies per-call params to a bench run from a CSV or JSON
// dataset.
package feeder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Record is one row of the dataset, keyed by column or field name.
type Record map[string]any

// ErrEmpty is returned for a dataset without any data rows.
var ErrEmpty = errors.New("feeder: dataset has no records")

// Dataset hands out records in round-robin order. It is safe for concurrent
// use; every caller gets the next record and the order wraps around.
type Dataset struct {
	records []Record
	mu      sync.Mutex
	index   int
}

// Load reads path as CSV or JSON, chosen by its extension.
func Load(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer file.Close()

	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		records, err = readCSV(file)
	case ".json":
		records, err = readJSON(file)
	default:
		return nil, fmt.Errorf("dataset %s: unsupported format (use .csv or .json)", path)
	}
	if err != nil {
		return nil, fmt.Errorf("dataset %s: %w", path, err)
	}
	return New(records)
}

// New wraps records that were built in memory.
func New(records []Record) (*Dataset, error) {
	if len(records) == 0 {
		return nil, ErrEmpty
	}
	return &Dataset{records: records}, nil
}

// Next returns the next record.
func (d *Dataset) Next(ctx context.Context) (Record, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	record := d.records[d.index]
	d.index = (d.index + 1) % len(d.records)
	return record, nil
}

// First returns the first record without advancing.
func (d *Dataset) First() Record {
	return d.records[0]
}

// Len is the number of records.
func (d *Dataset) Len() int {
	return len(d.records)
}

// Merge overlays record on base; record values win.
func Merge(base map[string]any, record Record) map[string]any {
	out := make(map[string]any, len(base)+len(record))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range record {
		out[k] = v
	}
	return out
}
