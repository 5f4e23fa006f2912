package feeder

import (
	"encoding/json"
	"fmt"
	"io"
)

// readJSON reads an array of objects. Values keep their JSON types so typed
// params (numbers, lists) reach the template unchanged.
func readJSON(r io.Reader) ([]Record, error) {
	var raw []map[string]any
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if len(raw) == 0 {
		return nil, ErrEmpty
	}

	records := make([]Record, 0, len(raw))
	for i, obj := range raw {
		if len(obj) == 0 {
			return nil, fmt.Errorf("record %d is empty", i)
		}
		records = append(records, Record(obj))
	}
	return records, nil
}
