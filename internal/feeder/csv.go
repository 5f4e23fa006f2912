package feeder

import (
	"encoding/csv"
	"fmt"
	"io"
)

// readCSV treats the first row as the header. Every value is a string.
func readCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read CSV: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrEmpty
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("CSV needs a header row and at least one data row")
	}

	header := rows[0]
	records := make([]Record, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if len(row) != len(header) {
			return nil, fmt.Errorf("row %d has %d fields, expected %d", i+2, len(row), len(header))
		}
		record := make(Record, len(header))
		for j, field := range header {
			record[field] = row[j]
		}
		records = append(records, record)
	}
	return records, nil
}
