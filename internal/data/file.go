package data

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
)

var ErrNoHeader = errors.New("csv has no header row")

// ParseCSV reads a whole CSV document. Rows may have differing field counts;
// Preprocess reports rows too short to hold the required columns.
func ParseCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoHeader
	}
	return rows, nil
}

// ReadCSVFile loads a local CSV, for offline runs from the CLI.
func ReadCSVFile(path string) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	rows, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return rows, nil
}
