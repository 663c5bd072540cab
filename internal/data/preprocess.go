package data

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"predict-backtest/internal/model"
)

// Required input columns.
const (
	ColPredictedClose = "predicted_close_price"
	ColLastActual     = "last_actual_close"
	ColTime           = "t"
)

var requiredColumns = []string{ColPredictedClose, ColLastActual, ColTime}

// ValidationError reports input data that cannot become a price series.
// Row is 1-based over data rows and zero for header problems.
type ValidationError struct {
	Column string
	Row    int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Row == 0 {
		return fmt.Sprintf("missing required column %q", e.Column)
	}
	return fmt.Sprintf("row %d, column %q: %s", e.Row, e.Column, e.Reason)
}

// Preprocess turns a raw CSV table (header first) into a bar series:
// Close, High and Low take the predicted close, Open the last actual close.
// Rows repeating an earlier timestamp are dropped, the first one wins, and
// the result is sorted by time.
func Preprocess(table [][]string) (*model.Series, error) {
	if len(table) == 0 {
		return nil, ErrNoHeader
	}
	cols, err := locateColumns(table[0])
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(table))
	bars := make([]model.Bar, 0, len(table)-1)
	for i, row := range table[1:] {
		if blank(row) {
			continue
		}
		rowNum := i + 1
		field := func(col string) (string, error) {
			idx := cols[col]
			if idx >= len(row) {
				return "", &ValidationError{Column: col, Row: rowNum, Reason: "value is missing"}
			}
			return strings.TrimSpace(row[idx]), nil
		}

		ts, err := field(ColTime)
		if err != nil {
			return nil, err
		}
		t, err := ParseTimestamp(ts)
		if err != nil {
			return nil, &ValidationError{Column: ColTime, Row: rowNum, Reason: err.Error()}
		}
		key := t.UnixNano()
		if _, dup := seen[key]; dup {
			continue
		}

		pred, err := parseNumber(field, ColPredictedClose, rowNum)
		if err != nil {
			return nil, err
		}
		last, err := parseNumber(field, ColLastActual, rowNum)
		if err != nil {
			return nil, err
		}

		seen[key] = struct{}{}
		bars = append(bars, model.Bar{Time: t, Open: last, High: pred, Low: pred, Close: pred})
	}
	if len(bars) == 0 {
		return nil, model.ErrEmptySeries
	}

	sort.SliceStable(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })
	return model.NewSeries(bars)
}

func locateColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		if _, ok := index[name]; !ok {
			index[name] = i
		}
	}
	cols := make(map[string]int, len(requiredColumns))
	for _, col := range requiredColumns {
		i, ok := index[col]
		if !ok {
			return nil, &ValidationError{Column: col}
		}
		cols[col] = i
	}
	return cols, nil
}

func parseNumber(field func(string) (string, error), col string, row int) (float64, error) {
	raw, err := field(col)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, &ValidationError{Column: col, Row: row, Reason: fmt.Sprintf("invalid number %q", raw)}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &ValidationError{Column: col, Row: row, Reason: fmt.Sprintf("non-finite number %q", raw)}
	}
	return v, nil
}

func blank(row []string) bool {
	for _, f := range row {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
