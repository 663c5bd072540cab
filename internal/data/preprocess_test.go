package data

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predict-backtest/internal/model"
)

func table(t *testing.T, doc string) [][]string {
	t.Helper()
	rows, err := ParseCSV(strings.NewReader(doc))
	require.NoError(t, err)
	return rows
}

func TestPreprocess_DedupesKeepingFirstAndSorts(t *testing.T) {
	doc := `t,predicted_close_price,last_actual_close,model
2024-01-01 02:00:00,12,11,a
2024-01-01 00:00:00,10,9,a
2024-01-01 01:00:00,11,10,a
2024-01-01 00:00:00,99,98,b
2024-01-01 02:00:00,77,76,b
`
	s, err := Preprocess(table(t, doc))
	require.NoError(t, err)
	require.Equal(t, 3, s.Len())

	assert.Equal(t, []float64{10, 11, 12}, s.Closes())
	assert.Equal(t, 9.0, s.Bars[0].Open)
	assert.Equal(t, s.Bars[0].Close, s.Bars[0].High)
	assert.Equal(t, s.Bars[0].Close, s.Bars[0].Low)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), s.Start())
	require.NoError(t, s.Validate())
}

func TestPreprocess_MissingColumn(t *testing.T) {
	_, err := Preprocess(table(t, "t,last_actual_close\n2024-01-01,1\n"))

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, ColPredictedClose, ve.Column)
	assert.Contains(t, err.Error(), "predicted_close_price")
}

func TestPreprocess_HeaderWithBOMAndSpaces(t *testing.T) {
	doc := "\ufefft, predicted_close_price ,last_actual_close\n2024-01-01,1,1\n2024-01-02,2,1\n"
	s, err := Preprocess(table(t, doc))
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestPreprocess_BadValues(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		column string
		row    int
	}{
		{"bad number", "t,predicted_close_price,last_actual_close\n2024-01-01,abc,1\n", ColPredictedClose, 1},
		{"bad timestamp", "t,predicted_close_price,last_actual_close\n2024-01-01,1,1\nyesterday,1,1\n", ColTime, 2},
		{"short row", "t,predicted_close_price,last_actual_close\n2024-01-01,1\n", ColLastActual, 1},
		{"NaN prediction", "t,predicted_close_price,last_actual_close\n2024-01-01,1,1\n2024-01-02,NaN,1\n", ColPredictedClose, 2},
		{"Inf prediction", "t,predicted_close_price,last_actual_close\n2024-01-01,Inf,1\n", ColPredictedClose, 1},
		{"NaN last actual", "t,predicted_close_price,last_actual_close\n2024-01-01,1,nan\n", ColLastActual, 1},
		{"Infinity last actual", "t,predicted_close_price,last_actual_close\n2024-01-01,1,1\n2024-01-02,1,-Infinity\n", ColLastActual, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Preprocess(table(t, tt.doc))
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.column, ve.Column)
			assert.Equal(t, tt.row, ve.Row)
		})
	}
}

func TestPreprocess_HeaderOnly(t *testing.T) {
	_, err := Preprocess(table(t, "t,predicted_close_price,last_actual_close\n"))
	assert.ErrorIs(t, err, model.ErrEmptySeries)
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	tests := []string{
		"2024-03-01T12:30:00Z",
		"2024-03-01T14:30:00+02:00",
		"2024-03-01 12:30:00",
		"2024-03-01 12:30:00+00:00",
		"2024-03-01T12:30:00",
		"2024-03-01 12:30",
		"1709296200",
		"1709296200000",
	}
	for _, in := range tests {
		got, err := ParseTimestamp(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "%s -> %s", in, got)
		assert.Equal(t, time.UTC, got.Location())
	}

	frac, err := ParseTimestamp("2024-03-01 12:30:00.250")
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, frac.Sub(want))

	_, err = ParseTimestamp("not a time")
	assert.Error(t, err)
}
