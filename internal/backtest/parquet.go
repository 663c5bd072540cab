package backtest

import (
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"

	"predict-backtest/internal/model"
)

// EquityRecord is the on-disk schema of an exported equity curve.
type EquityRecord struct {
	Bar       int64   `parquet:"bar"`
	Timestamp int64   `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
	Equity    float64 `parquet:"equity"`
	Drawdown  float64 `parquet:"drawdown"`
}

// WriteEquityParquet exports the per-bar equity curve with its running
// drawdown (fraction below the previous peak).
func WriteEquityParquet(path string, equity []model.EquityPoint) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	records := make([]EquityRecord, len(equity))
	peak := 0.0
	for i, p := range equity {
		if i == 0 || p.Equity > peak {
			peak = p.Equity
		}
		dd := 0.0
		if peak != 0 {
			dd = 1 - p.Equity/peak
		}
		records[i] = EquityRecord{
			Bar:       int64(i),
			Timestamp: p.Time.UnixMilli(),
			Equity:    p.Equity,
			Drawdown:  dd,
		}
	}
	return parquet.WriteFile(path, records)
}
