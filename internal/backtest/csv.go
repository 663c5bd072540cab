package backtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"predict-backtest/internal/model"
)

// WriteTradesCSV writes one row per closed trade.
func WriteTradesCSV(path string, trades []model.Trade) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{
		"size",
		"entry_bar",
		"exit_bar",
		"entry_time",
		"exit_time",
		"entry_price",
		"exit_price",
		"take_profit",
		"stop_loss",
		"pnl",
		"return_pct",
		"commissions",
		"duration",
		"exit_reason",
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, t := range trades {
		row := []string{
			strconv.FormatInt(t.Size, 10),
			strconv.Itoa(t.EntryBar),
			strconv.Itoa(t.ExitBar),
			fmtTime(t.EntryTime),
			fmtTime(t.ExitTime),
			fmtFloat(t.EntryPrice),
			fmtFloat(t.ExitPrice),
			fmtFloat(t.TakeProfit),
			fmtFloat(t.StopLoss),
			fmtFloat(t.PnL),
			fmtFloat(t.ReturnPct),
			fmtFloat(t.Commissions),
			t.Duration().String(),
			string(t.Reason),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func fmtTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
