package backtest

import "predict-backtest/internal/model"

// Result is the raw outcome of one engine run.
// Trades holds closed trades only; a position still open at the end of the
// data is reported in OpenTrade, marked at the last close.
type Result struct {
	Strategy  string
	Settings  model.Settings
	Trades    []model.Trade
	Equity    []model.EquityPoint
	OpenTrade *model.Trade
}

func (r *Result) FinalEquity() float64 {
	if r == nil || len(r.Equity) == 0 {
		return 0
	}
	return r.Equity[len(r.Equity)-1].Equity
}
