package model

import "time"

// ExitReason tells why a trade was closed.
// Keep these values stable; they are written to trade CSV exports.
type ExitReason string

const (
	ExitSignal     ExitReason = "SIGNAL"
	ExitTakeProfit ExitReason = "TAKE_PROFIT"
	ExitStopLoss   ExitReason = "STOP_LOSS"
	ExitEndOfData  ExitReason = "END_OF_DATA"
)

// Trade is one closed long position.
type Trade struct {
	Size int64

	EntryBar   int
	ExitBar    int
	EntryTime  time.Time
	ExitTime   time.Time
	EntryPrice float64
	ExitPrice  float64

	// TakeProfit and StopLoss are zero when the entry carried no bracket.
	TakeProfit float64
	StopLoss   float64

	// PnL is net of Commissions.
	PnL         float64
	ReturnPct   float64
	Commissions float64

	Reason ExitReason
}

func (t Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

// EquityPoint is account equity (cash plus open position value) after a bar.
type EquityPoint struct {
	Time   time.Time
	Equity float64
}
