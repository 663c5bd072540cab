package strategy

import "predict-backtest/internal/model"

// Context is what a strategy sees on one bar. MaxClose covers bars up to and
// including Bar, never later ones.
type Context struct {
	Index    int
	Bar      model.Bar
	MaxClose float64
	// InPosition reports whether a long position is currently open.
	InPosition bool
}

type Action int

const (
	Hold Action = iota
	Buy
	Close
)

func (a Action) String() string {
	switch a {
	case Buy:
		return "BUY"
	case Close:
		return "CLOSE"
	default:
		return "HOLD"
	}
}

// Decision is a strategy's order request for the current bar.
// For Buy, Size follows the engine convention: 0 < Size < 1 is a fraction of
// available equity, Size >= 1 is a whole number of units, and Size == 0 means
// "as much as the account allows". TakeProfit and StopLoss are absolute
// prices; zero disables them.
type Decision struct {
	Action     Action
	Size       float64
	TakeProfit float64
	StopLoss   float64
}

type Strategy interface {
	Name() string
	Decide(ctx Context) Decision
}
