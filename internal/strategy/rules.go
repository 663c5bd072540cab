package strategy

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the closed set of rule shapes. Every registered class maps to
// exactly one Kind.
type Kind int

const (
	// KindBracketExitOnReversal buys with take-profit/stop-loss and also
	// closes as soon as Close drops off the running maximum.
	KindBracketExitOnReversal Kind = iota + 1
	// KindBracket buys with take-profit/stop-loss and relies on them to exit.
	KindBracket
	// KindFixedExitOnChange buys a fixed size and closes whenever Close is
	// not the running maximum.
	KindFixedExitOnChange
	// KindFixedExitOnDecline buys a fixed size and closes only when Close is
	// strictly below the running maximum.
	KindFixedExitOnDecline
)

func (k Kind) String() string {
	switch k {
	case KindBracketExitOnReversal:
		return "bracket_exit_on_reversal"
	case KindBracket:
		return "bracket"
	case KindFixedExitOnChange:
		return "fixed_exit_on_change"
	case KindFixedExitOnDecline:
		return "fixed_exit_on_decline"
	default:
		return "unknown"
	}
}

func (k Kind) bracketed() bool {
	return k == KindBracketExitOnReversal || k == KindBracket
}

// Rule is an immutable, fully parameterised strategy instance. Build it with
// New; a Rule value can be shared between concurrent engine runs.
type Rule struct {
	Class string
	Kind  Kind

	TakeProfitRatio float64
	StopLossRatio   float64
	Size            float64
}

func (r *Rule) Name() string { return r.Class }

// String renders the rule with its parameters, e.g.
// Strategy1(take_profit_ratio=0.05,stop_loss_ratio=0.025).
func (r *Rule) String() string {
	var params []string
	if r.Kind.bracketed() {
		params = append(params,
			"take_profit_ratio="+fmtParam(r.TakeProfitRatio),
			"stop_loss_ratio="+fmtParam(r.StopLossRatio),
		)
	} else {
		params = append(params, "size="+fmtParam(r.Size))
	}
	return fmt.Sprintf("%s(%s)", r.Class, strings.Join(params, ","))
}

func (r *Rule) Decide(ctx Context) Decision {
	price := ctx.Bar.Close
	atMax := price == ctx.MaxClose

	if atMax && !ctx.InPosition {
		return r.entry(price)
	}
	if !ctx.InPosition {
		return Decision{Action: Hold}
	}

	switch r.Kind {
	case KindBracketExitOnReversal:
		if !atMax {
			return Decision{Action: Close}
		}
	case KindFixedExitOnChange:
		if price != ctx.MaxClose {
			return Decision{Action: Close}
		}
	case KindFixedExitOnDecline:
		if price < ctx.MaxClose {
			return Decision{Action: Close}
		}
	}
	return Decision{Action: Hold}
}

func (r *Rule) entry(price float64) Decision {
	if r.Kind.bracketed() {
		return Decision{
			Action:     Buy,
			TakeProfit: price * (1 + r.TakeProfitRatio),
			StopLoss:   price * (1 - r.StopLossRatio),
		}
	}
	return Decision{Action: Buy, Size: r.Size}
}

func fmtParam(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

var _ Strategy = (*Rule)(nil)
