package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Settings defines the account and execution parameters of one engine run.
// Units:
// - Cash: starting cash in quote currency
// - Commission: fraction of traded notional charged per fill, 0..1
type Settings struct {
	Cash       float64
	Commission float64
	Options    Options
}

// Options holds engine switches passed through from backtest_additional.
type Options struct {
	// TradeOnClose fills market orders at the signal bar's close instead of
	// the next bar's open.
	TradeOnClose bool
	// FinalizeTrades closes positions still open after the last bar at its
	// close so they show up in trade statistics.
	FinalizeTrades bool
	// Margin is the required margin ratio; leverage is 1/Margin.
	Margin float64
	// ExclusiveOrders is accepted for compatibility. Rules hold at most one
	// position, so it has no further effect.
	ExclusiveOrders bool
}

func DefaultOptions() Options {
	return Options{Margin: 1}
}

func (o Options) Leverage() float64 { return 1 / o.Margin }

func (s Settings) Validate() error {
	if s.Cash <= 0 {
		return errors.New("cash must be > 0")
	}
	if s.Commission < 0 || s.Commission >= 1 {
		return errors.New("commission must be in [0, 1)")
	}
	if s.Options.Margin <= 0 || s.Options.Margin > 1 {
		return errors.New("margin must be in (0, 1]")
	}
	return nil
}

// ParseOptions converts the free-form backtest_additional object into Options.
// Unknown keys and wrongly typed values are rejected so typos do not silently
// change results.
func ParseOptions(raw map[string]any) (Options, error) {
	opts := DefaultOptions()
	var unknown []string
	for key, v := range raw {
		var err error
		switch key {
		case "trade_on_close":
			opts.TradeOnClose, err = asBool(key, v)
		case "finalize_trades":
			opts.FinalizeTrades, err = asBool(key, v)
		case "exclusive_orders":
			opts.ExclusiveOrders, err = asBool(key, v)
		case "margin":
			opts.Margin, err = asFloat(key, v)
		default:
			unknown = append(unknown, key)
		}
		if err != nil {
			return Options{}, err
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Options{}, fmt.Errorf("unknown backtest option(s): %s", strings.Join(unknown, ", "))
	}
	if opts.Margin <= 0 || opts.Margin > 1 {
		return Options{}, fmt.Errorf("backtest option margin must be in (0, 1], got %g", opts.Margin)
	}
	return opts, nil
}

func asBool(key string, v any) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("backtest option %s must be a boolean, got %T", key, v)
	}
	return b, nil
}

func asFloat(key string, v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case int:
		return float64(x), nil
	default:
		return 0, fmt.Errorf("backtest option %s must be a number, got %T", key, v)
	}
}
