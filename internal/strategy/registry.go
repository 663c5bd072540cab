package strategy

import (
	"errors"
	"fmt"
	"sort"
)

var ErrUnknownClass = errors.New("unknown strategy class")

// Config selects a registered class and supplies its parameters.
type Config struct {
	Class  string         `json:"class" yaml:"class" validate:"required"`
	Params map[string]any `json:"params" yaml:"params"`
}

// ConfigError reports a missing or invalid parameter for one strategy.
type ConfigError struct {
	Class  string
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("strategy %s: parameter %q %s", e.Class, e.Param, e.Reason)
}

type ParamSpec struct {
	Name        string
	Description string
	// Default is the value the original research scripts hard-coded.
	// Requests must still pass every parameter explicitly.
	Default float64
}

type Info struct {
	Class       string
	Kind        Kind
	Description string
	Params      []ParamSpec
}

const (
	ParamTakeProfitRatio = "take_profit_ratio"
	ParamStopLossRatio   = "stop_loss_ratio"
	ParamSize            = "size"
)

func bracketParams(tp, sl float64) []ParamSpec {
	return []ParamSpec{
		{Name: ParamTakeProfitRatio, Description: "Take-profit offset above entry close, as a fraction", Default: tp},
		{Name: ParamStopLossRatio, Description: "Stop-loss offset below entry close, as a fraction", Default: sl},
	}
}

var fixedParams = []ParamSpec{
	{Name: ParamSize, Description: "Order size: 0<size<1 is a fraction of equity, size>=1 whole units", Default: 1},
}

var registry = map[string]Info{
	"Strategy1": {
		Class:       "Strategy1",
		Kind:        KindBracketExitOnReversal,
		Description: "Buy at a new running-max prediction with TP/SL; close as soon as the prediction falls off the max.",
		Params:      bracketParams(0.05, 0.025),
	},
	"Strategy2": {
		Class:       "Strategy2",
		Kind:        KindFixedExitOnChange,
		Description: "Buy a fixed size at a new running-max prediction; close on any move away from the max.",
		Params:      fixedParams,
	},
	"Strategy3": {
		Class:       "Strategy3",
		Kind:        KindBracket,
		Description: "Buy at a new running-max prediction; exit only via TP/SL.",
		Params:      bracketParams(0.10, 0.05),
	},
	"Strategy4": {
		Class:       "Strategy4",
		Kind:        KindFixedExitOnDecline,
		Description: "Buy a fixed size at a new running-max prediction; close only when the prediction is below the max.",
		Params:      fixedParams,
	},
	"Strategy5": {
		Class:       "Strategy5",
		Kind:        KindBracket,
		Description: "Buy at a new running-max prediction; exit only via TP/SL (tighter defaults).",
		Params:      bracketParams(0.07, 0.03),
	},
}

// Lookup returns the registry entry for class.
func Lookup(class string) (Info, error) {
	info, ok := registry[class]
	if !ok {
		return Info{}, fmt.Errorf("%w: %q (known: %v)", ErrUnknownClass, class, Classes())
	}
	return info, nil
}

// Classes returns the sorted registered class names.
func Classes() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Catalog returns all registry entries sorted by class name.
func Catalog() []Info {
	out := make([]Info, 0, len(registry))
	for _, name := range Classes() {
		out = append(out, registry[name])
	}
	return out
}

// New validates cfg and binds its parameters into a Rule.
// All required parameters must be present and numeric.
func New(cfg Config) (*Rule, error) {
	info, err := Lookup(cfg.Class)
	if err != nil {
		return nil, err
	}
	if err := rejectUnknown(info, cfg.Params); err != nil {
		return nil, err
	}

	r := &Rule{Class: info.Class, Kind: info.Kind}
	if info.Kind.bracketed() {
		if r.TakeProfitRatio, err = requireNum(info.Class, cfg.Params, ParamTakeProfitRatio); err != nil {
			return nil, err
		}
		if r.StopLossRatio, err = requireNum(info.Class, cfg.Params, ParamStopLossRatio); err != nil {
			return nil, err
		}
		if r.TakeProfitRatio <= 0 {
			return nil, &ConfigError{Class: info.Class, Param: ParamTakeProfitRatio, Reason: "must be > 0"}
		}
		if r.StopLossRatio <= 0 || r.StopLossRatio >= 1 {
			return nil, &ConfigError{Class: info.Class, Param: ParamStopLossRatio, Reason: "must be in (0, 1)"}
		}
		return r, nil
	}

	if r.Size, err = requireNum(info.Class, cfg.Params, ParamSize); err != nil {
		return nil, err
	}
	if !ValidSize(r.Size) {
		return nil, &ConfigError{Class: info.Class, Param: ParamSize, Reason: "must be a fraction in (0, 1) or a positive whole number of units"}
	}
	return r, nil
}

// ValidSize reports whether size is a fraction of equity in (0, 1) or a
// positive whole number of units.
func ValidSize(size float64) bool {
	if size <= 0 {
		return false
	}
	return size < 1 || size == float64(int64(size))
}
