package backtest

import (
	"context"
	"errors"
	"fmt"

	"predict-backtest/internal/model"
	"predict-backtest/internal/strategy"
)

// ctxCheckEvery is how many bars run between cancellation checks.
const ctxCheckEvery = 1024

type Engine struct{}

func New() *Engine { return &Engine{} }

// Run walks the series bar by bar. The strategy is first asked on the second
// bar; orders it places on bar i are filled on bar i+1.
func (e *Engine) Run(ctx context.Context, series *model.Series, strat strategy.Strategy, settings model.Settings) (*Result, error) {
	if strat == nil {
		return nil, errors.New("strategy is nil")
	}
	if series.Len() == 0 {
		return nil, model.ErrEmptySeries
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	bars := series.Bars
	br := newBroker(bars, settings)
	equity := make([]model.EquityPoint, len(bars))
	equity[0] = model.EquityPoint{Time: bars[0].Time, Equity: settings.Cash}
	maxClose := bars[0].Close

	for i := 1; i < len(bars); i++ {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		bar := bars[i]
		if bar.Close > maxClose {
			maxClose = bar.Close
		}

		br.process(i)

		d := strat.Decide(strategy.Context{
			Index:      i,
			Bar:        bar,
			MaxClose:   maxClose,
			InPosition: br.busy(),
		})
		if err := br.submit(i, d); err != nil {
			return nil, fmt.Errorf("%s: %w", strat.Name(), err)
		}

		equity[i] = model.EquityPoint{Time: bar.Time, Equity: br.equity(bar.Close)}
	}

	last := len(bars) - 1
	res := &Result{
		Strategy: strategyLabel(strat),
		Settings: settings,
		Equity:   equity,
	}
	if br.pos != nil {
		if settings.Options.FinalizeTrades {
			br.closePosition(last, bars[last].Close, model.ExitEndOfData)
			equity[last].Equity = br.equity(bars[last].Close)
		} else {
			open := br.markOpen(last)
			res.OpenTrade = &open
		}
	}
	res.Trades = br.trades
	return res, nil
}

func strategyLabel(s strategy.Strategy) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return s.Name()
}
