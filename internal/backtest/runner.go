package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"predict-backtest/internal/analysis"
	"predict-backtest/internal/model"
	"predict-backtest/internal/observability"
	"predict-backtest/internal/strategy"
	"predict-backtest/internal/util"
)

// Outcome is the result of one strategy in a batch: either selected metrics
// or the error that stopped that strategy.
type Outcome struct {
	Class   string
	Metrics *MetricSet
	Err     error

	// Result and Stats are kept for exports and ranking; they are nil when
	// the strategy failed.
	Result *Result
	Stats  *analysis.Stats
}

// MarshalJSON renders failures as {"error": "..."}.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Err != nil {
		return json.Marshal(map[string]string{"error": o.Err.Error()})
	}
	return o.Metrics.MarshalJSON()
}

// StrategyID names the i-th (0-based) strategy of a request.
func StrategyID(i int) string { return fmt.Sprintf("Strategy %d", i+1) }

// Runner evaluates a batch of strategy configurations against one series.
// A failing strategy never affects the others.
type Runner struct {
	engine      *Engine
	build       func(strategy.Config) (strategy.Strategy, error)
	parallelism int
	policy      MissingPolicy
	metrics     *observability.Metrics
	logger      *slog.Logger
}

type RunnerOption func(*Runner)

func WithParallelism(n int) RunnerOption {
	return func(r *Runner) {
		if n > 0 {
			r.parallelism = n
		}
	}
}

func WithMissingPolicy(p MissingPolicy) RunnerOption {
	return func(r *Runner) { r.policy = p }
}

func WithMetrics(m *observability.Metrics) RunnerOption {
	return func(r *Runner) { r.metrics = m }
}

func WithLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		engine:      New(),
		build:       buildRule,
		parallelism: 1,
		policy:      MissingNull,
		logger:      util.Discard(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func buildRule(cfg strategy.Config) (strategy.Strategy, error) {
	return strategy.New(cfg)
}

// Run backtests every configuration and returns outcomes keyed by
// StrategyID. With parallelism 1 the strategies run one after another in
// request order. Strategy failures stay in their Outcome; the returned
// error is only set when ctx ended before the batch finished.
func (r *Runner) Run(ctx context.Context, series *model.Series, configs []strategy.Config, settings model.Settings, metricNames []string) (map[string]Outcome, error) {
	out := make(map[string]Outcome, len(configs))
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(r.parallelism)
	for i, cfg := range configs {
		cfg := cfg
		id := StrategyID(i)
		g.Go(func() error {
			o := r.runOne(ctx, id, series, cfg, settings, metricNames)
			mu.Lock()
			out[id] = o
			mu.Unlock()
			return ctx.Err()
		})
	}
	err := g.Wait()
	return out, err
}

func (r *Runner) runOne(ctx context.Context, id string, series *model.Series, cfg strategy.Config, settings model.Settings, metricNames []string) (o Outcome) {
	start := time.Now()
	log := r.logger.With("strategy_id", id, "class", cfg.Class)
	o = Outcome{Class: cfg.Class}

	fail := func(err error) Outcome {
		o = Outcome{Class: cfg.Class, Err: err}
		r.metrics.ObserveStrategy(cfg.Class, "failed", 0, time.Since(start))
		log.Warn("strategy failed", "error", err)
		return o
	}

	defer func() {
		if p := recover(); p != nil {
			log.Error("strategy panicked", "panic", fmt.Sprint(p), "stack", string(debug.Stack()))
			o = fail(fmt.Errorf("strategy panicked: %v", p))
		}
	}()

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	rule, err := r.build(cfg)
	if err != nil {
		return fail(err)
	}
	res, err := r.engine.Run(ctx, series, rule, settings)
	if err != nil {
		return fail(err)
	}
	st := analysis.Compute(analysis.Input{
		Series:   series,
		Trades:   res.Trades,
		Equity:   res.Equity,
		Strategy: res.Strategy,
	})
	sel, err := selectMetrics(st, metricNames, r.policy)
	if err != nil {
		return fail(err)
	}

	o.Metrics, o.Result, o.Stats = sel, res, st
	r.metrics.ObserveStrategy(cfg.Class, "success", len(res.Trades), time.Since(start))
	log.Info("strategy finished",
		"trades", len(res.Trades),
		"final_equity", res.FinalEquity(),
		"duration_ms", time.Since(start).Milliseconds())
	return o
}
