package job

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"predict-backtest/internal/backtest"
	"predict-backtest/internal/data"
	"predict-backtest/internal/model"
	"predict-backtest/internal/observability"
	"predict-backtest/internal/strategy"
	"predict-backtest/internal/util"
)

// Fetcher retrieves the CSV table behind a URL, header row first.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([][]string, error)
}

type Options struct {
	// Parallelism bounds concurrent strategy runs within one job.
	Parallelism int
	// MissingMetrics is the policy for jobs that do not choose one.
	MissingMetrics backtest.MissingPolicy
	Metrics        *observability.Metrics
	Logger         *slog.Logger
}

// Handler is stateless apart from its collaborators and may serve
// concurrent jobs.
type Handler struct {
	fetcher     Fetcher
	parallelism int
	policy      backtest.MissingPolicy
	metrics     *observability.Metrics
	logger      *slog.Logger
}

func NewHandler(fetcher Fetcher, opts Options) *Handler {
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	if opts.MissingMetrics == "" {
		opts.MissingMetrics = backtest.MissingNull
	}
	if opts.Logger == nil {
		opts.Logger = util.Discard()
	}
	return &Handler{
		fetcher:     fetcher,
		parallelism: opts.Parallelism,
		policy:      opts.MissingMetrics,
		metrics:     opts.Metrics,
		logger:      opts.Logger.With("component", "job"),
	}
}

// Handle runs the job. Failures at any stage end the job with an error
// response; nothing is retried.
func (h *Handler) Handle(ctx context.Context, j Job) Response {
	id := j.ID
	if id == "" {
		id = uuid.NewString()
	}
	start := time.Now()
	log := h.logger.With("job_id", id)
	log.Info("job started")

	resp := h.run(ctx, log, j.Input)
	resp.JobID = id

	status := "success"
	if resp.Failed() {
		status = "failed"
		log.Warn("job failed", "stage", resp.Stage, "error", resp.Error, "duration_ms", time.Since(start).Milliseconds())
	} else {
		log.Info("job finished", "strategies", len(resp.Details), "duration_ms", time.Since(start).Milliseconds())
	}
	h.metrics.ObserveJob(string(resp.Stage), status, time.Since(start))
	return resp
}

func (h *Handler) run(ctx context.Context, log *slog.Logger, raw []byte) Response {
	fail := func(stage Stage, err error) Response {
		return Response{Stage: stage, Error: err.Error()}
	}

	in, err := DecodeInput(raw)
	if err != nil {
		return fail(StageValidate, err)
	}
	settings, policy, err := h.prepare(in)
	if err != nil {
		return fail(StageStrategies, err)
	}

	table, err := h.fetcher.Fetch(ctx, in.CSVURL)
	if err != nil {
		return fail(StageFetch, err)
	}
	series, err := data.Preprocess(table)
	if err != nil {
		return fail(StagePreprocess, fmt.Errorf("preprocess: %w", err))
	}
	log.Info("series ready", "bars", series.Len(), "start", series.Start(), "end", series.End())

	runner := backtest.NewRunner(
		backtest.WithParallelism(h.parallelism),
		backtest.WithMissingPolicy(policy),
		backtest.WithMetrics(h.metrics),
		backtest.WithLogger(log),
	)
	details, err := runner.Run(ctx, series, in.Strategies, settings, in.DesiredMetrics)
	if err != nil {
		return fail(StageRun, err)
	}
	return Response{Stage: StageDone, Details: details}
}

// prepare checks everything that can be checked before any data is
// downloaded: strategy classes, engine options and the metric policy.
func (h *Handler) prepare(in Input) (model.Settings, backtest.MissingPolicy, error) {
	for i, cfg := range in.Strategies {
		if _, err := strategy.Lookup(cfg.Class); err != nil {
			return model.Settings{}, "", fmt.Errorf("%s: %w", backtest.StrategyID(i), err)
		}
	}
	opts, err := model.ParseOptions(in.BacktestAdditional)
	if err != nil {
		return model.Settings{}, "", err
	}
	settings := model.Settings{Cash: *in.Cash, Commission: *in.Commission, Options: opts}
	if err := settings.Validate(); err != nil {
		return model.Settings{}, "", err
	}

	policy := h.policy
	if in.MissingMetrics != "" {
		if policy, err = backtest.ParseMissingPolicy(in.MissingMetrics); err != nil {
			return model.Settings{}, "", err
		}
	}
	return settings, policy, nil
}
