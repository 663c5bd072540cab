package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"predict-backtest/internal/api"
	"predict-backtest/internal/config"
	"predict-backtest/internal/data"
	"predict-backtest/internal/job"
	"predict-backtest/internal/observability"
	"predict-backtest/internal/util"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// CONFIG_FILE is optional; env overrides apply either way.
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		return err
	}

	logger := util.NewLogger(cfg.Log.Level)
	util.SetDefault(logger)

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	metrics := observability.NewMetrics("")
	fetcher := data.NewCSVClient(cfg.FetchOptions(), logger, metrics)
	jobs := job.NewHandler(fetcher, job.Options{
		Parallelism:    cfg.Runner.Parallelism,
		MissingMetrics: cfg.MissingPolicy(),
		Metrics:        metrics,
		Logger:         logger,
	})

	router := api.NewRouter(api.Deps{
		Jobs:        jobs,
		Metrics:     metrics,
		Logger:      logger,
		CORSOrigins: cfg.Server.CORSOrigins,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting worker", "addr", srv.Addr, "env", cfg.Server.Env, "parallelism", cfg.Runner.Parallelism)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
