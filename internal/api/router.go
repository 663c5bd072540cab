// Package api wires the worker's HTTP surface.
package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"predict-backtest/internal/api/handlers"
	"predict-backtest/internal/api/middleware"
	"predict-backtest/internal/job"
	"predict-backtest/internal/observability"
	"predict-backtest/internal/util"
)

type Deps struct {
	Jobs        *job.Handler
	Metrics     *observability.Metrics
	Logger      *slog.Logger
	CORSOrigins []string
}

func NewRouter(d Deps) *gin.Engine {
	if d.Logger == nil {
		d.Logger = util.Discard()
	}
	logger := d.Logger.With("component", "http")

	router := gin.New()
	router.Use(middleware.Logger(logger, d.Metrics))
	router.Use(middleware.ErrorHandler(logger))
	router.Use(middleware.CORS(d.CORSOrigins))

	jobHandler := handlers.NewJobHandler(d.Jobs)
	strategyHandler := handlers.NewStrategyHandler()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))

	router.POST("/run", jobHandler.Run)
	router.POST("/runsync", jobHandler.Run)

	api := router.Group("/api/v1")
	{
		api.GET("/strategies", strategyHandler.ListStrategies)
		api.GET("/metrics", handlers.ListMetrics)
	}

	router.NoRoute(middleware.NotFound)
	return router
}
