package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"predict-backtest/internal/analysis"
	"predict-backtest/internal/api/models"
)

// ListMetrics handles GET /api/v1/metrics: every name accepted in
// desired_metrics, with the kind of value it yields.
func ListMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, models.MetricsResponse{Metrics: analysis.Catalog()})
}
