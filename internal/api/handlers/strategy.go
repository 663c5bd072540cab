package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"predict-backtest/internal/api/models"
	"predict-backtest/internal/strategy"
)

// StrategyHandler handles strategy-related requests
type StrategyHandler struct{}

// NewStrategyHandler creates a new strategy handler
func NewStrategyHandler() *StrategyHandler {
	return &StrategyHandler{}
}

// ListStrategies handles GET /api/v1/strategies
func (h *StrategyHandler) ListStrategies(c *gin.Context) {
	catalog := strategy.Catalog()
	out := make([]models.StrategyInfo, 0, len(catalog))
	for _, info := range catalog {
		params := make([]models.ParameterInfo, 0, len(info.Params))
		for _, p := range info.Params {
			params = append(params, models.ParameterInfo{
				Name:        p.Name,
				Type:        "float",
				Description: p.Description,
				Default:     p.Default,
				Required:    true,
			})
		}
		out = append(out, models.StrategyInfo{
			Class:       info.Class,
			Kind:        info.Kind.String(),
			Description: info.Description,
			Parameters:  params,
		})
	}
	c.JSON(http.StatusOK, models.StrategiesResponse{Strategies: out})
}
