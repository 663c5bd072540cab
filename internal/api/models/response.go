package models

import (
	"predict-backtest/internal/analysis"
	"predict-backtest/internal/job"
)

// Run status values, as a serverless runtime reports them.
const (
	StatusCompleted = "COMPLETED"
	StatusFailed    = "FAILED"
)

// RunResponse wraps a job's output.
type RunResponse struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Output job.Response `json:"output"`
}

// StrategyInfo represents information about a strategy
type StrategyInfo struct {
	Class       string          `json:"class"`
	Kind        string          `json:"kind"`
	Description string          `json:"description"`
	Parameters  []ParameterInfo `json:"parameters"`
}

// ParameterInfo describes a strategy parameter
type ParameterInfo struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Default     float64 `json:"default"`
	Required    bool    `json:"required"`
}

type StrategiesResponse struct {
	Strategies []StrategyInfo `json:"strategies"`
}

type MetricsResponse struct {
	Metrics []analysis.MetricInfo `json:"metrics"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
