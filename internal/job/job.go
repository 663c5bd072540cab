// Package job runs one backtest job end to end: validate the payload, fetch
// and preprocess the CSV, backtest every strategy and shape the output.
package job

import (
	"encoding/json"

	"predict-backtest/internal/backtest"
	"predict-backtest/internal/strategy"
)

// Job is the envelope a serverless runtime delivers.
type Job struct {
	ID    string          `json:"id"`
	Input json.RawMessage `json:"input"`
}

// Input is the job payload. Pointer fields distinguish "missing" from zero.
type Input struct {
	CSVURL             string            `json:"csv_url" validate:"required,url"`
	Cash               *float64          `json:"cash" validate:"required,gt=0"`
	Commission         *float64          `json:"commission" validate:"required,gte=0,lt=1"`
	DesiredMetrics     []string          `json:"desired_metrics" validate:"required,min=1,dive,required"`
	Strategies         []strategy.Config `json:"strategies" validate:"required,min=1,dive"`
	BacktestAdditional map[string]any    `json:"backtest_additional,omitempty"`
	MissingMetrics     string            `json:"missing_metrics,omitempty" validate:"omitempty,oneof=null omit error"`
}

// Stage names the step of the pipeline a job reached.
type Stage string

const (
	StageValidate   Stage = "validate"
	StageStrategies Stage = "strategies"
	StageFetch      Stage = "fetch"
	StagePreprocess Stage = "preprocess"
	StageRun        Stage = "run"
	StageDone       Stage = "done"
)

const StatusSuccess = "success"

// Response is the job output. Exactly one of Error and Details is meaningful.
type Response struct {
	JobID   string
	Stage   Stage
	Error   string
	Message string
	// Details holds one outcome per strategy, keyed "Strategy <n>".
	Details map[string]backtest.Outcome
}

func (r Response) Failed() bool { return r.Error != "" }

// MarshalJSON renders {"error": "..."} for failures and
// {"status": "success", "message": "", "details": {...}} otherwise.
func (r Response) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{r.Error})
	}
	details := r.Details
	if details == nil {
		details = map[string]backtest.Outcome{}
	}
	return json.Marshal(struct {
		Status  string                      `json:"status"`
		Message string                      `json:"message"`
		Details map[string]backtest.Outcome `json:"details"`
	}{StatusSuccess, r.Message, details})
}
