package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"predict-backtest/internal/analysis"
	"predict-backtest/internal/data"
	"predict-backtest/internal/job"
	"predict-backtest/internal/observability"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func csvServer(t *testing.T) *httptest.Server {
	t.Helper()
	var b strings.Builder
	b.WriteString("t,predicted_close_price,last_actual_close\n")
	start := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	prices := []float64{100, 101, 103, 102, 105, 104, 108, 110, 107, 111, 113, 109}
	last := prices[0]
	for i, p := range prices {
		fmt.Fprintf(&b, "%s,%g,%g\n", start.Add(time.Duration(i)*time.Hour).Format(time.RFC3339), p, last)
		last = p
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, b.String())
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestRouter(t *testing.T) (*gin.Engine, *observability.Metrics) {
	t.Helper()
	m := observability.NewMetrics("api_test")
	jobs := job.NewHandler(data.NewCSVClient(data.Options{}, nil, m), job.Options{Metrics: m})
	return NewRouter(Deps{Jobs: jobs, Metrics: m}), m
}

func do(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			_ = json.NewEncoder(&buf).Encode(b)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func jobBody(url string, class string) map[string]any {
	return map[string]any{
		"id": "req-42",
		"input": map[string]any{
			"csv_url":         url,
			"cash":            10000,
			"commission":      0.002,
			"desired_metrics": []string{analysis.StatReturn, analysis.StatTrades},
			"strategies": []map[string]any{
				{"class": class, "params": map[string]any{"take_profit_ratio": 0.05, "stop_loss_ratio": 0.025}},
			},
		},
	}
}

func TestHealth(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunSync_Completed(t *testing.T) {
	srv := csvServer(t)
	r, _ := newTestRouter(t)

	rec := do(r, http.MethodPost, "/runsync", jobBody(srv.URL+"/prices.csv", "Strategy1"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var out struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Output struct {
			Status  string                    `json:"status"`
			Details map[string]map[string]any `json:"details"`
		} `json:"output"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "req-42", out.ID)
	assert.Equal(t, "COMPLETED", out.Status)
	assert.Equal(t, "success", out.Output.Status)
	assert.Contains(t, out.Output.Details["Strategy 1"], analysis.StatReturn)

	metrics := do(r, http.MethodGet, "/metrics", nil)
	assert.Contains(t, metrics.Body.String(), `api_test_job_total{stage="done",status="success"} 1`)
}

func TestRun_FailedJob(t *testing.T) {
	srv := csvServer(t)
	r, _ := newTestRouter(t)

	rec := do(r, http.MethodPost, "/run", jobBody(srv.URL, "Strategy42"))
	require.Equal(t, http.StatusOK, rec.Code)

	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "FAILED", out["status"])
	output := out["output"].(map[string]any)
	assert.Contains(t, output["error"], "Strategy42")
	assert.Len(t, output, 1)
}

func TestRun_BadEnvelope(t *testing.T) {
	r, _ := newTestRouter(t)
	rec := do(r, http.MethodPost, "/run", `{"id": 5`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "INVALID_REQUEST")

	rec = do(r, http.MethodPost, "/run", `{"id": "no-input"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCatalogEndpoints(t *testing.T) {
	r, _ := newTestRouter(t)

	var strategies struct {
		Strategies []struct {
			Class string `json:"class"`
		} `json:"strategies"`
	}
	rec := do(r, http.MethodGet, "/api/v1/strategies", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &strategies))
	assert.Len(t, strategies.Strategies, 5)

	var metrics struct {
		Metrics []analysis.MetricInfo `json:"metrics"`
	}
	rec = do(r, http.MethodGet, "/api/v1/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &metrics))
	assert.Equal(t, analysis.Catalog(), metrics.Metrics)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := newTestRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/runsync", nil)
	req.Header.Set("Origin", "https://ui.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNotFoundAndPanic(t *testing.T) {
	r, _ := newTestRouter(t)
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	rec := do(r, http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")

	rec = do(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":{"code":"INTERNAL_ERROR","message":"boom"}}`, rec.Body.String())
}
