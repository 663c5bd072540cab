// Package observability provides Prometheus metrics for the worker.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const defaultNamespace = "predict_backtest"

// Metrics holds all Prometheus metrics for the application.
// All methods are safe on a nil *Metrics, which records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Job metrics
	JobsTotal   *prometheus.CounterVec
	JobDuration prometheus.Histogram

	// Engine metrics
	StrategyRuns     *prometheus.CounterVec
	StrategyDuration *prometheus.HistogramVec
	TradesSimulated  prometheus.Counter

	// Fetch metrics
	FetchRequests *prometheus.CounterVec
	FetchBytes    prometheus.Histogram
	FetchLatency  prometheus.Histogram

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPLatency  *prometheus.HistogramVec
}

// NewMetrics registers every metric on a fresh registry, so several
// instances (one per test, say) never collide.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		JobsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "total",
			Help:      "Jobs handled by outcome and the stage that decided it",
		}, []string{"stage", "status"}),
		JobDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "End-to-end job duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}),

		StrategyRuns: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategy_runs_total",
			Help:      "Strategy backtests by class and status",
		}, []string{"class", "status"}),
		StrategyDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "strategy_duration_seconds",
			Help:      "Single strategy backtest duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"class"}),
		TradesSimulated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "trades_simulated_total",
			Help:      "Total number of closed trades simulated",
		}),

		FetchRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "CSV downloads by result code",
		}, []string{"result"}),
		FetchBytes: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "response_bytes",
			Help:      "Size of downloaded CSV bodies",
			Buckets:   prometheus.ExponentialBuckets(1024, 4, 10),
		}),
		FetchLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "latency_seconds",
			Help:      "CSV download latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code",
		}, []string{"method", "route", "code"}),
		HTTPLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

func (m *Metrics) ObserveJob(stage, status string, d time.Duration) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(stage, status).Inc()
	m.JobDuration.Observe(d.Seconds())
}

func (m *Metrics) ObserveStrategy(class, status string, trades int, d time.Duration) {
	if m == nil {
		return
	}
	m.StrategyRuns.WithLabelValues(class, status).Inc()
	m.StrategyDuration.WithLabelValues(class).Observe(d.Seconds())
	m.TradesSimulated.Add(float64(trades))
}

func (m *Metrics) ObserveFetch(result string, bytes int, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchRequests.WithLabelValues(result).Inc()
	m.FetchLatency.Observe(d.Seconds())
	if bytes > 0 {
		m.FetchBytes.Observe(float64(bytes))
	}
}

func (m *Metrics) ObserveHTTP(method, route string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(code)).Inc()
	m.HTTPLatency.WithLabelValues(method, route).Observe(d.Seconds())
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
