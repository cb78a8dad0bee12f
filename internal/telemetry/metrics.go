// Package telemetry implements the observability half of C11: the
// Prometheus metrics spec §6's GET /metrics exposes, and the
// query-response audit log spec §6's persisted-state layout requires.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/veracity-dev/ess/internal/esserr"
)

// Metrics holds the fixed set of counters, histograms, and gauges spec
// §6 names for GET /metrics. Each is registered once against its own
// registry so the same binary can run MCP and HTTP surfaces without
// double-registering.
type Metrics struct {
	Registry *prometheus.Registry

	QueryCount      *prometheus.CounterVec
	ErrorsTotal     *prometheus.CounterVec
	IngestionFiles  *prometheus.CounterVec
	QueryDuration   *prometheus.HistogramVec
	IngestDuration  *prometheus.HistogramVec
	CircuitState    *prometheus.GaugeVec
}

// NewMetrics builds a fresh, self-contained metrics registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		Registry: reg,
		QueryCount: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "query_count_total",
			Help: "Total queries handled, labeled by project and status.",
		}, []string{"project", "status"}),
		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total errors surfaced to a caller, labeled by component and error code.",
		}, []string{"component", "code"}),
		IngestionFiles: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ingestion_files_total",
			Help: "Total files processed by the write path, labeled by project and outcome.",
		}, []string{"project", "outcome"}),
		QueryDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "query_duration_seconds",
			Help:    "Query engine end-to-end latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"project"}),
		IngestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "ingestion_duration_seconds",
			Help:    "Write path duration per project.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 12),
		}, []string{"project"}),
		CircuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "circuit_state",
			Help: "Circuit breaker state per service: 0 closed, 1 half_open, 2 open.",
		}, []string{"service"}),
	}
	return m
}

// ObserveQuery records one completed query's outcome and latency.
func (m *Metrics) ObserveQuery(project, status string, seconds float64) {
	m.QueryCount.WithLabelValues(project, status).Inc()
	m.QueryDuration.WithLabelValues(project).Observe(seconds)
}

// ObserveError records one surfaced error by component and code.
func (m *Metrics) ObserveError(component, code string) {
	m.ErrorsTotal.WithLabelValues(component, code).Inc()
}

// ObserveIngestion records one completed write-path run.
func (m *Metrics) ObserveIngestion(project string, filesOK, filesFailed int, seconds float64) {
	m.IngestionFiles.WithLabelValues(project, "ok").Add(float64(filesOK))
	m.IngestionFiles.WithLabelValues(project, "failed").Add(float64(filesFailed))
	m.IngestDuration.WithLabelValues(project).Observe(seconds)
}

// SyncCircuitState mirrors an esserr.Registry health snapshot onto the
// circuit_state gauge, keeping /metrics consistent with /health.
func (m *Metrics) SyncCircuitState(snapshot map[string]esserr.Snapshot) {
	for service, s := range snapshot {
		m.CircuitState.WithLabelValues(service).Set(circuitStateValue(s.State))
	}
}

func circuitStateValue(s esserr.State) float64 {
	switch s {
	case esserr.StateClosed:
		return 0
	case esserr.StateHalfOpen:
		return 1
	case esserr.StateOpen:
		return 2
	default:
		return 0
	}
}
