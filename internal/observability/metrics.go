// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Engine metrics
	RunsTotal           *prometheus.CounterVec
	RunDuration         *prometheus.HistogramVec
	PathsSimulated      prometheus.Counter
	PortfoliosSampled   prometheus.Counter
	NonFiniteSharpe     prometheus.Counter
	InvariantDivergence *prometheus.CounterVec

	// Live session metrics
	LiveSessions     prometheus.Gauge
	SupersededRuns   prometheus.Counter
	LiveMessagesRecv prometheus.Counter

	// Study metrics
	StudiesTotal     *prometheus.CounterVec
	ReportsGenerated prometheus.Counter

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryErrors   *prometheus.CounterVec

	// Health metrics
	LastSuccessfulRun prometheus.Gauge
}

// NewMetrics creates a new Metrics instance registered on the default registry.
func NewMetrics(namespace string) *Metrics {
	return NewMetricsWith(prometheus.DefaultRegisterer, namespace)
}

// NewMetricsWith creates a Metrics instance registered on reg.
// Tests pass a fresh prometheus.NewRegistry() to avoid duplicate registration.
func NewMetricsWith(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	f := promauto.With(reg)

	return &Metrics{
		RunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "runs_total",
			Help:      "Total number of engine runs by kind and status",
		}, []string{"kind", "status"}),
		RunDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "run_duration_seconds",
			Help:      "Engine run duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"kind"}),
		PathsSimulated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "paths_simulated_total",
			Help:      "Total number of Brownian paths simulated",
		}),
		PortfoliosSampled: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "portfolios_sampled_total",
			Help:      "Total number of random portfolios sampled",
		}),
		NonFiniteSharpe: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "non_finite_sharpe_total",
			Help:      "Portfolios excluded from optimum tracking because their Sharpe ratio was not finite",
		}),
		InvariantDivergence: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "engine",
			Name:      "invariant_divergences_total",
			Help:      "Invariant checks that failed on produced artefacts",
		}, []string{"check"}),

		LiveSessions: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "sessions",
			Help:      "Current number of open live WebSocket sessions",
		}),
		SupersededRuns: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "superseded_runs_total",
			Help:      "Runs cancelled because a newer parameter message arrived",
		}),
		LiveMessagesRecv: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "live",
			Name:      "messages_received_total",
			Help:      "Total number of live session parameter messages received",
		}),

		StudiesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "runs_total",
			Help:      "Total number of studies by name and status",
		}, []string{"study", "status"}),
		ReportsGenerated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "study",
			Name:      "reports_generated_total",
			Help:      "Total number of reports generated",
		}),

		DBQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_duration_seconds",
			Help:      "Database query duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"database", "operation"}),
		DBQueryErrors: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "database",
			Name:      "query_errors_total",
			Help:      "Total number of database query errors",
		}, []string{"database", "operation"}),

		LastSuccessfulRun: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "last_successful_run_timestamp",
			Help:      "Unix timestamp of last successful engine run",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultNamespace is the namespace of DefaultMetrics.
const DefaultNamespace = "diffusion_lab"

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// ForNamespace returns DefaultMetrics for the default namespace and a new
// instance on the default registry otherwise.
func ForNamespace(namespace string) *Metrics {
	if namespace == "" || namespace == DefaultNamespace {
		return DefaultMetrics
	}
	return NewMetrics(namespace)
}

// RecordRun records an engine run outcome and its duration.
func (m *Metrics) RecordRun(kind, status string, durationSeconds float64) {
	m.RunsTotal.WithLabelValues(kind, status).Inc()
	m.RunDuration.WithLabelValues(kind).Observe(durationSeconds)
}

// RecordDBQuery records database query metrics.
func (m *Metrics) RecordDBQuery(database, operation string, seconds float64, err error) {
	m.DBQueryDuration.WithLabelValues(database, operation).Observe(seconds)
	if err != nil {
		m.DBQueryErrors.WithLabelValues(database, operation).Inc()
	}
}

// RecordDivergences counts failed invariant checks by name.
func (m *Metrics) RecordDivergences(checks []string) {
	for _, c := range checks {
		m.InvariantDivergence.WithLabelValues(c).Inc()
	}
}

// RecordStudy records a study outcome.
func (m *Metrics) RecordStudy(study, status string) {
	m.StudiesTotal.WithLabelValues(study, status).Inc()
}

// RecordRun records an engine run on DefaultMetrics.
func RecordRun(kind, status string, durationSeconds float64) {
	DefaultMetrics.RecordRun(kind, status, durationSeconds)
}

// RecordDBQuery records database query metrics on DefaultMetrics.
func RecordDBQuery(database, operation string, seconds float64, err error) {
	DefaultMetrics.RecordDBQuery(database, operation, seconds, err)
}
