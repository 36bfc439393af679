package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "backend"

// credentialSources lists every value SetCredentialSource may receive, so the
// gauge reports zero for the sources not selected.
var credentialSources = []string{"managed secret store", "environment configuration"}

// BackendMetrics holds all metrics for the backend service.
type BackendMetrics struct {
	// API metrics
	APIRequestDuration *prometheus.HistogramVec
	APIRequestsTotal   *prometheus.CounterVec

	// Credential metrics
	CredentialResolutionsTotal *prometheus.CounterVec
	CredentialSource           *prometheus.GaugeVec

	// Database metrics
	DBQueryDuration     *prometheus.HistogramVec
	DBQueriesTotal      *prometheus.CounterVec
	DBConnectionsActive prometheus.Gauge
	DBConnectionsIdle   prometheus.Gauge
}

// newBackendMetrics creates and registers all backend metrics.
func newBackendMetrics(registry *prometheus.Registry) *BackendMetrics {
	m := &BackendMetrics{
		APIRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP API request latency in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status"},
		),

		APIRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP API requests.",
			},
			[]string{"method", "path", "status"},
		),

		CredentialResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "credentials",
				Name:      "resolutions_total",
				Help:      "Secret store credential resolutions by outcome.",
			},
			[]string{"outcome"},
		),

		CredentialSource: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "credentials",
				Name:      "source",
				Help:      "Set to 1 for the source that supplied database credentials.",
			},
			[]string{"source"},
		),

		DBQueryDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "query_duration_seconds",
				Help:      "Database query latency in seconds.",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"operation", "table"},
		),

		DBQueriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "queries_total",
				Help:      "Total number of database queries.",
			},
			[]string{"operation", "table", "status"},
		),

		DBConnectionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "connections_active",
				Help:      "Number of acquired database connections.",
			},
		),

		DBConnectionsIdle: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "database",
				Name:      "connections_idle",
				Help:      "Number of idle database connections.",
			},
		),
	}

	registry.MustRegister(
		m.APIRequestDuration,
		m.APIRequestsTotal,
		m.CredentialResolutionsTotal,
		m.CredentialSource,
		m.DBQueryDuration,
		m.DBQueriesTotal,
		m.DBConnectionsActive,
		m.DBConnectionsIdle,
	)

	return m
}

// RecordAPIRequest records an HTTP API request.
func (m *BackendMetrics) RecordAPIRequest(method, path, status string, durationSeconds float64) {
	m.APIRequestsTotal.WithLabelValues(method, path, status).Inc()
	m.APIRequestDuration.WithLabelValues(method, path, status).Observe(durationSeconds)
}

// RecordCredentialResolution counts one resolver invocation by outcome.
func (m *BackendMetrics) RecordCredentialResolution(outcome string) {
	m.CredentialResolutionsTotal.WithLabelValues(outcome).Inc()
}

// SetCredentialSource marks source as the active credential source.
func (m *BackendMetrics) SetCredentialSource(source string) {
	for _, s := range credentialSources {
		m.CredentialSource.WithLabelValues(s).Set(0)
	}
	m.CredentialSource.WithLabelValues(source).Set(1)
}

// RecordDBQuery records a database query.
func (m *BackendMetrics) RecordDBQuery(operation, table, status string, durationSeconds float64) {
	m.DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(durationSeconds)
}

// SetDBConnections sets the database connection counts.
func (m *BackendMetrics) SetDBConnections(active, idle float64) {
	m.DBConnectionsActive.Set(active)
	m.DBConnectionsIdle.Set(idle)
}
