// internal/metrics/metrics.go
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all the application metrics
type Metrics struct {
	// HTTP request metrics
	HTTPRequestTotal    *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Mutation metrics
	MutationTotal    *prometheus.CounterVec
	MutationDuration *prometheus.HistogramVec

	// Match engine metrics
	MatchTotal    *prometheus.CounterVec
	MatchDuration *prometheus.HistogramVec

	// Mirror synchronization metrics
	MirrorSyncTotal    *prometheus.CounterVec
	MirrorSyncDuration *prometheus.HistogramVec
}

// Global metrics instance with mutex for thread safety
var (
	globalMetrics *Metrics
	metricsMutex  sync.Mutex
)

// NewMetrics creates a new Metrics instance with all required metrics
func NewMetrics() *Metrics {
	metricsMutex.Lock()
	defer metricsMutex.Unlock()

	// Return existing instance if already created
	if globalMetrics != nil {
		return globalMetrics
	}

	m := &Metrics{
		// HTTP request metrics
		HTTPRequestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),

		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),

		// Mutation metrics
		MutationTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Total number of catalog mutations",
		}, []string{"operation", "status"}),

		MutationDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_mutation_duration_seconds",
			Help:    "Catalog mutation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),

		// Match engine metrics
		MatchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_match_requests_total",
			Help: "Total number of match queries",
		}, []string{"mode", "outcome"}),

		MatchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_match_duration_seconds",
			Help:    "Match query duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"mode", "outcome"}),

		// Mirror synchronization metrics
		MirrorSyncTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_mirror_sync_total",
			Help: "Total number of remote mirror operations",
		}, []string{"operation", "status"}),

		MirrorSyncDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_mirror_sync_duration_seconds",
			Help:    "Remote mirror operation duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation", "status"}),
	}

	// Register metrics with the default registry
	registerMetrics(m)

	// Store as global instance
	globalMetrics = m

	return m
}

// registerMetrics registers all metrics with the default registry
func registerMetrics(m *Metrics) {
	// Try to register each metric, ignore if already registered
	registerOrGet(m.HTTPRequestTotal)
	registerOrGet(m.HTTPRequestDuration)
	registerOrGet(m.MutationTotal)
	registerOrGet(m.MutationDuration)
	registerOrGet(m.MatchTotal)
	registerOrGet(m.MatchDuration)
	registerOrGet(m.MirrorSyncTotal)
	registerOrGet(m.MirrorSyncDuration)
}

// registerOrGet tries to register a metric, returns the existing one if already registered
func registerOrGet(c prometheus.Collector) prometheus.Collector {
	if err := prometheus.Register(c); err != nil {
		// If already registered, return the existing collector
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector
		}
	}
	return c
}
