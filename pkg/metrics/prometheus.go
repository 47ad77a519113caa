// Package metrics provides Prometheus metrics for the aptrank service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the aptrank service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Ranking
	matchesRecorded  prometheus.Counter
	pairSelections   *prometheus.CounterVec
	ratingDelta      prometheus.Histogram
	itemsTotal       prometheus.Gauge
	ledgerLength     prometheus.Gauge
	persistenceError *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpErrors          *prometheus.CounterVec

	// Collaborators
	geocodeRequests     *prometheus.CounterVec
	geocodeCacheLookups *prometheus.CounterVec
	scrapeRequests      *prometheus.CounterVec
	breakerState        *prometheus.GaugeVec
	sheetLoads          *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "aptrank",
		subsystem:        "ranker",
		histogramBuckets: prometheus.DefBuckets,
		constLabels:      prometheus.Labels{},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.matchesRecorded = auto.NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "matches_recorded_total",
		Help:        "Total number of pairwise comparisons recorded",
		ConstLabels: m.constLabels,
	})

	m.pairSelections = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "pair_selections_total",
		Help:        "Pairs handed out, by requested strategy and the strategy that produced the pair",
		ConstLabels: m.constLabels,
	}, []string{"requested", "served"})

	m.ratingDelta = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "rating_delta_points",
		Help:        "Rating points transferred per comparison",
		Buckets:     []float64{1, 2, 4, 8, 12, 16, 20, 24, 28, 32},
		ConstLabels: m.constLabels,
	})

	m.itemsTotal = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "items",
		Help:        "Number of listings currently loaded",
		ConstLabels: m.constLabels,
	})

	m.ledgerLength = auto.NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "ledger_length",
		Help:        "Number of outcomes in the match ledger",
		ConstLabels: m.constLabels,
	})

	m.persistenceError = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "persistence_errors_total",
		Help:        "Persistence collaborator failures by operation",
		ConstLabels: m.constLabels,
	}, []string{"op"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_requests_total",
		Help:        "Total number of HTTP requests by endpoint and method",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.httpErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_errors_total",
		Help:        "HTTP error responses by endpoint and error type",
		ConstLabels: m.constLabels,
	}, []string{"endpoint", "method", "error_type"})

	m.geocodeRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "geocode",
		Name:        "requests_total",
		Help:        "Geocoding lookups by result (found, not_found, failed, rejected)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.geocodeCacheLookups = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "geocode",
		Name:        "cache_lookups_total",
		Help:        "Geocoding cache lookups by outcome (hit, miss)",
		ConstLabels: m.constLabels,
	}, []string{"outcome"})

	m.scrapeRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "scrape",
		Name:        "requests_total",
		Help:        "Listing image scrapes by result (ok, empty, failed)",
		ConstLabels: m.constLabels,
	}, []string{"result"})

	m.breakerState = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   "geocode",
		Name:        "circuit_breaker_state",
		Help:        "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		ConstLabels: m.constLabels,
	}, []string{"name"})

	m.sheetLoads = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   "sheet",
		Name:        "loads_total",
		Help:        "Listing spreadsheet loads by result (ok, failed)",
		ConstLabels: m.constLabels,
	}, []string{"result"})
}

// RecordMatch counts a recorded comparison and the points it moved.
func RecordMatch(delta float64) {
	globalManager.matchesRecorded.Inc()
	globalManager.ratingDelta.Observe(delta)
}

// RecordPairSelection counts a handed-out pair.
func RecordPairSelection(requested, served string) {
	globalManager.pairSelections.WithLabelValues(requested, served).Inc()
}

// UpdateItemCount sets the number of loaded listings.
func UpdateItemCount(n int) {
	globalManager.itemsTotal.Set(float64(n))
}

// UpdateLedgerLength sets the ledger length gauge.
func UpdateLedgerLength(n int) {
	globalManager.ledgerLength.Set(float64(n))
}

// RecordPersistenceError counts a failed load/save/export.
func RecordPersistenceError(op string) {
	globalManager.persistenceError.WithLabelValues(op).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint records an HTTP error response.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.httpErrors.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordGeocode records a geocoding lookup result.
func RecordGeocode(result string) {
	globalManager.geocodeRequests.WithLabelValues(result).Inc()
}

// RecordGeocodeCache records a geocoding cache hit or miss.
func RecordGeocodeCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	globalManager.geocodeCacheLookups.WithLabelValues(outcome).Inc()
}

// RecordScrape records an image scrape result.
func RecordScrape(result string) {
	globalManager.scrapeRequests.WithLabelValues(result).Inc()
}

// UpdateBreakerState sets the circuit breaker state gauge.
func UpdateBreakerState(name string, state float64) {
	globalManager.breakerState.WithLabelValues(name).Set(state)
}

// RecordSheetLoad records a spreadsheet load.
func RecordSheetLoad(ok bool) {
	result := "failed"
	if ok {
		result = "ok"
	}
	globalManager.sheetLoads.WithLabelValues(result).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
