// Package metrics provides Prometheus metrics for the firecaster map service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fetch outcomes recorded by RecordFetch.
const (
	OutcomeSuccess = "success"
	OutcomeNoData  = "no_data"
	OutcomeFailure = "failure"
	OutcomeStale   = "stale"
)

// Manager owns the firecaster Prometheus collectors.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	fetches          *prometheus.CounterVec
	fetchLatency     prometheus.Histogram
	featuresRendered prometheus.Gauge
	unknownScores    prometheus.Counter
	skippedFeatures  prometheus.Counter
	interactions     *prometheus.CounterVec
	resizes          prometheus.Counter
	liveClients      *prometheus.GaugeVec

	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton like the registry below

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // registers the global manager once
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "firecaster",
		subsystem:        "map",
		histogramBuckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fetches = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_fetches_total",
		Help:      "Prediction fetches by outcome (success, no_data, failure, stale)",
	}, []string{"outcome"})

	m.fetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "prediction_fetch_latency_milliseconds",
		Help:      "Latency of prediction endpoint requests in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.featuresRendered = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "features_rendered",
		Help:      "Number of features currently rendered on the map",
	})

	m.unknownScores = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "unknown_scores_total",
		Help:      "Features received with a prediction score outside -1, 0, 1",
	})

	m.skippedFeatures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skipped_features_total",
		Help:      "Features dropped while decoding a prediction response",
	})

	m.interactions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "interactions_total",
		Help:      "Pointer events dispatched to feature handles",
	}, []string{"kind"})

	m.resizes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "resizes_total",
		Help:      "Canvas resizes applied after debouncing",
	})

	m.liveClients = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_clients",
		Help:      "Connected live clients by transport",
	}, []string{"transport"})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by endpoint, method and status code",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})
}

// RecordFetch counts a fetch outcome.
func (m *Manager) RecordFetch(outcome string) { m.fetches.WithLabelValues(outcome).Inc() }

// RecordFetchLatency observes a fetch round trip in milliseconds.
func (m *Manager) RecordFetchLatency(ms float64) { m.fetchLatency.Observe(ms) }

// SetFeaturesRendered sets the rendered feature gauge.
func (m *Manager) SetFeaturesRendered(n int) { m.featuresRendered.Set(float64(n)) }

// AddUnknownScores counts features that fell back to the unknown bucket.
func (m *Manager) AddUnknownScores(n int) { m.unknownScores.Add(float64(n)) }

// AddSkippedFeatures counts features dropped during decoding.
func (m *Manager) AddSkippedFeatures(n int) { m.skippedFeatures.Add(float64(n)) }

// RecordInteraction counts a pointer event by kind.
func (m *Manager) RecordInteraction(kind string) { m.interactions.WithLabelValues(kind).Inc() }

// RecordResize counts an applied resize.
func (m *Manager) RecordResize() { m.resizes.Inc() }

// AddLiveClients moves the live client gauge for a transport by delta.
func (m *Manager) AddLiveClients(transport string, delta int) {
	m.liveClients.WithLabelValues(transport).Add(float64(delta))
}

// RecordHTTPRequest counts a handled HTTP request and its duration.
func (m *Manager) RecordHTTPRequest(endpoint, method, statusCode string, durationMs float64) {
	m.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
	m.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// Default returns the global manager registered on the custom registry.
func Default() *Manager { return globalManager }

// GetRegistry returns the custom registry backing the global manager.
func GetRegistry() *prometheus.Registry { return customRegistry }
