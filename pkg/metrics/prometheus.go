// Package metrics provides Prometheus metrics for the flairward service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the flairward service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Event flow
	eventsHandled      prometheus.Counter
	eventsSkipped      *prometheus.CounterVec
	eventsFailed       prometheus.Counter
	liveQueueDepth     prometheus.Gauge
	catchUpQueueDepth  prometheus.Gauge
	monitoringEpoch    prometheus.Gauge
	rescans            prometheus.Counter

	// Evaluation
	evaluations        prometheus.Counter
	newcomerVerdicts   prometheus.Counter
	flairUpdates       prometheus.Counter
	evaluationLatency  prometheus.Histogram

	// History cache
	historyCacheHits    prometheus.Counter
	historyRefreshes    prometheus.Counter
	historyFetchLatency prometheus.Histogram
	trackedUsers        prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "flairward",
		subsystem:        "core",
		histogramBuckets: prometheus.DefBuckets,
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

	m.eventsHandled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_handled_total",
		Help:      "Total number of content events taken off the queues",
	})

	m.eventsSkipped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "events_skipped_total",
			Help:      "Total number of events skipped before evaluation, by reason",
		},
		[]string{"reason"},
	)

	m.eventsFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_failed_total",
		Help:      "Total number of events dropped after a processing failure",
	})

	m.liveQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "live_queue_depth",
		Help:      "Current depth of the live event queue",
	})

	m.catchUpQueueDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "catch_up_queue_depth",
		Help:      "Current depth of the catch-up event queue",
	})

	m.monitoringEpoch = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "monitoring_epoch",
		Help:      "Current monitoring epoch (increments on every full rescan)",
	})

	m.rescans = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "rescans_total",
		Help:      "Total number of full community rescans",
	})

	m.evaluations = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluations_total",
		Help:      "Total number of full user evaluations",
	})

	m.newcomerVerdicts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "newcomer_verdicts_total",
		Help:      "Total number of evaluations that classified the user as a newcomer",
	})

	m.flairUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "flair_updates_total",
		Help:      "Total number of committed flair changes",
	})

	m.evaluationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "evaluation_latency_milliseconds",
		Help:      "Histogram of full evaluation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.historyCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_cache_hits_total",
		Help:      "Total number of history queries served from the persisted cache",
	})

	m.historyRefreshes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_refreshes_total",
		Help:      "Total number of history refreshes against the content platform",
	})

	m.historyFetchLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_fetch_latency_milliseconds",
		Help:      "Histogram of history refresh latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.trackedUsers = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_users",
		Help:      "Number of users with a persisted contribution history",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers operating on the global manager.

// RecordEventHandled increments the handled-events counter.
func RecordEventHandled() {
	globalManager.eventsHandled.Inc()
}

// RecordEventSkipped increments the skipped-events counter for a reason
// (debounced, catch_up_done, ignored_author, deleted_author).
func RecordEventSkipped(reason string) {
	globalManager.eventsSkipped.WithLabelValues(reason).Inc()
}

// RecordEventFailed increments the failed-events counter.
func RecordEventFailed() {
	globalManager.eventsFailed.Inc()
}

// UpdateLiveQueueDepth sets the live queue depth gauge.
func UpdateLiveQueueDepth(n int) {
	globalManager.liveQueueDepth.Set(float64(n))
}

// UpdateCatchUpQueueDepth sets the catch-up queue depth gauge.
func UpdateCatchUpQueueDepth(n int) {
	globalManager.catchUpQueueDepth.Set(float64(n))
}

// UpdateMonitoringEpoch sets the epoch gauge.
func UpdateMonitoringEpoch(epoch int64) {
	globalManager.monitoringEpoch.Set(float64(epoch))
}

// RecordRescan increments the rescan counter.
func RecordRescan() {
	globalManager.rescans.Inc()
}

// RecordEvaluation increments the evaluation counter.
func RecordEvaluation() {
	globalManager.evaluations.Inc()
}

// RecordNewcomerVerdict increments the newcomer verdict counter.
func RecordNewcomerVerdict() {
	globalManager.newcomerVerdicts.Inc()
}

// RecordFlairUpdate increments the committed flair change counter.
func RecordFlairUpdate() {
	globalManager.flairUpdates.Inc()
}

// RecordEvaluationLatency observes a full evaluation latency sample.
func RecordEvaluationLatency(latencyMs float64) {
	globalManager.evaluationLatency.Observe(latencyMs)
}

// RecordHistoryCacheHit increments the cache hit counter.
func RecordHistoryCacheHit() {
	globalManager.historyCacheHits.Inc()
}

// RecordHistoryRefresh increments the history refresh counter.
func RecordHistoryRefresh() {
	globalManager.historyRefreshes.Inc()
}

// RecordHistoryFetchLatency observes a history refresh latency sample.
func RecordHistoryFetchLatency(latencyMs float64) {
	globalManager.historyFetchLatency.Observe(latencyMs)
}

// UpdateTrackedUsers sets the tracked users gauge.
func UpdateTrackedUsers(n int) {
	globalManager.trackedUsers.Set(float64(n))
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration sample.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by the service.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
