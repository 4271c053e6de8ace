// Package metrics provides Prometheus metrics for the cfduel service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the cfduel service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Duel lifecycle metrics
	duelsStarted   prometheus.Counter
	duelsFinalized *prometheus.CounterVec
	activeDuels    prometheus.Gauge
	duelsRejected  *prometheus.CounterVec

	// Reconciliation metrics
	reconcilePasses  prometheus.Counter
	problemsResolved *prometheus.CounterVec
	reconcileLatency prometheus.Histogram

	// Judge client metrics
	judgeRequests    *prometheus.CounterVec
	judgeErrors      *prometheus.CounterVec
	judgeRetries     prometheus.Counter
	judgeLatency     prometheus.Histogram
	judgePacingDelay prometheus.Histogram

	// Announcement pipeline metrics
	announceQueueSize prometheus.Gauge
	announceDelivered prometheus.Counter
	announceDropped   prometheus.Counter

	// Archive metrics
	archiveRecords prometheus.Gauge
	archiveErrors  prometheus.Counter

	// HTTP metrics
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
		namespace:        "cfduel",
		subsystem:        "duel",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.duelsStarted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "started_total",
		Help:      "Total number of duels started",
	})

	m.duelsFinalized = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "finalized_total",
			Help:      "Total number of duels finalized by trigger (resolved, timeout, request)",
		},
		[]string{"trigger"},
	)

	m.activeDuels = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "active",
		Help:      "Current number of active duel sessions",
	})

	m.duelsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "rejected_total",
			Help:      "Total number of rejected duel creation attempts by reason",
		},
		[]string{"reason"},
	)

	m.reconcilePasses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_passes_total",
		Help:      "Total number of reconciliation passes over sessions",
	})

	m.problemsResolved = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "problems_resolved_total",
			Help:      "Total number of duel problems resolved by outcome (won, tie, dual)",
		},
		[]string{"outcome"},
	)

	m.reconcileLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "reconcile_latency_milliseconds",
		Help:      "Histogram of reconciliation pass latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.judgeRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "judge",
			Name:      "requests_total",
			Help:      "Total number of judge API requests by endpoint",
		},
		[]string{"endpoint"},
	)

	m.judgeErrors = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "judge",
			Name:      "errors_total",
			Help:      "Total number of judge API failures by endpoint",
		},
		[]string{"endpoint"},
	)

	m.judgeRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "judge",
		Name:      "retries_total",
		Help:      "Total number of judge API retry attempts",
	})

	m.judgeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "judge",
		Name:      "request_latency_milliseconds",
		Help:      "Histogram of judge API request latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.judgePacingDelay = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "judge",
		Name:      "pacing_delay_milliseconds",
		Help:      "Histogram of time spent waiting for a judge API pacing slot",
		Buckets:   m.histogramBuckets,
	})

	m.announceQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "announce",
		Name:      "queue_size",
		Help:      "Current size of the announcement queue",
	})

	m.announceDelivered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "announce",
		Name:      "delivered_total",
		Help:      "Total number of announcements delivered to the sink",
	})

	m.announceDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "announce",
		Name:      "dropped_total",
		Help:      "Total number of announcements dropped due to backpressure",
	})

	m.archiveRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "archive",
		Name:      "records",
		Help:      "Current number of records in the recent-duel archive",
	})

	m.archiveErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "archive",
		Name:      "errors_total",
		Help:      "Total number of archive persistence failures",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: "http",
			Name:      "request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)
}

// Package-level helpers delegating to the global manager.

// RecordDuelStarted increments the started-duel counter.
func RecordDuelStarted() {
	globalManager.duelsStarted.Inc()
}

// RecordDuelFinalized increments the finalized counter for a trigger.
func RecordDuelFinalized(trigger string) {
	globalManager.duelsFinalized.WithLabelValues(trigger).Inc()
}

// UpdateActiveDuels sets the active-session gauge.
func UpdateActiveDuels(count int) {
	globalManager.activeDuels.Set(float64(count))
}

// RecordDuelRejected increments the rejected counter for a reason.
func RecordDuelRejected(reason string) {
	globalManager.duelsRejected.WithLabelValues(reason).Inc()
}

// RecordReconcilePass increments the reconciliation pass counter.
func RecordReconcilePass() {
	globalManager.reconcilePasses.Inc()
}

// RecordProblemResolved increments the resolved-problem counter for an outcome.
func RecordProblemResolved(outcome string) {
	globalManager.problemsResolved.WithLabelValues(outcome).Inc()
}

// RecordReconcileLatency records a reconciliation pass latency.
func RecordReconcileLatency(latencyMs float64) {
	globalManager.reconcileLatency.Observe(latencyMs)
}

// RecordJudgeRequest increments the judge request counter for an endpoint.
func RecordJudgeRequest(endpoint string) {
	globalManager.judgeRequests.WithLabelValues(endpoint).Inc()
}

// RecordJudgeError increments the judge error counter for an endpoint.
func RecordJudgeError(endpoint string) {
	globalManager.judgeErrors.WithLabelValues(endpoint).Inc()
}

// RecordJudgeRetry increments the judge retry counter.
func RecordJudgeRetry() {
	globalManager.judgeRetries.Inc()
}

// RecordJudgeLatency records a judge request latency.
func RecordJudgeLatency(latencyMs float64) {
	globalManager.judgeLatency.Observe(latencyMs)
}

// RecordJudgePacingDelay records time spent waiting for a pacing slot.
func RecordJudgePacingDelay(delayMs float64) {
	globalManager.judgePacingDelay.Observe(delayMs)
}

// UpdateAnnounceQueueSize sets the announcement queue gauge.
func UpdateAnnounceQueueSize(size int) {
	globalManager.announceQueueSize.Set(float64(size))
}

// RecordAnnounceDelivered increments the delivered-announcement counter.
func RecordAnnounceDelivered() {
	globalManager.announceDelivered.Inc()
}

// RecordAnnounceDropped increments the dropped-announcement counter.
func RecordAnnounceDropped() {
	globalManager.announceDropped.Inc()
}

// UpdateArchiveRecords sets the archive record gauge.
func UpdateArchiveRecords(count int) {
	globalManager.archiveRecords.Set(float64(count))
}

// RecordArchiveError increments the archive failure counter.
func RecordArchiveError() {
	globalManager.archiveErrors.Inc()
}

// RecordHTTPRequest increments the HTTP request counter.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom registry used by the global manager.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
