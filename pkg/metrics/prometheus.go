// Package metrics provides Prometheus metrics for the Aegis safety service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the Aegis service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Tracking Metrics - Location stream health
	samplesEmitted  prometheus.Counter
	samplesRejected *prometheus.CounterVec
	activeStreams   prometheus.Gauge
	sampleAccuracy  prometheus.Histogram

	// Scoring Metrics - Safety reading computation
	readingsComputed prometheus.Counter
	readingsDegraded prometheus.Counter
	scoringLatency   prometheus.Histogram
	safetyScore      prometheus.Gauge
	scoreConfidence  prometheus.Gauge
	scoreCacheHits   prometheus.Counter
	scoreCacheMisses prometheus.Counter
	advisoryCalls    *prometheus.CounterVec
	advisoryLatency  prometheus.Histogram

	// Alert Metrics - Lifecycle transitions
	alertsTriggered     prometheus.Counter
	alertsCancelled     prometheus.Counter
	alertsResolved      prometheus.Counter
	transitionsRejected *prometheus.CounterVec
	activeAlerts        prometheus.Gauge
	alertResponses      *prometheus.CounterVec
	countdownsAborted   prometheus.Counter

	// Delivery Metrics - Outbound alert traffic
	deliveryAttempts  prometheus.Counter
	deliveryFailures  prometheus.Counter
	deliveryRetries   prometheus.Counter
	deliveryExhausted prometheus.Counter
	deliveryLatency   prometheus.Histogram

	// Notification Metrics - Escalation pipeline
	notificationsRaised    *prometheus.CounterVec
	notificationsDeduped   prometheus.Counter
	notificationsExpired   prometheus.Counter
	notificationsDismissed prometheus.Counter
	centerBacklog          prometheus.Gauge
	soundsPlayed           prometheus.Counter
	soundsThrottled        prometheus.Counter

	// Connectivity Metrics - Device and backend reachability
	connectivityOnline prometheus.Gauge
	backendReachable   prometheus.Gauge
	connectivityChecks prometheus.Counter
	pingLatency        prometheus.Histogram
	pingFailures       prometheus.Counter

	// History Metrics - Audit trail persistence
	historyWrites      prometheus.Counter
	historyWriteErrors prometheus.Counter

	// Journal Metrics - Audit spool between the machine and the store
	journalEnqueued     prometheus.Counter
	journalDropped      *prometheus.CounterVec
	journalDrained      prometheus.Counter
	journalDepth        prometheus.Gauge
	journalDrainLatency prometheus.Histogram

	// Risk Index Metrics - Ranked area store health
	indexAreasTracked     prometheus.Gauge
	indexUpdates          prometheus.Counter
	indexUpdateLatency    prometheus.Histogram
	indexQueryLatency     prometheus.Histogram
	indexSnapshots        prometheus.Counter
	indexSnapshotDuration prometheus.Histogram
	indexEvictions        prometheus.Counter

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "aegis",
		subsystem:        "safety",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		metricPrefix:     "",
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	// Initialize metrics
	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	// Ensure metrics are registered on the configured registry (custom by default)
	auto := promauto.With(m.registry)

	// Tracking Metrics - Location stream health
	m.samplesEmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "location_samples_emitted_total",
		Help:      "Total number of location samples delivered to subscribers",
	})

	m.samplesRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "location_samples_rejected_total",
			Help:      "Total number of device fixes rejected before delivery",
		},
		[]string{"reason"},
	)

	m.activeStreams = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracking_active_streams",
		Help:      "Current number of active tracking streams",
	})

	m.sampleAccuracy = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "location_sample_accuracy_meters",
		Help:      "Histogram of accepted fix accuracy radii in meters",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000},
	})

	// Scoring Metrics - Safety reading computation
	m.readingsComputed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "safety_readings_computed_total",
		Help:      "Total number of safety readings computed",
	})

	m.readingsDegraded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "safety_readings_degraded_total",
		Help:      "Total number of readings computed with at least one factor excluded",
	})

	m.scoringLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_latency_milliseconds",
		Help:      "Histogram of safety reading computation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.safetyScore = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "safety_score_current",
		Help:      "Most recently computed overall safety score (0-100)",
	})

	m.scoreConfidence = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "safety_score_confidence",
		Help:      "Confidence of the most recent safety reading (20-95)",
	})

	m.scoreCacheHits = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_cache_hits_total",
		Help:      "Total number of safety readings served from cache",
	})

	m.scoreCacheMisses = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score_cache_misses_total",
		Help:      "Total number of safety readings computed fresh",
	})

	m.advisoryCalls = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "advisory_calls_total",
			Help:      "Total number of external advisory calls by outcome",
		},
		[]string{"outcome"},
	)

	m.advisoryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "advisory_latency_milliseconds",
		Help:      "Histogram of external advisory call latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Alert Metrics - Lifecycle transitions
	m.alertsTriggered = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_triggered_total",
		Help:      "Total number of alerts triggered",
	})

	m.alertsCancelled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_cancelled_total",
		Help:      "Total number of alerts cancelled by their owner",
	})

	m.alertsResolved = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_resolved_total",
		Help:      "Total number of alerts resolved",
	})

	m.transitionsRejected = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "alert_transitions_rejected_total",
			Help:      "Total number of rejected lifecycle transitions by reason",
		},
		[]string{"reason"},
	)

	m.activeAlerts = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_active",
		Help:      "Current number of active alerts",
	})

	m.alertResponses = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "alert_responses_total",
			Help:      "Total number of recipient responses by kind",
		},
		[]string{"kind"},
	)

	m.countdownsAborted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alert_countdowns_aborted_total",
		Help:      "Total number of armed countdowns cancelled before trigger",
	})

	// Delivery Metrics - Outbound alert traffic
	m.deliveryAttempts = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_attempts_total",
		Help:      "Total number of outbound delivery attempts",
	})

	m.deliveryFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_failures_total",
		Help:      "Total number of failed delivery attempts",
	})

	m.deliveryRetries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_retries_total",
		Help:      "Total number of delivery retries",
	})

	m.deliveryExhausted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_exhausted_total",
		Help:      "Total number of deliveries that exhausted their retry budget",
	})

	m.deliveryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_latency_milliseconds",
		Help:      "Histogram of delivery attempt latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Notification Metrics - Escalation pipeline
	m.notificationsRaised = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "notifications_raised_total",
			Help:      "Total number of notifications raised by priority",
		},
		[]string{"priority"},
	)

	m.notificationsDeduped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_deduped_total",
		Help:      "Total number of notifications suppressed by the dedupe window",
	})

	m.notificationsExpired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_expired_total",
		Help:      "Total number of notifications auto-expired from display",
	})

	m.notificationsDismissed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notifications_dismissed_total",
		Help:      "Total number of notifications explicitly dismissed",
	})

	m.centerBacklog = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_center_backlog",
		Help:      "Current number of notifications retained in the center",
	})

	m.soundsPlayed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_sounds_played_total",
		Help:      "Total number of audible alerts played",
	})

	m.soundsThrottled = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "notification_sounds_throttled_total",
		Help:      "Total number of audible alerts suppressed by the throttle",
	})

	// Connectivity Metrics - Device and backend reachability
	m.connectivityOnline = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "connectivity_online",
		Help:      "Whether the device currently has a usable network transport (0/1)",
	})

	m.backendReachable = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "connectivity_backend_reachable",
		Help:      "Whether the alert backend answered the last probe (0/1)",
	})

	m.connectivityChecks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "connectivity_checks_total",
		Help:      "Total number of connectivity probe cycles",
	})

	m.pingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "connectivity_ping_latency_milliseconds",
		Help:      "Histogram of backend probe latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.pingFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "connectivity_ping_failures_total",
		Help:      "Total number of failed backend probes",
	})

	// History Metrics - Audit trail persistence
	m.historyWrites = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_writes_total",
		Help:      "Total number of audit trail rows written",
	})

	m.historyWriteErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "history_write_errors_total",
		Help:      "Total number of audit trail write failures",
	})

	// Journal Metrics - Audit spool between the machine and the store
	m.journalEnqueued = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_entries_enqueued_total",
		Help:      "Total number of audit entries spooled for persistence",
	})

	m.journalDropped = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "journal_entries_dropped_total",
			Help:      "Total number of audit entries dropped before persistence",
		},
		[]string{"reason"},
	)

	m.journalDrained = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_entries_drained_total",
		Help:      "Total number of spooled audit entries written to the store",
	})

	m.journalDepth = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_depth",
		Help:      "Current number of audit entries waiting in the spool",
	})

	m.journalDrainLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "journal_drain_latency_milliseconds",
		Help:      "Histogram of per-entry drain latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	// Risk Index Metrics - Ranked area store health
	m.indexAreasTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_areas_tracked",
		Help:      "Current number of areas held by the risk index",
	})

	m.indexUpdates = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_updates_total",
		Help:      "Total number of area score updates applied to the risk index",
	})

	m.indexUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_update_latency_milliseconds",
		Help:      "Histogram of risk index update latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.indexQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_query_latency_milliseconds",
		Help:      "Histogram of risk index rank and listing query latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.indexSnapshots = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_snapshots_published_total",
		Help:      "Total number of risk index snapshots published",
	})

	m.indexSnapshotDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_snapshot_rebuild_milliseconds",
		Help:      "Histogram of risk index snapshot rebuild duration in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.indexEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "risk_index_evictions_total",
		Help:      "Total number of stale areas evicted from the risk index",
	})

	// HTTP Performance Metrics - User experience indicators
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
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	// Enhanced Error Metrics - Detailed error tracking
	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	// System Performance Metrics
	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// Tracking Metrics Functions.

// RecordSampleEmitted increments the emitted samples counter.
func RecordSampleEmitted() {
	globalManager.samplesEmitted.Inc()
}

// RecordSampleRejected increments the rejected fixes counter for a reason.
func RecordSampleRejected(reason string) {
	globalManager.samplesRejected.WithLabelValues(reason).Inc()
}

// UpdateActiveStreams sets the current number of tracking streams.
func UpdateActiveStreams(count int) {
	globalManager.activeStreams.Set(float64(count))
}

// RecordSampleAccuracy records the accuracy radius of an accepted fix.
func RecordSampleAccuracy(meters float64) {
	globalManager.sampleAccuracy.Observe(meters)
}

// Scoring Metrics Functions.

// RecordReadingComputed increments the computed readings counter.
func RecordReadingComputed() {
	globalManager.readingsComputed.Inc()
}

// RecordReadingDegraded increments the degraded readings counter.
func RecordReadingDegraded() {
	globalManager.readingsDegraded.Inc()
}

// RecordScoringLatency records reading computation latency in milliseconds.
func RecordScoringLatency(latencyMs float64) {
	globalManager.scoringLatency.Observe(latencyMs)
}

// UpdateSafetyScore sets the most recent overall safety score.
func UpdateSafetyScore(score int) {
	globalManager.safetyScore.Set(float64(score))
}

// UpdateScoreConfidence sets the most recent reading confidence.
func UpdateScoreConfidence(confidence int) {
	globalManager.scoreConfidence.Set(float64(confidence))
}

// RecordScoreCacheHit increments the cache hit counter.
func RecordScoreCacheHit() {
	globalManager.scoreCacheHits.Inc()
}

// RecordScoreCacheMiss increments the cache miss counter.
func RecordScoreCacheMiss() {
	globalManager.scoreCacheMisses.Inc()
}

// RecordAdvisoryCall increments the advisory call counter for an outcome.
func RecordAdvisoryCall(outcome string) {
	globalManager.advisoryCalls.WithLabelValues(outcome).Inc()
}

// RecordAdvisoryLatency records advisory call latency in milliseconds.
func RecordAdvisoryLatency(latencyMs float64) {
	globalManager.advisoryLatency.Observe(latencyMs)
}

// Alert Metrics Functions.

// RecordAlertTriggered increments the triggered alerts counter.
func RecordAlertTriggered() {
	globalManager.alertsTriggered.Inc()
}

// RecordAlertCancelled increments the cancelled alerts counter.
func RecordAlertCancelled() {
	globalManager.alertsCancelled.Inc()
}

// RecordAlertResolved increments the resolved alerts counter.
func RecordAlertResolved() {
	globalManager.alertsResolved.Inc()
}

// RecordTransitionRejected increments the rejected transitions counter.
func RecordTransitionRejected(reason string) {
	globalManager.transitionsRejected.WithLabelValues(reason).Inc()
}

// UpdateActiveAlerts sets the current number of active alerts.
func UpdateActiveAlerts(count int) {
	globalManager.activeAlerts.Set(float64(count))
}

// RecordAlertResponse increments the response counter for a kind.
func RecordAlertResponse(kind string) {
	globalManager.alertResponses.WithLabelValues(kind).Inc()
}

// RecordCountdownAborted increments the aborted countdowns counter.
func RecordCountdownAborted() {
	globalManager.countdownsAborted.Inc()
}

// Delivery Metrics Functions.

// RecordDeliveryAttempt increments the delivery attempts counter.
func RecordDeliveryAttempt() {
	globalManager.deliveryAttempts.Inc()
}

// RecordDeliveryFailure increments the delivery failures counter.
func RecordDeliveryFailure() {
	globalManager.deliveryFailures.Inc()
}

// RecordDeliveryRetry increments the delivery retries counter.
func RecordDeliveryRetry() {
	globalManager.deliveryRetries.Inc()
}

// RecordDeliveryExhausted increments the exhausted deliveries counter.
func RecordDeliveryExhausted() {
	globalManager.deliveryExhausted.Inc()
}

// RecordDeliveryLatency records delivery attempt latency in milliseconds.
func RecordDeliveryLatency(latencyMs float64) {
	globalManager.deliveryLatency.Observe(latencyMs)
}

// Notification Metrics Functions.

// RecordNotificationRaised increments the raised notifications counter.
func RecordNotificationRaised(priority string) {
	globalManager.notificationsRaised.WithLabelValues(priority).Inc()
}

// RecordNotificationDeduped increments the deduped notifications counter.
func RecordNotificationDeduped() {
	globalManager.notificationsDeduped.Inc()
}

// RecordNotificationExpired increments the expired notifications counter.
func RecordNotificationExpired() {
	globalManager.notificationsExpired.Inc()
}

// RecordNotificationDismissed increments the dismissed notifications counter.
func RecordNotificationDismissed() {
	globalManager.notificationsDismissed.Inc()
}

// UpdateCenterBacklog sets the current notification center backlog.
func UpdateCenterBacklog(count int) {
	globalManager.centerBacklog.Set(float64(count))
}

// RecordSoundPlayed increments the played sounds counter.
func RecordSoundPlayed() {
	globalManager.soundsPlayed.Inc()
}

// RecordSoundThrottled increments the throttled sounds counter.
func RecordSoundThrottled() {
	globalManager.soundsThrottled.Inc()
}

// Connectivity Metrics Functions.

// UpdateConnectivityOnline sets the device transport gauge.
func UpdateConnectivityOnline(online bool) {
	if online {
		globalManager.connectivityOnline.Set(1)
	} else {
		globalManager.connectivityOnline.Set(0)
	}
}

// UpdateBackendReachable sets the backend reachability gauge.
func UpdateBackendReachable(reachable bool) {
	if reachable {
		globalManager.backendReachable.Set(1)
	} else {
		globalManager.backendReachable.Set(0)
	}
}

// RecordConnectivityCheck increments the probe cycle counter.
func RecordConnectivityCheck() {
	globalManager.connectivityChecks.Inc()
}

// RecordPingLatency records backend probe latency in milliseconds.
func RecordPingLatency(latencyMs float64) {
	globalManager.pingLatency.Observe(latencyMs)
}

// RecordPingFailure increments the failed probe counter.
func RecordPingFailure() {
	globalManager.pingFailures.Inc()
}

// History Metrics Functions.

// RecordHistoryWrite increments the audit write counter.
func RecordHistoryWrite() {
	globalManager.historyWrites.Inc()
}

// RecordHistoryWriteError increments the audit write failure counter.
func RecordHistoryWriteError() {
	globalManager.historyWriteErrors.Inc()
}

// Journal Metrics Functions.

// RecordJournalEnqueued increments the spooled entries counter.
func RecordJournalEnqueued() {
	globalManager.journalEnqueued.Inc()
}

// RecordJournalDropped increments the dropped entries counter for a reason.
func RecordJournalDropped(reason string) {
	globalManager.journalDropped.WithLabelValues(reason).Inc()
}

// RecordJournalDrained increments the drained entries counter.
func RecordJournalDrained() {
	globalManager.journalDrained.Inc()
}

// UpdateJournalDepth sets the spool depth gauge.
func UpdateJournalDepth(depth int) {
	globalManager.journalDepth.Set(float64(depth))
}

// RecordJournalDrainLatency records one per-entry drain duration in milliseconds.
func RecordJournalDrainLatency(latencyMs float64) {
	globalManager.journalDrainLatency.Observe(latencyMs)
}

// Risk Index Metrics Functions.

// UpdateIndexedAreas sets the current number of areas in the risk index.
func UpdateIndexedAreas(count int) {
	globalManager.indexAreasTracked.Set(float64(count))
}

// RecordIndexUpdate increments the applied index updates counter.
func RecordIndexUpdate() {
	globalManager.indexUpdates.Inc()
}

// RecordIndexUpdateLatency records one index update duration in milliseconds.
func RecordIndexUpdateLatency(latencyMs float64) {
	globalManager.indexUpdateLatency.Observe(latencyMs)
}

// RecordIndexQueryLatency records one rank or listing query duration in milliseconds.
func RecordIndexQueryLatency(latencyMs float64) {
	globalManager.indexQueryLatency.Observe(latencyMs)
}

// RecordIndexSnapshotPublished increments the published snapshots counter.
func RecordIndexSnapshotPublished() {
	globalManager.indexSnapshots.Inc()
}

// RecordIndexSnapshotDuration records one snapshot rebuild duration in milliseconds.
func RecordIndexSnapshotDuration(durationMs float64) {
	globalManager.indexSnapshotDuration.Observe(durationMs)
}

// RecordIndexEvictions adds evicted areas to the eviction counter.
func RecordIndexEvictions(count int) {
	if count > 0 {
		globalManager.indexEvictions.Add(float64(count))
	}
}

// HTTP Metrics Functions.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// Enhanced Error Metrics Functions.

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System Performance Metrics Functions.

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
