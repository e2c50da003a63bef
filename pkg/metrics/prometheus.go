// Package metrics provides Prometheus metrics for the vigil detection
// pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the pipeline.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Cycle and capture metrics
	cycles        prometheus.Counter
	cycleDuration prometheus.Histogram
	framesCaptured prometheus.Counter
	framesDropped  prometheus.Counter

	// Detection metrics
	detectorErrors prometheus.Counter
	windowsPresent prometheus.Counter
	episodeActive  prometheus.Gauge
	episodesTotal  prometheus.Counter

	// Alert metrics
	alertsFired       prometheus.Counter
	alertsDelivered   *prometheus.CounterVec
	deliveryErrors    *prometheus.CounterVec
	deliveryLatency   *prometheus.HistogramVec
	dispatchQueueSize prometheus.Gauge
	dispatchDropped   prometheus.Counter

	// Compression metrics
	compressionIterations prometheus.Histogram
	compressedBytes       prometheus.Histogram

	// HTTP and live feed metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	liveClients         prometheus.Gauge
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
		namespace:        "vigil",
		subsystem:        "pipeline",
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

	m.cycles = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycles_total",
		Help:      "Completed sample/detect/step cycles.",
	})
	m.cycleDuration = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "cycle_duration_seconds",
		Help:      "Wall-clock duration of one full cycle.",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
	})
	m.framesCaptured = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_captured_total",
		Help:      "Frames successfully read from the source.",
	})
	m.framesDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "frames_dropped_total",
		Help:      "Frame reads that failed and were skipped.",
	})

	m.detectorErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "detector_errors_total",
		Help:      "Per-frame detector failures absorbed as no-detection.",
	})
	m.windowsPresent = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "windows_present_total",
		Help:      "Sampling windows in which the target class was present.",
	})
	m.episodeActive = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "episode_active",
		Help:      "1 while a detection episode is in progress.",
	})
	m.episodesTotal = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "episodes_total",
		Help:      "Detection episodes started (idle to pending transitions).",
	})

	m.alertsFired = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_fired_total",
		Help:      "Episodes that crossed the debounce threshold.",
	})
	m.alertsDelivered = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_delivered_total",
		Help:      "Successful sink deliveries by channel.",
	}, []string{"channel"})
	m.deliveryErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_errors_total",
		Help:      "Failed sink deliveries by channel.",
	}, []string{"channel"})
	m.deliveryLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "delivery_latency_ms",
		Help:      "Sink delivery latency in milliseconds by channel.",
		Buckets:   m.histogramBuckets,
	}, []string{"channel"})
	m.dispatchQueueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_queue_size",
		Help:      "Alert events waiting for the dispatch worker.",
	})
	m.dispatchDropped = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "dispatch_dropped_total",
		Help:      "Alert events dropped because the dispatch queue was full.",
	})

	m.compressionIterations = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compression_iterations",
		Help:      "Encode attempts per evidence image.",
		Buckets:   prometheus.LinearBuckets(1, 2, 9),
	})
	m.compressedBytes = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "compressed_bytes",
		Help:      "Final evidence image size in bytes.",
		Buckets:   prometheus.ExponentialBuckets(1024, 2, 12),
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by endpoint, method and status.",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "request_duration_ms",
		Help:      "HTTP request duration in milliseconds.",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
	m.liveClients = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: "http",
		Name:      "live_clients",
		Help:      "Connected live feed websocket clients.",
	})
}

// Package-level helpers operating on the global manager.

// RecordCycle records a completed cycle and its duration.
func RecordCycle(seconds float64) {
	globalManager.cycles.Inc()
	globalManager.cycleDuration.Observe(seconds)
}

// RecordFrameCaptured counts a successful frame read.
func RecordFrameCaptured() { globalManager.framesCaptured.Inc() }

// RecordFrameDropped counts a skipped frame read.
func RecordFrameDropped() { globalManager.framesDropped.Inc() }

// RecordDetectorError counts an absorbed per-frame detector failure.
func RecordDetectorError() { globalManager.detectorErrors.Inc() }

// RecordWindowPresent counts a window with the target class present.
func RecordWindowPresent() { globalManager.windowsPresent.Inc() }

// RecordEpisodeStarted counts an idle-to-pending transition.
func RecordEpisodeStarted() { globalManager.episodesTotal.Inc() }

// UpdateEpisodeActive flags whether an episode is currently in progress.
func UpdateEpisodeActive(active bool) {
	if active {
		globalManager.episodeActive.Set(1)
		return
	}
	globalManager.episodeActive.Set(0)
}

// RecordAlertFired counts a threshold crossing.
func RecordAlertFired() { globalManager.alertsFired.Inc() }

// RecordAlertDelivered counts a successful delivery on channel
// ("text" or "image").
func RecordAlertDelivered(channel string) {
	globalManager.alertsDelivered.WithLabelValues(channel).Inc()
}

// RecordDeliveryError counts a failed delivery on channel.
func RecordDeliveryError(channel string) {
	globalManager.deliveryErrors.WithLabelValues(channel).Inc()
}

// RecordDeliveryLatency records delivery latency for channel.
func RecordDeliveryLatency(channel string, latencyMs float64) {
	globalManager.deliveryLatency.WithLabelValues(channel).Observe(latencyMs)
}

// UpdateDispatchQueueSize sets the current dispatch backlog.
func UpdateDispatchQueueSize(size int) {
	globalManager.dispatchQueueSize.Set(float64(size))
}

// RecordDispatchDropped counts an alert dropped on queue overflow.
func RecordDispatchDropped() { globalManager.dispatchDropped.Inc() }

// RecordCompression records one compression run.
func RecordCompression(iterations, bytes int) {
	globalManager.compressionIterations.Observe(float64(iterations))
	globalManager.compressedBytes.Observe(float64(bytes))
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// UpdateLiveClients sets the connected live feed client count.
func UpdateLiveClients(count int) {
	globalManager.liveClients.Set(float64(count))
}

// GetRegistry returns the custom registry for the metrics endpoint.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
