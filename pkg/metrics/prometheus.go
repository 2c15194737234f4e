// Package metrics provides Prometheus metrics for the hush scoring agent.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Modality labels.
const (
	ModalityText   = "text"
	ModalityTyping = "typing"
	ModalityVoice  = "voice"
)

// Submission result labels.
const (
	SubmissionOK      = "ok"
	SubmissionFailed  = "failed"
	SubmissionDropped = "dropped"
)

// defaultScoreBuckets covers the normalized [0,1] score range in tenths.
var defaultScoreBuckets = []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0} //nolint:gochecknoglobals // fixed bucket layout

// Manager manages all Prometheus metrics for the agent.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	scoreBuckets     []float64
	registry         prometheus.Registerer

	// Scoring
	analyses           *prometheus.CounterVec
	insufficientSignal *prometheus.CounterVec
	scores             *prometheus.HistogramVec
	analysisLatency    *prometheus.HistogramVec

	// Typing sessions
	activeSessions prometheus.Gauge
	keystrokes     prometheus.Counter
	resolveErrors  prometheus.Counter

	// Voice capture
	recordings        prometheus.Counter
	deviceUnavailable prometheus.Counter
	decodeErrors      prometheus.Counter

	// Journal and submission
	journalSaves      prometheus.Counter
	journalDuplicates prometheus.Counter
	submissions       *prometheus.CounterVec
	submissionLatency prometheus.Histogram

	// Queue
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge
	queueEnqueued    prometheus.Counter
	queueDequeued    prometheus.Counter
	queueRejected    prometheus.Counter

	// Workers
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorsByEndpoint    *prometheus.CounterVec
	errorsByComponent   *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // keeps default Go collectors out

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager. All metrics are registered on the
// configured registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "hush",
		subsystem:        "agent",
		histogramBuckets: prometheus.DefBuckets,
		scoreBuckets:     defaultScoreBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	})
}

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, Buckets: buckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric
	auto := promauto.With(m.registry)

	m.analyses = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analyses_total",
		Help:      "Total number of analyzer runs by modality",
	}, []string{"modality"})

	m.insufficientSignal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "insufficient_signal_total",
		Help:      "Analyzer runs that fell back to a zero score for lack of signal",
	}, []string{"modality"})

	m.scores = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "score",
		Help:      "Distribution of normalized analyzer scores",
		Buckets:   m.scoreBuckets,
	}, []string{"modality"})

	m.analysisLatency = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "analysis_latency_milliseconds",
		Help:      "Analyzer latency in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"modality"})

	m.activeSessions = m.gauge("typing_sessions_active", "Number of active composition sessions (0 or 1)")
	m.keystrokes = m.counter("keystrokes_total", "Keydown events observed while listening")
	m.resolveErrors = m.counter("surface_resolve_errors_total", "Input surfaces that could not be resolved")

	m.recordings = m.counter("voice_recordings_total", "Completed voice recordings")
	m.deviceUnavailable = m.counter("voice_device_unavailable_total", "Recordings refused because the device was unavailable")
	m.decodeErrors = m.counter("voice_decode_errors_total", "Voice samples that failed to decode")

	m.journalSaves = m.counter("journal_saves_total", "Journal entries saved locally")
	m.journalDuplicates = m.counter("journal_duplicates_total", "Journal submissions ignored as duplicates")
	m.submissions = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "submissions_total",
		Help:      "Attribution submissions by result",
	}, []string{"result"})
	m.submissionLatency = m.histogram("submission_latency_milliseconds", "Backend submission latency in milliseconds", m.histogramBuckets)

	m.queueSize = m.gauge("queue_size", "Current size of the submission queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the submission queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Submission queue utilization (0.0 to 1.0)")
	m.queueEnqueued = m.counter("queue_enqueued_total", "Jobs enqueued")
	m.queueDequeued = m.counter("queue_dequeued_total", "Jobs dequeued")
	m.queueRejected = m.counter("queue_rejected_total", "Jobs rejected by the queue")

	m.workerCount = m.gauge("worker_count", "Number of submission workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Job processing latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Jobs that ended in an error")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByEndpoint = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_endpoint_total",
		Help:      "HTTP errors by endpoint, method and error type",
	}, []string{"endpoint", "method", "error_type"})

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "errors_by_component_total",
		Help:      "Errors by component and error type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// RecordAnalysis records one analyzer run with its score and latency.
func RecordAnalysis(modality string, score, latencyMs float64) {
	globalManager.analyses.WithLabelValues(modality).Inc()
	globalManager.scores.WithLabelValues(modality).Observe(score)
	globalManager.analysisLatency.WithLabelValues(modality).Observe(latencyMs)
}

// RecordInsufficientSignal counts a zero-score fallback.
func RecordInsufficientSignal(modality string) {
	globalManager.insufficientSignal.WithLabelValues(modality).Inc()
}

// UpdateActiveSessions sets the active composition session gauge.
func UpdateActiveSessions(n int) {
	globalManager.activeSessions.Set(float64(n))
}

// RecordKeystroke counts an observed keydown.
func RecordKeystroke() {
	globalManager.keystrokes.Inc()
}

// RecordSurfaceResolveError counts a failed surface resolution.
func RecordSurfaceResolveError() {
	globalManager.resolveErrors.Inc()
}

// RecordVoiceRecording counts a finished recording.
func RecordVoiceRecording() {
	globalManager.recordings.Inc()
}

// RecordDeviceUnavailable counts a refused recording.
func RecordDeviceUnavailable() {
	globalManager.deviceUnavailable.Inc()
}

// RecordDecodeError counts a sample that failed to decode.
func RecordDecodeError() {
	globalManager.decodeErrors.Inc()
}

// RecordJournalSave counts a locally saved entry.
func RecordJournalSave() {
	globalManager.journalSaves.Inc()
}

// RecordJournalDuplicate counts an idempotent replay of a journal submit.
func RecordJournalDuplicate() {
	globalManager.journalDuplicates.Inc()
}

// RecordSubmission counts a submission outcome.
func RecordSubmission(result string) {
	globalManager.submissions.WithLabelValues(result).Inc()
}

// RecordSubmissionLatency records backend round-trip latency.
func RecordSubmissionLatency(latencyMs float64) {
	globalManager.submissionLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the queue size gauge.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity gauge.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization gauge.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue counts an enqueued job.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue counts a dequeued job.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueRejected counts a rejected job.
func RecordQueueRejected() {
	globalManager.queueRejected.Inc()
}

// UpdateWorkerCount sets the worker count gauge.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records job latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed job.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records an HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// RecordErrorByEndpoint counts an HTTP error.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorByComponent counts an internal error.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets the memory gauge.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine gauge.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records an average GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
