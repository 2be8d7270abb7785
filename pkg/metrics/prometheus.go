// Package metrics provides Prometheus metrics for the matchwise service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every collector exported by the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Matching
	recommendationsServed *prometheus.CounterVec
	candidatesCollected   *prometheus.CounterVec
	collectLatency        prometheus.Histogram
	embeddingBackfills    *prometheus.CounterVec
	messagesWritten       *prometheus.CounterVec

	// Text generation
	generationOutcomes *prometheus.CounterVec
	generationLatency  *prometheus.HistogramVec
	breakerState       *prometheus.GaugeVec

	// Trigger pipeline
	triggersDuplicate       prometheus.Counter
	queueSize               prometheus.Gauge
	queueCapacity           prometheus.Gauge
	queueUtilization        prometheus.Gauge
	queueEnqueueRate        prometheus.Counter
	queueDequeueRate        prometheus.Counter
	queueEnqueueErrors      prometheus.Counter
	queueProcessingLatency  prometheus.Histogram
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec
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
		namespace:        "matchwise",
		subsystem:        "matching",
		histogramBuckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
	}, labels)
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.recommendationsServed = m.counterVec("recommendations_served_total",
		"Recommendation lists produced, by flow", "flow")
	m.candidatesCollected = m.counterVec("candidates_collected_total",
		"Candidates emitted by the collector, by source pool", "source")
	m.collectLatency = m.histogram("collect_latency_milliseconds",
		"Time spent scanning and scoring both pools")
	m.embeddingBackfills = m.counterVec("embedding_backfills_total",
		"Lazy template embedding backfills, by outcome", "outcome")
	m.messagesWritten = m.counterVec("messages_written_total",
		"Inbox messages written, by type", "type")

	m.generationOutcomes = m.counterVec("generation_outcomes_total",
		"Text generation attempts, by operation, tier and outcome", "operation", "tier", "outcome")
	m.generationLatency = m.histogramVec("generation_latency_milliseconds",
		"Text generation attempt latency", "operation", "tier")
	m.breakerState = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: "breaker_state",
		Help: "Circuit breaker state (0 closed, 1 half-open, 2 open)",
	}, []string{"name"})

	m.triggersDuplicate = m.counter("triggers_duplicate_total",
		"Profile-created triggers dropped as repeated deliveries")
	m.queueSize = m.gauge("queue_size", "Current size of the trigger queue")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum trigger queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue utilization ratio (current size / capacity)")
	m.queueEnqueueRate = m.counter("queue_enqueue_total", "Total number of triggers enqueued")
	m.queueDequeueRate = m.counter("queue_dequeue_total", "Total number of triggers dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of enqueue errors")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds")
	m.workerCount = m.gauge("worker_count", "Current number of trigger workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Trigger handling latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of trigger handling errors")

	m.httpRequests = m.counterVec("http_requests_total",
		"Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds",
		"HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorRateByComponent = m.counterVec("errors_by_component_total",
		"Total number of errors by component", "component", "error_type")
	m.errorRateByType = m.counterVec("errors_by_type_total",
		"Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total",
		"Total number of errors by endpoint", "endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds",
		"Latency of operations that resulted in errors", "component", "error_type")
}

// RecordRecommendationsServed counts one produced recommendation list.
func RecordRecommendationsServed(flow string) {
	globalManager.recommendationsServed.WithLabelValues(flow).Inc()
}

// RecordCandidatesCollected adds n candidates from the given pool.
func RecordCandidatesCollected(source string, n int) {
	globalManager.candidatesCollected.WithLabelValues(source).Add(float64(n))
}

// RecordCollectLatency records a full collector pass in milliseconds.
func RecordCollectLatency(latencyMs float64) {
	globalManager.collectLatency.Observe(latencyMs)
}

// RecordEmbeddingBackfill counts a backfill with outcome hit, stored, skipped or failed.
func RecordEmbeddingBackfill(outcome string) {
	globalManager.embeddingBackfills.WithLabelValues(outcome).Inc()
}

// RecordMessageWritten counts one inbox message.
func RecordMessageWritten(kind string) {
	globalManager.messagesWritten.WithLabelValues(kind).Inc()
}

// RecordGeneration records one text generation attempt.
func RecordGeneration(operation, tier, outcome string, latencyMs float64) {
	globalManager.generationOutcomes.WithLabelValues(operation, tier, outcome).Inc()
	globalManager.generationLatency.WithLabelValues(operation, tier).Observe(latencyMs)
}

// UpdateBreakerState publishes a breaker state as 0 closed, 1 half-open, 2 open.
func UpdateBreakerState(name string, state int) {
	globalManager.breakerState.WithLabelValues(name).Set(float64(state))
}

// RecordTriggerDuplicate increments the duplicate trigger counter.
func RecordTriggerDuplicate() {
	globalManager.triggersDuplicate.Inc()
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueRate.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueRate.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
