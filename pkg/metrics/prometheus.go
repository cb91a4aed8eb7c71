// Package metrics provides Prometheus metrics for the clerb service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every Prometheus collector exposed by clerb.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Club activity
	booksAdded      prometheus.Counter
	booksByStatus   *prometheus.GaugeVec
	ratingsRecorded *prometheus.CounterVec
	meetingsChanged *prometheus.CounterVec

	// Spine colors
	colorJobsProcessed prometheus.Counter
	colorJobsDuplicate prometheus.Counter
	colorJobsFallback  prometheus.Counter
	colorExtractLatency prometheus.Histogram

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueEnqueueTotal      prometheus.Counter
	queueDequeueTotal      prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Catalog lookups
	catalogRequests *prometheus.CounterVec
	catalogLatency  *prometheus.HistogramVec

	// Cache
	cacheLookups *prometheus.CounterVec

	// Change feed
	changesPublished  prometheus.Counter
	changesDropped    prometheus.Counter
	changeSubscribers prometheus.Gauge

	// Repository
	repositoryQueryLatency *prometheus.HistogramVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "clerb",
		subsystem:        "club",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      name,
		Help:      help,
		Buckets:   m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.booksAdded = m.counter("books_added_total", "Total number of books added to the shelf")
	m.booksByStatus = promauto.With(m.registry).NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "books",
		Help:      "Number of books on the shelf by status",
	}, []string{"status"})
	m.ratingsRecorded = m.counterVec("ratings_recorded_total", "Ratings written by phase", "phase")
	m.meetingsChanged = m.counterVec("meetings_changed_total", "Meeting writes by operation", "op")

	m.colorJobsProcessed = m.counter("color_jobs_processed_total", "Spine color jobs completed")
	m.colorJobsDuplicate = m.counter("color_jobs_duplicate_total", "Spine color jobs skipped because one was already pending")
	m.colorJobsFallback = m.counter("color_jobs_fallback_total", "Spine color jobs that fell back to the palette")
	m.colorExtractLatency = m.histogram("color_extract_latency_milliseconds", "Dominant color extraction latency in milliseconds")

	m.queueSize = m.gauge("queue_size", "Current number of pending spine color jobs")
	m.queueCapacity = m.gauge("queue_capacity", "Maximum number of pending spine color jobs")
	m.queueEnqueueTotal = m.counter("queue_enqueue_total", "Total number of jobs enqueued")
	m.queueDequeueTotal = m.counter("queue_dequeue_total", "Total number of jobs dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Total number of rejected enqueues")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Enqueue latency in milliseconds")

	m.workerActiveCount = m.gauge("worker_active_count", "Number of running spine color workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Per-job worker latency in milliseconds")
	m.workerErrors = m.counter("worker_errors_total", "Total number of worker errors")

	m.catalogRequests = m.counterVec("catalog_requests_total", "Outbound catalog requests by provider and outcome", "provider", "outcome")
	m.catalogLatency = m.histogramVec("catalog_latency_milliseconds", "Outbound catalog latency in milliseconds", "provider")

	m.cacheLookups = m.counterVec("cache_lookups_total", "Cache lookups by result", "result")

	m.changesPublished = m.counter("changes_published_total", "Change notifications published")
	m.changesDropped = m.counter("changes_dropped_total", "Change notifications dropped for slow subscribers")
	m.changeSubscribers = m.gauge("change_subscribers", "Current number of change feed subscribers")

	m.repositoryQueryLatency = m.histogramVec("repository_query_latency_milliseconds", "Repository operation latency in milliseconds", "op")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
}

// RecordBookAdded increments the books added counter.
func RecordBookAdded() {
	globalManager.booksAdded.Inc()
}

// UpdateBooksByStatus sets the shelf size for a status.
func UpdateBooksByStatus(status string, count int) {
	globalManager.booksByStatus.WithLabelValues(status).Set(float64(count))
}

// RecordRating counts a rating write; phase is "pre" or "post".
func RecordRating(phase string) {
	globalManager.ratingsRecorded.WithLabelValues(phase).Inc()
}

// RecordMeetingChange counts a meeting create, update or delete.
func RecordMeetingChange(op string) {
	globalManager.meetingsChanged.WithLabelValues(op).Inc()
}

// RecordColorJobProcessed increments the processed spine color job counter.
func RecordColorJobProcessed() {
	globalManager.colorJobsProcessed.Inc()
}

// RecordColorJobDuplicate increments the duplicate spine color job counter.
func RecordColorJobDuplicate() {
	globalManager.colorJobsDuplicate.Inc()
}

// RecordColorJobFallback increments the palette fallback counter.
func RecordColorJobFallback() {
	globalManager.colorJobsFallback.Inc()
}

// RecordColorExtractLatency records extraction latency in milliseconds.
func RecordColorExtractLatency(latencyMs float64) {
	globalManager.colorExtractLatency.Observe(latencyMs)
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueueTotal.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeueTotal.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordQueueProcessingLatency records queue processing latency.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records worker processing latency.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordCatalogRequest counts an outbound catalog request.
func RecordCatalogRequest(provider, outcome string) {
	globalManager.catalogRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordCatalogLatency records outbound catalog latency.
func RecordCatalogLatency(provider string, latencyMs float64) {
	globalManager.catalogLatency.WithLabelValues(provider).Observe(latencyMs)
}

// RecordCacheLookup counts a cache hit or miss.
func RecordCacheLookup(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	globalManager.cacheLookups.WithLabelValues(result).Inc()
}

// RecordChangePublished increments the published change counter.
func RecordChangePublished() {
	globalManager.changesPublished.Inc()
}

// RecordChangeDropped increments the dropped change counter.
func RecordChangeDropped() {
	globalManager.changesDropped.Inc()
}

// UpdateChangeSubscribers sets the number of live subscribers.
func UpdateChangeSubscribers(count int) {
	globalManager.changeSubscribers.Set(float64(count))
}

// RecordRepositoryLatency records the latency of a repository operation.
func RecordRepositoryLatency(op string, latencyMs float64) {
	globalManager.repositoryQueryLatency.WithLabelValues(op).Observe(latencyMs)
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
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
