// Package metrics provides Prometheus metrics for the calendar planner.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the planner exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Scheduling runs
	runs               *prometheus.CounterVec
	runDuration        prometheus.Histogram
	runsCoalesced      prometheus.Counter
	phases             *prometheus.CounterVec
	tasksScheduled     prometheus.Counter
	tasksUnscheduled   prometheus.Counter
	tasksSkipped       prometheus.Counter
	freeBlocksDerived  prometheus.Counter
	recurrenceExpanded prometheus.Counter
	estimates          *prometheus.CounterVec
	knownUsers         prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Repository
	repositoryQueryLatency  prometheus.Histogram
	repositoryCommitLatency prometheus.Histogram
	repositoryRecords       *prometheus.GaugeVec

	// Queue
	queueSize              prometheus.Gauge
	queueCapacity          prometheus.Gauge
	queueUtilization       prometheus.Gauge
	queueEnqueued          prometheus.Counter
	queueDequeued          prometheus.Counter
	queueEnqueueErrors     prometheus.Counter
	queueProcessingLatency prometheus.Histogram

	// Workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	errorsByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // process-wide registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its collectors.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "calendar",
		subsystem:        "planner",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
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

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help,
		Buckets: m.histogramBuckets,
	})
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of collectors
	auto := promauto.With(m.registry)

	m.runs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "runs_total", Help: "Scheduling runs by outcome",
	}, []string{"outcome"})
	m.runDuration = m.histogram("run_duration_milliseconds", "Wall time of a scheduling run")
	m.runsCoalesced = m.counter("runs_coalesced_total", "Run requests dropped because one was already pending for the user")
	m.phases = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "allocation_phase_total", Help: "Allocation phase transitions",
	}, []string{"phase"})
	m.tasksScheduled = m.counter("tasks_scheduled_total", "Tasks placed into free time")
	m.tasksUnscheduled = m.counter("tasks_unscheduled_total", "Tasks no free block could fit")
	m.tasksSkipped = m.counter("tasks_skipped_total", "Tasks skipped for lack of an estimate")
	m.freeBlocksDerived = m.counter("free_blocks_derived_total", "Free blocks derived before assignment")
	m.recurrenceExpanded = m.counter("recurrence_instances_total", "Commitment occurrences expanded")
	m.estimates = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "estimates_total", Help: "Duration estimates by source",
	}, []string{"source"})
	m.knownUsers = m.gauge("users", "Users known to the store")

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_requests_total", Help: "HTTP requests by endpoint and method",
	}, []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "http_request_duration_milliseconds", Help: "HTTP request duration in milliseconds",
		Buckets: m.histogramBuckets,
	}, []string{"endpoint", "method", "status_code"})

	m.repositoryQueryLatency = m.histogram("repository_query_latency_milliseconds", "Store read latency")
	m.repositoryCommitLatency = m.histogram("repository_commit_latency_milliseconds", "Schedule commit latency")
	m.repositoryRecords = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "repository_records", Help: "Stored records by kind",
	}, []string{"kind"})

	m.queueSize = m.gauge("queue_size", "Run requests waiting in the queue")
	m.queueCapacity = m.gauge("queue_capacity", "Queue capacity")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Queue size over capacity")
	m.queueEnqueued = m.counter("queue_enqueue_total", "Run requests enqueued")
	m.queueDequeued = m.counter("queue_dequeue_total", "Run requests dequeued")
	m.queueEnqueueErrors = m.counter("queue_enqueue_errors_total", "Run requests rejected by a full queue")
	m.queueProcessingLatency = m.histogram("queue_processing_latency_milliseconds", "Time spent enqueuing")

	m.workerCount = m.gauge("worker_count", "Configured workers")
	m.workerActiveCount = m.gauge("worker_active_count", "Workers currently running a request")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds", "Time from dequeue to run completion")
	m.workerErrors = m.counter("worker_errors_total", "Run requests that failed in a worker")

	m.errorsByComponent = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "errors_by_component_total", Help: "Errors by component and type",
	}, []string{"component", "error_type"})

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes in use")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Live goroutines")
	m.systemGCPauseTime = promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem,
		Name: "system_gc_pause_time_milliseconds", Help: "Most recent GC pause",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100},
	})
}

// RecordRun counts a finished run and its duration.
func RecordRun(outcome string, durationMs float64) {
	globalManager.runs.WithLabelValues(outcome).Inc()
	globalManager.runDuration.Observe(durationMs)
}

// RecordRunCoalesced counts a run request absorbed by a pending one.
func RecordRunCoalesced() { globalManager.runsCoalesced.Inc() }

// RecordPhase counts an allocation phase transition.
func RecordPhase(phase string) { globalManager.phases.WithLabelValues(phase).Inc() }

// RecordAllocation adds the task outcomes of one run.
func RecordAllocation(scheduled, unscheduled, skipped int) {
	globalManager.tasksScheduled.Add(float64(scheduled))
	globalManager.tasksUnscheduled.Add(float64(unscheduled))
	globalManager.tasksSkipped.Add(float64(skipped))
}

// RecordFreeBlocks adds derived free blocks.
func RecordFreeBlocks(n int) { globalManager.freeBlocksDerived.Add(float64(n)) }

// RecordRecurrenceInstances adds expanded commitment occurrences.
func RecordRecurrenceInstances(n int) { globalManager.recurrenceExpanded.Add(float64(n)) }

// RecordEstimate counts an estimate by source.
func RecordEstimate(source string) { globalManager.estimates.WithLabelValues(source).Inc() }

// UpdateKnownUsers sets the number of users in the store.
func UpdateKnownUsers(n int) { globalManager.knownUsers.Set(float64(n)) }

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordRepositoryQueryLatency records a store read latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordRepositoryCommitLatency records a schedule commit latency.
func RecordRepositoryCommitLatency(latencyMs float64) {
	globalManager.repositoryCommitLatency.Observe(latencyMs)
}

// UpdateRepositoryRecords sets the stored record count for kind.
func UpdateRepositoryRecords(kind string, n int) {
	globalManager.repositoryRecords.WithLabelValues(kind).Set(float64(n))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the queue utilization ratio.
func UpdateQueueUtilization(utilization float64) { globalManager.queueUtilization.Set(utilization) }

// RecordQueueEnqueue counts an enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError counts a rejected enqueue.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// RecordQueueProcessingLatency records enqueue latency in milliseconds.
func RecordQueueProcessingLatency(latencyMs float64) {
	globalManager.queueProcessingLatency.Observe(latencyMs)
}

// UpdateWorkerCount sets the configured worker count.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records how long a worker spent on a request.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a failed request.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordErrorByComponent counts an error by component and type.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemoryUsage.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) { globalManager.systemGoroutineCount.Set(float64(count)) }

// RecordSystemGCPauseTime records a GC pause in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) { globalManager.systemGCPauseTime.Observe(pauseMs) }

// GetRegistry returns the registry all global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
