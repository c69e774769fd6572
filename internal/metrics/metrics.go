package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Routing metrics
	TurnsRouted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_turns_routed_total",
			Help: "Total number of conversation turns routed",
		},
		[]string{"role", "route"},
	)

	SubRoutesHandled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_sub_routes_handled_total",
			Help: "Total number of sub-route handler executions",
		},
		[]string{"flow", "sub_route"},
	)

	RoutingFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_routing_fallbacks_total",
			Help: "Total number of fallback routing decisions substituted after classifier failure",
		},
		[]string{"role", "level"},
	)

	// Executor metrics
	ExecutorInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_executor_invocations_total",
			Help: "Total number of task executor invocations",
		},
		[]string{"executor"},
	)

	ExecutorFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_executor_failures_total",
			Help: "Total number of task executor invocations converted to the unavailable sentinel",
		},
		[]string{"executor"},
	)

	ExecutorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhall_executor_duration_seconds",
			Help:    "Task executor invocation duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"executor"},
	)

	// Session memory metrics
	SessionsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_sessions_created_total",
			Help: "Total number of session memory records created at login",
		},
		[]string{"role"},
	)

	MemoryReads = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_memory_reads_total",
			Help: "Total number of session memory loads",
		},
	)

	MemoryWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_memory_writes_total",
			Help: "Total number of session memory write-backs",
		},
	)

	// Background task metrics
	BackgroundJobsQueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_background_jobs_queued_total",
			Help: "Total number of background jobs accepted by the spawner",
		},
	)

	BackgroundJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_background_jobs_completed_total",
			Help: "Total number of background jobs completed",
		},
		[]string{"status"},
	)

	BackgroundJobsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "studyhall_background_jobs_dropped_total",
			Help: "Total number of background jobs dropped due to a saturated queue",
		},
	)

	BackgroundQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "studyhall_background_queue_depth",
			Help: "Number of background jobs currently queued",
		},
	)

	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studyhall_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studyhall_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path"},
	)
)
