package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Workflow metrics
	WorkflowsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_workflows_started_total",
			Help: "Total number of analytics workflows started",
		},
	)

	WorkflowsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpulse_workflows_completed_total",
			Help: "Total number of analytics workflows completed",
		},
		[]string{"outcome"}, // clarification, blocked, early_exit, full, error
	)

	WorkflowDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adpulse_workflow_duration_seconds",
			Help:    "Analytics workflow execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	PhaseDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adpulse_phase_duration_ms",
			Help:    "Workflow phase duration in milliseconds",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"phase"},
	)

	// Specialist metrics
	SpecialistExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpulse_specialist_executions_total",
			Help: "Total number of specialist invocations",
		},
		[]string{"specialist", "status"},
	)

	SpecialistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "adpulse_specialist_duration_ms",
			Help:    "Specialist invocation duration in milliseconds",
			Buckets: []float64{100, 500, 1000, 2000, 5000, 10000, 30000},
		},
		[]string{"specialist"},
	)

	// Reasoning engine metrics
	ReasoningCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpulse_reasoning_calls_total",
			Help: "Total number of reasoning engine calls",
		},
		[]string{"status"},
	)

	ReasoningCallDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adpulse_reasoning_call_duration_seconds",
			Help:    "Reasoning engine call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	// Session metrics
	SessionsCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_sessions_created_total",
			Help: "Total number of sessions created",
		},
	)

	SessionCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_session_cache_hits_total",
			Help: "Session local cache hits",
		},
	)

	SessionCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_session_cache_misses_total",
			Help: "Session local cache misses",
		},
	)

	SessionCacheSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adpulse_session_cache_size",
			Help: "Number of sessions in the local cache",
		},
	)

	// Warehouse query cache metrics
	QueryCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_query_cache_hits_total",
			Help: "Warehouse query cache hits",
		},
	)

	QueryCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_query_cache_misses_total",
			Help: "Warehouse query cache misses",
		},
	)

	WarehouseQueryDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "adpulse_warehouse_query_duration_seconds",
			Help:    "Warehouse query duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 15},
		},
	)

	// Streaming metrics
	ProgressEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "adpulse_progress_events_published_total",
			Help: "Total number of progress events published",
		},
	)

	SSEClientsConnected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "adpulse_sse_clients_connected",
			Help: "Number of connected SSE clients",
		},
	)

	// Circuit breaker metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "adpulse_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpulse_circuit_breaker_requests_total",
			Help: "Requests through circuit breakers",
		},
		[]string{"name", "result"},
	)
)
