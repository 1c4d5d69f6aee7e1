package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Full pipeline run latency (milliseconds).
	PipelineRunLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_pipeline_run_latency_ms",
			Help:    "Insight pipeline run latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"outcome"}, // outcome: generated, cached, fallback
	)

	// Per-agent analysis latency (milliseconds).
	AgentLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_agent_latency_ms",
			Help:    "Analyzer agent latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
		[]string{"agent", "status"}, // status: ok, failed, timeout
	)

	// Remote inference call count.
	LLMCallCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_llm_call_count",
			Help: "Total number of remote inference calls",
		},
		[]string{"request_type", "outcome"}, // outcome: ok, cached, denied, error
	)

	// Quota denials by request type.
	QuotaDeniedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_quota_denied_count",
			Help: "Total number of quota-denied inference calls",
		},
		[]string{"request_type"},
	)

	// Detected event count by priority.
	EventDetectedCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_event_detected_count",
			Help: "Total number of detected events",
		},
		[]string{"rule", "priority"},
	)

	// Notification dispatch count.
	NotificationCount = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_notification_count",
			Help: "Total number of notification dispatch attempts",
		},
		[]string{"result"}, // result: sent, suppressed_daily, suppressed_duplicate, failed
	)

	// KV store operation latency (seconds).
	KVOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_kv_op_duration_seconds",
			Help:    "Key-value store operation duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"op"},
	)
)

// RecordPipelineRun records one full pipeline run.
func RecordPipelineRun(outcome string, duration time.Duration) {
	PipelineRunLatency.WithLabelValues(outcome).Observe(float64(duration.Milliseconds()))
}

// RecordAgentLatency records a single analyzer call.
func RecordAgentLatency(agent, status string, duration time.Duration) {
	AgentLatency.WithLabelValues(agent, status).Observe(float64(duration.Milliseconds()))
}

// IncrementLLMCall counts a remote inference call by outcome.
func IncrementLLMCall(requestType, outcome string) {
	LLMCallCount.WithLabelValues(requestType, outcome).Inc()
}

// IncrementQuotaDenied counts a quota denial.
func IncrementQuotaDenied(requestType string) {
	QuotaDeniedCount.WithLabelValues(requestType).Inc()
}

// IncrementEventDetected counts a fired detection rule.
func IncrementEventDetected(rule, priority string) {
	EventDetectedCount.WithLabelValues(rule, priority).Inc()
}

// IncrementNotification counts a dispatch attempt result.
func IncrementNotification(result string) {
	NotificationCount.WithLabelValues(result).Inc()
}

// RecordKVOp records a key-value store operation.
func RecordKVOp(op string, duration time.Duration) {
	KVOpDuration.WithLabelValues(op).Observe(duration.Seconds())
}
