// Package metrics defines the Prometheus instruments shared across components.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the counters and histograms used by the orchestrator and
// its collaborators.
type Metrics struct {
	LLMRequests   *prometheus.CounterVec
	LLMLatency    *prometheus.HistogramVec
	Conversations *prometheus.CounterVec
	ChatRequests  *prometheus.CounterVec
	Errors        *prometheus.CounterVec
}

// New registers all instruments under the given namespace.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		LLMRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Generation requests by outcome (success, retry, failed).",
		}, []string{"outcome"}),
		LLMLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_request_duration_seconds",
			Help:      "Generation request latency by HTTP status.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"status"}),
		Conversations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "conversations_total",
			Help:      "Processed conversation turns by operation and outcome.",
		}, []string{"operation", "outcome"}),
		ChatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Inbound chat requests by status.",
		}, []string{"status"}),
		Errors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Internal errors by site.",
		}, []string{"site"}),
	}
}
