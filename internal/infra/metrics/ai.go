package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(aiCallsTotal, aiCallsLatencyMs, aiFallbacksTotal)
}

var (
	aiCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ai_calls_total",
			Help: "LLM collaborator calls, labeled by provider, operation and success.",
		},
		[]string{"provider", "op", "ok"},
	)

	aiCallsLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ai_calls_latency_ms",
			Help:    "LLM call latency distribution in milliseconds.",
			Buckets: []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000},
		},
		[]string{"provider", "op"},
	)

	aiFallbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "collaborator_fallbacks_total",
			Help: "Times a stage degraded to its documented fallback, labeled by stage.",
		},
		[]string{"stage"}, // 'extraction', 'generation', 'knowledge', 'voice'
	)
)

func ObserveAICall(provider, op string, ok bool, ms float64) {
	aiCallsTotal.WithLabelValues(provider, op, strconv.FormatBool(ok)).Inc()
	aiCallsLatencyMs.WithLabelValues(provider, op).Observe(ms)
}

func IncFallback(stage string) { aiFallbacksTotal.WithLabelValues(norm(stage)).Inc() }
