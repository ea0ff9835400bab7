package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(
		advanceTotal,
		advanceLatencyMs,
		phaseTransitionsTotal,
		pausePointsTotal,
	)
}

var (
	advanceTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_advance_total",
			Help: "Advance invocations, labeled by outcome.",
		},
		[]string{"outcome"}, // 'paused', 'ready', 'noop', 'error'
	)

	advanceLatencyMs = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pipeline_advance_latency_ms",
			Help:    "Advance call latency distribution in milliseconds.",
			Buckets: []float64{5, 20, 50, 100, 250, 500, 1000, 2500, 5000, 15000, 40000},
		},
	)

	phaseTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_phase_transitions_total",
			Help: "State machine transitions, labeled by target phase.",
		},
		[]string{"phase"},
	)

	pausePointsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeline_pause_points_total",
			Help: "Times the engine halted at a pause point, labeled by reason.",
		},
		[]string{"reason"}, // 'fields_incomplete', 'voice_unselected', 'await_build'
	)
)

func IncAdvance(outcome string) { advanceTotal.WithLabelValues(norm(outcome)).Inc() }

func ObserveAdvanceMs(ms float64) { advanceLatencyMs.Observe(ms) }

func IncPhaseTransition(phase string) { phaseTransitionsTotal.WithLabelValues(phase).Inc() }

func IncPausePoint(reason string) { pausePointsTotal.WithLabelValues(norm(reason)).Inc() }
