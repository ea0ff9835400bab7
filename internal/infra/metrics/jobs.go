package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(jobsStartedTotal, jobsResolvedTotal, jobsSuppressedTotal, jobAwaitTimeoutsTotal, jobsInFlight)
}

var (
	jobsStartedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_jobs_started_total",
			Help: "Background jobs dispatched, labeled by kind.",
		},
		[]string{"kind"},
	)

	jobsResolvedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_jobs_resolved_total",
			Help: "Background jobs resolved, labeled by kind and status.",
		},
		[]string{"kind", "status"}, // 'done', 'failed'
	)

	jobsSuppressedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_jobs_suppressed_total",
			Help: "Duplicate start attempts suppressed by the registry, labeled by kind.",
		},
		[]string{"kind"},
	)

	jobAwaitTimeoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "background_job_await_timeouts_total",
			Help: "Bounded awaits that hit their deadline, labeled by kind.",
		},
		[]string{"kind"},
	)

	jobsInFlight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "background_jobs_in_flight",
			Help: "Currently running background jobs, labeled by kind.",
		},
		[]string{"kind"},
	)
)

func IncJobStarted(kind string) {
	jobsStartedTotal.WithLabelValues(kind).Inc()
	jobsInFlight.WithLabelValues(kind).Inc()
}

func IncJobResolved(kind, status string) {
	jobsResolvedTotal.WithLabelValues(kind, norm(status)).Inc()
	jobsInFlight.WithLabelValues(kind).Dec()
}

func IncJobSuppressed(kind string) { jobsSuppressedTotal.WithLabelValues(kind).Inc() }

func IncJobAwaitTimeout(kind string) { jobAwaitTimeoutsTotal.WithLabelValues(kind).Inc() }
