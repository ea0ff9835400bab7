package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(buildsTotal) }

var buildsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "builds_total",
		Help: "Build attempts, labeled by result.",
	},
	[]string{"result"}, // 'started', 'deployed', 'failed'
)

func IncBuild(result string) { buildsTotal.WithLabelValues(norm(result)).Inc() }
