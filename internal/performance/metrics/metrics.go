package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the performance module.
type Metrics struct {
	TargetsCreated prometheus.Counter
	Evaluations    *prometheus.CounterVec
	ImpactsApplied prometheus.Counter
}

// New registers all performance module metrics.
func New() *Metrics {
	return &Metrics{
		TargetsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_performance_targets_created_total",
			Help: "Total number of performance target periods created",
		}),
		Evaluations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_performance_evaluations_total",
			Help: "Target evaluations, by resulting status",
		}, []string{"status"}),
		ImpactsApplied: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_performance_impacts_applied_total",
			Help: "Exclusivity impacts applied after failed evaluations",
		}),
	}
}
