package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the partner module.
type Metrics struct {
	PartnersCreated    prometheus.Counter
	PartnersApproved   prometheus.Counter
	PartnersSuspended  prometheus.Counter
	ExclusivityImpacts *prometheus.CounterVec
	CreateDuration     prometheus.Histogram
}

// New registers all partner module metrics.
func New() *Metrics {
	return &Metrics{
		PartnersCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_partners_created_total",
			Help: "Total number of partner accounts created",
		}),
		PartnersApproved: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_partners_approved_total",
			Help: "Total number of partner approvals",
		}),
		PartnersSuspended: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_partners_suspended_total",
			Help: "Total number of partner suspensions",
		}),
		ExclusivityImpacts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_partner_exclusivity_impacts_total",
			Help: "Exclusivity impacts applied, by impact kind",
		}, []string{"impact"}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "demarc_partner_create_duration_seconds",
			Help:    "Duration of partner creation including territory admission checks",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveCreate records the duration of a partner creation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
