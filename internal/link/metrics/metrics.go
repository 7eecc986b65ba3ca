package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the link module.
type Metrics struct {
	LinksCreated    prometheus.Counter
	LinksRejected   *prometheus.CounterVec
	RoyaltiesPosted prometheus.Counter
	CreateDuration  prometheus.Histogram
}

// New registers all link module metrics.
func New() *Metrics {
	return &Metrics{
		LinksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_links_created_total",
			Help: "Total number of regional links created",
		}),
		LinksRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_links_rejected_total",
			Help: "Regional link creations rejected, by cause",
		}, []string{"cause"}),
		RoyaltiesPosted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_link_royalties_posted_total",
			Help: "Royalty postings accepted on existing links",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "demarc_link_create_duration_seconds",
			Help:    "Duration of link creation including location validation",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveCreate records the duration of a link creation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
