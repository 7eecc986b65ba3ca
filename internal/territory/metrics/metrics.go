package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the territory module.
type Metrics struct {
	TerritoriesCreated  prometheus.Counter
	CreationsBlocked    *prometheus.CounterVec
	OverlapComparisons  prometheus.Counter
	CreateDuration      prometheus.Histogram
	LocationValidations *prometheus.CounterVec
}

// New registers all territory module metrics.
func New() *Metrics {
	return &Metrics{
		TerritoriesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_territories_created_total",
			Help: "Total number of territories created",
		}),
		CreationsBlocked: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_territory_creations_blocked_total",
			Help: "Territory creations rejected, by cause",
		}, []string{"cause"}),
		OverlapComparisons: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_territory_overlap_comparisons_total",
			Help: "Pairwise overlap comparisons performed during creation",
		}),
		CreateDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "demarc_territory_create_duration_seconds",
			Help:    "Duration of territory creation including the overlap sweep",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LocationValidations: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_location_validations_total",
			Help: "Location-in-territory validations, by outcome",
		}, []string{"outcome"}),
	}
}

// ObserveCreate records the duration of a territory creation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveCreate(start time.Time) {
	m.CreateDuration.Observe(time.Since(start).Seconds())
}
