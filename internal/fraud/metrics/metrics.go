package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the fraud module.
type Metrics struct {
	EventsDetected *prometheus.CounterVec
	ActionsTaken   *prometheus.CounterVec
	DedupeHits     prometheus.Counter
}

// New registers all fraud module metrics.
func New() *Metrics {
	return &Metrics{
		EventsDetected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_fraud_events_detected_total",
			Help: "Fraud events recorded, by type and severity",
		}, []string{"type", "severity"}),
		ActionsTaken: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "demarc_fraud_actions_taken_total",
			Help: "Automatic fraud responses, by action",
		}, []string{"action"}),
		DedupeHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "demarc_fraud_dedupe_hits_total",
			Help: "Detections suppressed by the 5-minute dedupe window",
		}),
	}
}
