package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reminder engine
type Metrics struct {
	Deliveries     *prometheus.CounterVec
	Appointments   *prometheus.CounterVec
	RunDuration    *prometheus.HistogramVec
	PrunedEndpoint prometheus.Counter
	CleanupRemoved *prometheus.CounterVec
}

// New registers the engine metrics with reg. Passing nil uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		Deliveries: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "salonpro",
				Subsystem: "reminder",
				Name:      "deliveries_total",
				Help:      "Reminder delivery attempts by outcome",
			},
			[]string{"type", "channel", "status"}, // status: sent, failed, skipped
		),
		Appointments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "salonpro",
				Subsystem: "reminder",
				Name:      "appointments_total",
				Help:      "Appointments processed by dispatch result",
			},
			[]string{"type", "result"},
		),
		RunDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "salonpro",
				Subsystem: "reminder",
				Name:      "run_duration_seconds",
				Help:      "Duration of scheduled and manual job runs",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"job"},
		),
		PrunedEndpoint: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: "salonpro",
				Subsystem: "reminder",
				Name:      "pruned_push_endpoints_total",
				Help:      "Push endpoints removed after a permanent delivery failure",
			},
		),
		CleanupRemoved: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "salonpro",
				Subsystem: "reminder",
				Name:      "cleanup_removed_total",
				Help:      "Rows removed or released by the retention job",
			},
			[]string{"kind"},
		),
	}
}
