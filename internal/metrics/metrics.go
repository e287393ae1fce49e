package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters the core exposes. The release clamp and stock
// leak counters exist because both conditions are tolerated at runtime but
// must stay loudly observable.
type Metrics struct {
	Reservations    *prometheus.CounterVec
	ReleaseClamped  prometheus.Counter
	StockLeaks      prometheus.Counter
	CheckoutSagas   *prometheus.CounterVec
	EventsPublished *prometheus.CounterVec
}

func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		Reservations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "inventory_reservations_total",
			Help: "Reservation attempts by result.",
		}, []string{"result"}),
		ReleaseClamped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "inventory_release_clamped_total",
			Help: "Releases that exceeded the reserved quantity and were clamped to zero.",
		}),
		StockLeaks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stock_leak_incidents_total",
			Help: "Compensation releases that failed after all retries.",
		}),
		CheckoutSagas: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_sagas_total",
			Help: "Completed checkout sagas by outcome.",
		}, []string{"outcome"}),
		EventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "fulfillment_events_published_total",
			Help: "Events handed to the notifier by type.",
		}, []string{"event_type"}),
	}

	registry.MustRegister(
		m.Reservations,
		m.ReleaseClamped,
		m.StockLeaks,
		m.CheckoutSagas,
		m.EventsPublished,
	)

	return m
}

// NewUnregistered returns metrics backed by a private registry, for tests.
func NewUnregistered() *Metrics {
	return New(prometheus.NewRegistry())
}
