package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	OrdersDeleted      prometheus.Counter
	DeleteFailures     *prometheus.CounterVec
	StatusTransitions  *prometheus.CounterVec
	GeneralOrdersClose prometheus.Counter
	PurchaserMisses    prometheus.Counter
	UserEvents         *prometheus.CounterVec
}

// NewMetrics registers the service counters on reg. Tests pass a fresh registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		OrdersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "orders_deleted_total",
			Help:      "Orders removed together with their items.",
		}),
		DeleteFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "order_delete_failures_total",
			Help:      "Failed order deletions by failure kind.",
		}, []string{"kind"}),
		StatusTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "status_transitions_total",
			Help:      "Shop status transitions by resulting state.",
		}, []string{"state"}),
		GeneralOrdersClose: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "general_orders_closed_total",
			Help:      "General orders closed after their deadline.",
		}),
		PurchaserMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "order_purchaser_lookup_failures_total",
			Help:      "Orders listed without purchaser details.",
		}),
		UserEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "shop",
			Name:      "user_events_total",
			Help:      "Replicated user events by type and outcome.",
		}, []string{"event", "outcome"}),
	}

	reg.MustRegister(
		m.OrdersDeleted,
		m.DeleteFailures,
		m.StatusTransitions,
		m.GeneralOrdersClose,
		m.PurchaserMisses,
		m.UserEvents,
	)

	return m
}
