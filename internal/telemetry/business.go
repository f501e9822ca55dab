package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Business holds counters for the cart, order and checkout flows. A nil
// *Business records nothing.
type Business struct {
	cartOperations   *prometheus.CounterVec
	ordersPlaced     *prometheus.CounterVec
	orderValue       *prometheus.HistogramVec
	ordersRolledBack prometheus.Counter
	checkouts        *prometheus.CounterVec
	mailsSent        *prometheus.CounterVec
	eventsPublished  *prometheus.CounterVec
}

// NewBusiness creates the business collectors and registers them with reg.
func NewBusiness(namespace string, reg prometheus.Registerer) *Business {
	if namespace == "" {
		namespace = "lean_commerce"
	}
	factory := promauto.With(reg)
	subsystem := "business"

	return &Business{
		cartOperations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_operations_total",
				Help:      "Cart operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		ordersPlaced: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_placed_total",
				Help:      "Orders created from carts",
			},
			[]string{"customer_type"}, // customer, guest
		),
		orderValue: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Order total at placement",
				Buckets:   []float64{500, 1000, 2500, 5000, 10000, 25000, 50000, 100000},
			},
			[]string{"currency"},
		),
		ordersRolledBack: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_rolled_back_total",
				Help:      "Orders deleted after guest address attachment failed",
			},
		),
		checkouts: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkouts_total",
				Help:      "Checkout attempts by gateway and final state",
			},
			[]string{"gateway", "state"},
		),
		mailsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "emails_total",
				Help:      "Transactional emails by outcome",
			},
			[]string{"outcome"},
		),
		eventsPublished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "events_published_total",
				Help:      "Lifecycle events published to the message bus",
			},
			[]string{"hook", "outcome"},
		),
	}
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func (b *Business) CartOperation(operation string, err error) {
	if b == nil {
		return
	}
	b.cartOperations.WithLabelValues(operation, outcome(err)).Inc()
}

func (b *Business) OrderPlaced(guest bool, currency string, totalCents int64) {
	if b == nil {
		return
	}
	kind := "customer"
	if guest {
		kind = "guest"
	}
	b.ordersPlaced.WithLabelValues(kind).Inc()
	b.orderValue.WithLabelValues(currency).Observe(float64(totalCents))
}

func (b *Business) OrderRolledBack() {
	if b == nil {
		return
	}
	b.ordersRolledBack.Inc()
}

func (b *Business) Checkout(gateway, state string) {
	if b == nil {
		return
	}
	if gateway == "" {
		gateway = "none"
	}
	b.checkouts.WithLabelValues(gateway, state).Inc()
}

func (b *Business) MailSent(err error) {
	if b == nil {
		return
	}
	b.mailsSent.WithLabelValues(outcome(err)).Inc()
}

func (b *Business) EventPublished(hook string, err error) {
	if b == nil {
		return
	}
	b.eventsPublished.WithLabelValues(hook, outcome(err)).Inc()
}
