// Package metrics exposes Prometheus instruments for orders and checkout.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"marketplace-orders/internal/domain"
)

type Metrics struct {
	registry        *prometheus.Registry
	ordersCreated   prometheus.Counter
	transitions     *prometheus.CounterVec
	rejected        *prometheus.CounterVec
	checkouts       *prometheus.CounterVec
	paymentDuration *prometheus.HistogramVec
}

// New registers all instruments on a fresh registry together with the Go
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "marketplace",
			Name:      "orders_created_total",
			Help:      "Orders created in AwaitingPayment.",
		}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Name:      "order_transitions_total",
			Help:      "Applied order status transitions.",
		}, []string{"from", "to", "role"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Name:      "order_transitions_rejected_total",
			Help:      "Transitions refused, by reason.",
		}, []string{"reason"}),
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "marketplace",
			Name:      "checkouts_total",
			Help:      "Checkout submissions by payment method and outcome.",
		}, []string{"method", "outcome"}),
		paymentDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "marketplace",
			Name:      "payment_duration_seconds",
			Help:      "Time spent waiting on the payment provider.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2, 3, 5, 10, 20},
		}, []string{"method", "outcome"}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.ordersCreated,
		m.transitions,
		m.rejected,
		m.checkouts,
		m.paymentDuration,
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) OrderCreated() {
	m.ordersCreated.Inc()
}

func (m *Metrics) Transition(from, to domain.Status, role domain.Role) {
	m.transitions.WithLabelValues(string(from), string(to), string(role)).Inc()
}

// Rejected counts refused transitions; reason is "invalid" or "forbidden".
func (m *Metrics) Rejected(reason string) {
	m.rejected.WithLabelValues(reason).Inc()
}

func (m *Metrics) Checkout(method domain.PaymentMethod, outcome string) {
	m.checkouts.WithLabelValues(string(method), outcome).Inc()
}

func (m *Metrics) PaymentObserved(method domain.PaymentMethod, outcome domain.PaymentOutcome, d time.Duration) {
	m.paymentDuration.WithLabelValues(string(method), string(outcome)).Observe(d.Seconds())
}
