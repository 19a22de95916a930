// Package metrics holds the Prometheus collectors for checkout and delivery.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_requests_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Time spent processing a checkout",
		Buckets: prometheus.DefBuckets,
	})

	SideEffectFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_side_effect_failures_total",
		Help: "Best-effort post-payment side effects that failed",
	}, []string{"effect"})

	DeliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ticket_deliveries_total",
		Help: "Ticket deliveries by channel and result",
	}, []string{"channel", "result"})

	QRFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ticket_qr_failures_total",
		Help: "Tickets rendered without a scannable code",
	})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "HTTP requests by route pattern and status code",
	}, []string{"method", "route", "status"})
)

// Outcome label for a successful checkout
const OutcomeSuccess = "success"
