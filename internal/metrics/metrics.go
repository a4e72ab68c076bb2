// Package metrics holds the service's prometheus collectors. Registration is
// on the default registry; /metrics is served by promhttp in internal/api.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PurchasesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codemarket_purchases_total",
		Help: "Completed purchases.",
	})

	PaymentTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codemarket_payment_transitions_total",
		Help: "Payment request transitions by kind and outcome.",
	}, []string{"kind", "outcome"})

	ReviewsAdmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codemarket_reviews_admitted_total",
		Help: "Reviews admitted into a listing's aggregate rating.",
	})
)
