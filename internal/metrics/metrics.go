package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apotek_http_requests_total",
		Help: "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "apotek_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// CheckoutsTotal counts checkout attempts by outcome: ok, duplicate or the
	// error kind that rejected the sale.
	CheckoutsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apotek_checkouts_total",
		Help: "Checkout attempts by result.",
	}, []string{"result"})

	SupplyRowsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "apotek_supply_rows_total",
		Help: "Supply rows applied by source and effect.",
	}, []string{"source", "effect"})

	CreditPaymentsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "apotek_credit_payments_total",
		Help: "Credit payments recorded.",
	})
)
