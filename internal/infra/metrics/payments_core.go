package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		initiationsTotal,
		providerCallsTotal,
		providerCallDuration,
		persistenceAfterSuccessTotal,
		paymentsRevenueTotal,
		refundsTotal,
	)
}

var (
	initiationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_initiations_total",
			Help:      "Push initiations by result (sent/rejected/unavailable/invalid/rate_limited/in_progress/error).",
		},
		[]string{"result"},
	)

	providerCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_provider_calls_total",
			Help:      "Outbound provider calls by operation and result.",
		},
		[]string{"op", "result"},
	)

	providerCallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_provider_call_duration_seconds",
			Help:      "Outbound provider call latency by operation.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"op"},
	)

	// Any increase here means money may have moved with no local record.
	persistenceAfterSuccessTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_persistence_after_external_success_total",
			Help:      "Provider accepted a request but the local write failed.",
		},
	)

	paymentsRevenueTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payments_revenue_minor_total",
			Help:      "Succeeded payment value in minor units, by currency.",
		},
		[]string{"currency"},
	)

	refundsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_refunds_total",
			Help:      "Admin refunds by result.",
		},
		[]string{"result"},
	)
)

func IncInitiation(result string) {
	initiationsTotal.WithLabelValues(norm(result)).Inc()
}

func ObserveProviderCall(op, result string, d time.Duration) {
	providerCallsTotal.WithLabelValues(norm(op), norm(result)).Inc()
	providerCallDuration.WithLabelValues(norm(op)).Observe(d.Seconds())
}

func IncPersistenceAfterExternalSuccess() {
	persistenceAfterSuccessTotal.Inc()
}

func AddPaymentRevenue(currency string, amount int64) {
	paymentsRevenueTotal.WithLabelValues(norm(currency)).Add(float64(amount))
}

func IncRefund(result string) {
	refundsTotal.WithLabelValues(norm(result)).Inc()
}
