package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		callbacksTotal,
		callbackDuration,
		callbackAmountMismatchTotal,
	)
}

var (
	// source: webhook|verify|sweep
	// outcome: activated|failed|still_pending|missing_identifier|no_matching_pending|error
	callbacksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reconciliations_total",
			Help:      "Reconciliation attempts by source and outcome.",
		},
		[]string{"source", "outcome"},
	)

	callbackDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "payment_reconciliation_duration_seconds",
			Help:      "Reconciliation latency by source.",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"source"},
	)

	callbackAmountMismatchTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_callback_amount_mismatch_total",
			Help:      "Callbacks reporting an amount different from the billed amount.",
		},
	)
)

func ObserveReconcile(source, outcome string, d time.Duration) {
	callbacksTotal.WithLabelValues(norm(source), norm(outcome)).Inc()
	callbackDuration.WithLabelValues(norm(source)).Observe(d.Seconds())
}

func IncAmountMismatch() {
	callbackAmountMismatchTotal.Inc()
}
