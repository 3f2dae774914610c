package metrics

import (
	"socials-billing/internal/domain/model"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		subscriptionsAbandonedTotal,
		subscriptionTransitionsTotal,
		reconcilerSweepsTotal,
	)
}

var (
	subscriptionsAbandonedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscriptions_abandoned_total",
			Help:      "Pending subscriptions failed by the stale sweep.",
		},
	)

	subscriptionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_transitions_total",
			Help:      "Subscription status transitions by target status.",
		},
		[]string{"to"},
	)

	reconcilerSweepsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_reconciler_sweeps_total",
			Help:      "Stale pending sweeps by result.",
		},
		[]string{"result"},
	)
)

func IncSubscriptionsAbandoned(count int) {
	subscriptionsAbandonedTotal.Add(float64(count))
}

func IncSubscriptionTransition(to model.SubscriptionStatus) {
	subscriptionTransitionsTotal.WithLabelValues(string(to)).Inc()
}

func IncReconcilerSweep(result string) {
	reconcilerSweepsTotal.WithLabelValues(norm(result)).Inc()
}
