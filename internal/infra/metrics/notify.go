package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() { register(notificationsTotal, guardRejectionsTotal) }

var (
	notificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notifier deliveries by sink and status (sent/failed/dropped).",
		},
		[]string{"sink", "status"},
	)

	guardRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "checkout_guard_rejections_total",
			Help:      "Checkout requests stopped by a guard (rate_limit/lock).",
		},
		[]string{"guard"},
	)
)

func IncNotification(sink, status string) {
	notificationsTotal.WithLabelValues(norm(sink), norm(status)).Inc()
}

func IncGuardRejection(guard string) {
	guardRejectionsTotal.WithLabelValues(norm(guard)).Inc()
}
