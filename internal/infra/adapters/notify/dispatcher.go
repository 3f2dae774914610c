package notify

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
	"socials-billing/internal/infra/metrics"
	"socials-billing/internal/infra/worker"
	"socials-billing/internal/usecase"
)

var _ usecase.EventPublisher = (*Dispatcher)(nil)

// Submitter is the part of worker.Pool the dispatcher needs.
type Submitter interface {
	Submit(task worker.Task) error
}

// Dispatcher fans each event out to every sink on the worker pool. Publish
// returns immediately; sink failures are logged and counted only.
type Dispatcher struct {
	pool    Submitter
	sinks   []adapter.Notifier
	timeout time.Duration
	log     *zerolog.Logger
}

func NewDispatcher(pool Submitter, timeout time.Duration, logger *zerolog.Logger, sinks ...adapter.Notifier) *Dispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	compLog := logger.With().Str("component", "NotificationDispatcher").Logger()
	return &Dispatcher{pool: pool, sinks: sinks, timeout: timeout, log: &compLog}
}

func (d *Dispatcher) Publish(ev *model.SubscriptionEvent) {
	if ev == nil {
		return
	}
	status := model.SubscriptionStatus(ev.Status)
	metrics.IncSubscriptionTransition(status)
	if status == model.SubscriptionStatusActive {
		metrics.AddPaymentRevenue(ev.Currency, ev.Amount)
	}
	for _, sink := range d.sinks {
		sink := sink
		err := d.pool.Submit(func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()
			if err := sink.Notify(ctx, ev); err != nil {
				metrics.IncNotification(sink.Name(), "failed")
				d.log.Warn().Err(err).Str("sink", sink.Name()).Str("subscription_id", ev.SubscriptionID).
					Str("status", ev.Status).Msg("notification failed")
				return nil
			}
			metrics.IncNotification(sink.Name(), "sent")
			return nil
		})
		if err != nil {
			metrics.IncNotification(sink.Name(), "dropped")
			d.log.Warn().Err(err).Str("sink", sink.Name()).Str("subscription_id", ev.SubscriptionID).Msg("notification dropped")
		}
	}
}
