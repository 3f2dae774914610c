package notify

import (
	"context"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
)

var _ adapter.Notifier = NoopNotifier{}

type NoopNotifier struct{}

func (NoopNotifier) Name() string                                            { return "noop" }
func (NoopNotifier) Notify(context.Context, *model.SubscriptionEvent) error { return nil }
