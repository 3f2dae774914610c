package adapter

import (
	"context"

	"socials-billing/internal/domain/model"
)

// Notifier delivers subscription events to an outside party. Delivery is
// best-effort; callers never let a Notify error affect ledger state.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, ev *model.SubscriptionEvent) error
}
