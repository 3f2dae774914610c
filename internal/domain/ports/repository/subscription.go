package repository

import (
	"context"
	"time"

	"socials-billing/internal/domain/model"
)

// SubscriptionRepository is the port for subscriptions. ProviderTxnID is unique;
// Create returns domain.ErrAlreadyExists on a duplicate.
type SubscriptionRepository interface {
	Create(ctx context.Context, tx Tx, s *model.Subscription) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Subscription, error)
	FindByTxnID(ctx context.Context, tx Tx, txnID string) (*model.Subscription, error)
	FindPendingByTxnID(ctx context.Context, tx Tx, txnID string) (*model.Subscription, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.Subscription, error)
	ListByStatus(ctx context.Context, tx Tx, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.Subscription, error)

	// TransitionFromPending moves the pending subscription with txnID to `to` in a
	// single compare-and-swap. ok is false when no pending row matched, which is
	// how a losing concurrent reconciliation learns it lost.
	TransitionFromPending(ctx context.Context, tx Tx, txnID string, to model.SubscriptionStatus, periodStart, periodEnd *time.Time, now time.Time) (sub *model.Subscription, ok bool, err error)

	// Cancel sets status canceled when the subscription is still cancelable.
	Cancel(ctx context.Context, tx Tx, id, reason string, at time.Time) (bool, error)
}
