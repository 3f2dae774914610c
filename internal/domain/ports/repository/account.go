package repository

import (
	"context"
	"time"

	"socials-billing/internal/domain/model"
)

type AccountRepository interface {
	Save(ctx context.Context, tx Tx, a *model.Account) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Account, error)
	// UpdateSubscriptionPointer refreshes the account's cached view of its current subscription.
	UpdateSubscriptionPointer(ctx context.Context, tx Tx, accountID, subscriptionID, planID, status string, endsAt *time.Time) error
	UpdateSubscriptionStatus(ctx context.Context, tx Tx, accountID, status string) error
}
