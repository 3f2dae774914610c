package model

import (
	"time"

	"github.com/google/uuid"

	"socials-billing/internal/domain"
)

const AccountSubscriptionNone = "none"

// Account is the billing owner. CurrentSubscriptionID and SubscriptionStatus
// are a cache of the latest activated subscription.
type Account struct {
	ID                    string
	Email                 string
	Name                  string
	PlanID                *string
	PhoneNumber           string
	CurrentSubscriptionID *string
	SubscriptionStatus    string
	SubscriptionEndsAt    *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func NewAccount(id, email, name string) (*Account, error) {
	if id == "" {
		id = uuid.NewString()
	}
	if email == "" || name == "" {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Account{
		ID:                 id,
		Email:              email,
		Name:               name,
		SubscriptionStatus: AccountSubscriptionNone,
		CreatedAt:          now,
		UpdatedAt:          now,
	}, nil
}

func (a *Account) IsZero() bool { return a == nil || a.ID == "" }

// IsPaidSubscriber reports an active cached subscription.
func (a *Account) IsPaidSubscriber() bool {
	return a.CurrentSubscriptionID != nil && a.SubscriptionStatus == string(SubscriptionStatusActive)
}
