package model

import (
	"fmt"
	"math"
	"time"

	"socials-billing/internal/domain"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing SubscriptionStatus = "trialing"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
	SubscriptionStatusPaused   SubscriptionStatus = "paused"
	SubscriptionStatusPending  SubscriptionStatus = "pending" // push sent, awaiting provider confirmation
	SubscriptionStatusFailed   SubscriptionStatus = "failed"
)

// ParseSubscriptionStatus accepts one of the known status names.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch st := SubscriptionStatus(s); st {
	case SubscriptionStatusTrialing, SubscriptionStatusActive, SubscriptionStatusPastDue,
		SubscriptionStatusCanceled, SubscriptionStatusPaused, SubscriptionStatusPending, SubscriptionStatusFailed:
		return st, nil
	}
	return "", fmt.Errorf("%w: unknown subscription status %q", domain.ErrInvalidArgument, s)
}

const PaymentMethodEcoCash = "ecocash"

// Subscription is one account's enrollment in a plan. ProviderTxnID is the
// idempotency key used when reconciling provider callbacks.
type Subscription struct {
	ID                 string
	AccountID          string
	PlanID             string
	BillingInterval    BillingInterval
	Status             SubscriptionStatus
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	TrialStart         *time.Time
	TrialEnd           *time.Time
	CanceledAt         *time.Time
	CancellationReason string
	CancelAtPeriodEnd  bool
	AmountBilled       int64
	Currency           string
	PhoneNumber        string
	PaymentMethod      string
	ProviderTxnID      string
	Reference          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// NewPendingSubscription builds the pre-activation row recorded after a successful push.
func NewPendingSubscription(id, accountID string, plan *Plan, interval BillingInterval, amount int64, currency, phone, txnID, reference string, now time.Time) (*Subscription, error) {
	if id == "" || accountID == "" || plan.IsZero() || txnID == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}
	return &Subscription{
		ID:              id,
		AccountID:       accountID,
		PlanID:          plan.ID,
		BillingInterval: interval,
		Status:          SubscriptionStatusPending,
		AmountBilled:    amount,
		Currency:        currency,
		PhoneNumber:     phone,
		PaymentMethod:   PaymentMethodEcoCash,
		ProviderTxnID:   txnID,
		Reference:       reference,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func (s *Subscription) IsActive() bool   { return s.Status == SubscriptionStatusActive }
func (s *Subscription) IsTrialing() bool { return s.Status == SubscriptionStatusTrialing }
func (s *Subscription) IsCanceled() bool { return s.Status == SubscriptionStatusCanceled }
func (s *Subscription) IsPending() bool  { return s.Status == SubscriptionStatusPending }

// Cancelable reports whether a management cancel may apply.
func (s *Subscription) Cancelable() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusTrialing, SubscriptionStatusPastDue, SubscriptionStatusPaused:
		return true
	}
	return false
}

// DaysUntilRenewal returns whole days left in the current period, 0 when unknown.
func (s *Subscription) DaysUntilRenewal(now time.Time) int {
	if s.CurrentPeriodEnd == nil {
		return 0
	}
	return int(math.Floor(s.CurrentPeriodEnd.Sub(now).Hours() / 24))
}

// Period computes the billing window that starts at now.
func (s *Subscription) Period(now time.Time) (time.Time, time.Time) {
	return now, now.Add(time.Duration(s.BillingInterval.PeriodDays()) * 24 * time.Hour)
}
