package model

import (
	"time"

	"socials-billing/internal/domain"
)

type PaymentStatus string

const (
	PaymentStatusSucceeded      PaymentStatus = "succeeded" // confirmed by provider callback or verify
	PaymentStatusProcessing     PaymentStatus = "processing"
	PaymentStatusRequiresAction PaymentStatus = "requires_action"
	PaymentStatusCanceled       PaymentStatus = "canceled"
	PaymentStatusFailed         PaymentStatus = "failed"
	PaymentStatusRefunded       PaymentStatus = "refunded" // correction row, never an update of a succeeded one
)

// Payment records one confirmed money movement for a provider transaction.
// At most one succeeded row exists per ProviderTxnID.
type Payment struct {
	ID              string
	AccountID       string
	InvoiceID       *string
	SubscriptionID  *string
	ProviderTxnID   string
	Amount          int64 // minor units
	Currency        string
	Status          PaymentStatus
	PaymentMethodID *string
	FailureCode     string
	FailureMessage  string
	Description     string
	CreatedAt       time.Time
}

// NewSucceededPayment links a confirmed payment to the invoice it settles.
func NewSucceededPayment(id string, inv *Invoice, now time.Time) (*Payment, error) {
	if id == "" || inv == nil || !inv.IsPaid() {
		return nil, domain.ErrInvalidArgument
	}
	invID, subID := inv.ID, inv.SubscriptionID
	return &Payment{
		ID:             id,
		AccountID:      inv.AccountID,
		InvoiceID:      &invID,
		SubscriptionID: &subID,
		ProviderTxnID:  inv.ProviderTxnID,
		Amount:         inv.AmountPaid,
		Currency:       inv.Currency,
		Status:         PaymentStatusSucceeded,
		Description:    inv.Description,
		CreatedAt:      now,
	}, nil
}

// NewRefundPayment is the correction row recorded after a provider refund.
func NewRefundPayment(id string, original *Payment, reason string, now time.Time) (*Payment, error) {
	if id == "" || original == nil || original.Status != PaymentStatusSucceeded {
		return nil, domain.ErrInvalidArgument
	}
	return &Payment{
		ID:             id,
		AccountID:      original.AccountID,
		InvoiceID:      original.InvoiceID,
		SubscriptionID: original.SubscriptionID,
		ProviderTxnID:  original.ProviderTxnID,
		Amount:         original.Amount,
		Currency:       original.Currency,
		Status:         PaymentStatusRefunded,
		Description:    "Refund: " + reason,
		CreatedAt:      now,
	}, nil
}
