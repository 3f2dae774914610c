package model

import (
	"fmt"
	"time"

	"socials-billing/internal/domain"
)

type InvoiceStatus string

const (
	InvoiceStatusDraft         InvoiceStatus = "draft"
	InvoiceStatusOpen          InvoiceStatus = "open"
	InvoiceStatusPaid          InvoiceStatus = "paid"
	InvoiceStatusVoid          InvoiceStatus = "void"
	InvoiceStatusUncollectible InvoiceStatus = "uncollectible"
)

// LineItem is one structured invoice line. Amount is per unit, minor units.
type LineItem struct {
	Description string     `json:"description"`
	Amount      int64      `json:"amount"`
	Quantity    int        `json:"quantity"`
	PeriodStart *time.Time `json:"period_start,omitempty"`
	PeriodEnd   *time.Time `json:"period_end,omitempty"`
}

// Invoice is issued once, when a pending subscription is confirmed.
// Paid invoices are never mutated; corrections are new rows.
type Invoice struct {
	ID              string
	Number          string
	AccountID       string
	SubscriptionID  string
	ProviderTxnID   string
	Status          InvoiceStatus
	AmountDue       int64
	AmountPaid      int64
	AmountRemaining int64
	Currency        string
	Lines           []LineItem
	IssuedAt        time.Time
	DueAt           *time.Time
	PaidAt          *time.Time
	Attempted       bool
	AttemptCount    int
	Description     string
	CreatedAt       time.Time
}

// NewPaidInvoice builds a fully settled invoice for a confirmed push payment.
func NewPaidInvoice(id, number string, sub *Subscription, planLabel string, periodStart, periodEnd, now time.Time) (*Invoice, error) {
	if id == "" || number == "" || sub == nil {
		return nil, domain.ErrInvalidArgument
	}
	ps, pe := periodStart, periodEnd
	inv := &Invoice{
		ID:              id,
		Number:          number,
		AccountID:       sub.AccountID,
		SubscriptionID:  sub.ID,
		ProviderTxnID:   sub.ProviderTxnID,
		Status:          InvoiceStatusPaid,
		AmountDue:       sub.AmountBilled,
		AmountPaid:      sub.AmountBilled,
		AmountRemaining: 0,
		Currency:        sub.Currency,
		Lines: []LineItem{{
			Description: fmt.Sprintf("%s Plan", planLabel),
			Amount:      sub.AmountBilled,
			Quantity:    1,
			PeriodStart: &ps,
			PeriodEnd:   &pe,
		}},
		IssuedAt:     now,
		DueAt:        &now,
		PaidAt:       &now,
		Attempted:    true,
		AttemptCount: 1,
		Description:  fmt.Sprintf("%s Plan (%s)", planLabel, sub.BillingInterval),
		CreatedAt:    now,
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	return inv, nil
}

// LinesTotal sums amount*quantity over all lines.
func (i *Invoice) LinesTotal() int64 {
	var total int64
	for _, l := range i.Lines {
		total += l.Amount * int64(l.Quantity)
	}
	return total
}

// Validate checks the amount invariants: paid + remaining == due, and a paid
// invoice has nothing remaining.
func (i *Invoice) Validate() error {
	if i.AmountDue < 0 || i.AmountPaid < 0 || i.AmountRemaining < 0 {
		return fmt.Errorf("%w: negative invoice amount", domain.ErrInvariantViolation)
	}
	if i.AmountPaid+i.AmountRemaining != i.AmountDue {
		return fmt.Errorf("%w: paid %d + remaining %d != due %d", domain.ErrInvariantViolation, i.AmountPaid, i.AmountRemaining, i.AmountDue)
	}
	if i.Status == InvoiceStatusPaid && i.AmountRemaining != 0 {
		return fmt.Errorf("%w: paid invoice has %d remaining", domain.ErrInvariantViolation, i.AmountRemaining)
	}
	if len(i.Lines) > 0 && i.LinesTotal() != i.AmountDue {
		return fmt.Errorf("%w: lines total %d != due %d", domain.ErrInvariantViolation, i.LinesTotal(), i.AmountDue)
	}
	return nil
}

func (i *Invoice) IsPaid() bool { return i.Status == InvoiceStatusPaid }

func (i *Invoice) IsOverdue(now time.Time) bool {
	return i.DueAt != nil && !i.IsPaid() && now.After(*i.DueAt)
}
