package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

const InvoicePageSize = 20

// Compile-time check
var _ LedgerUseCase = (*ledgerUC)(nil)

// Activation is everything written by one confirmed payment.
type Activation struct {
	Subscription *model.Subscription
	Invoice      *model.Invoice
	Payment      *model.Payment
}

// InvoiceDetail is an invoice with the payments recorded against it.
type InvoiceDetail struct {
	Invoice  *model.Invoice
	Payments []*model.Payment
}

// InvoicePage is one page of an account's billing history.
type InvoicePage struct {
	Invoices []*model.Invoice
	Page     int
	PageSize int
	Total    int
}

// LedgerUseCase is the only writer of subscriptions, invoices and payments.
type LedgerUseCase interface {
	CreatePending(ctx context.Context, sub *model.Subscription) error
	// ActivatePending atomically moves the pending subscription for txnID to
	// active and writes its paid invoice and succeeded payment. It returns
	// domain.ErrNoPendingSubscription when there is nothing pending to move.
	ActivatePending(ctx context.Context, txnID string) (*Activation, error)
	FailPending(ctx context.Context, txnID string) (*model.Subscription, error)
	// ExpireAbandoned fails pending subscriptions created before olderThan.
	ExpireAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error)
	Cancel(ctx context.Context, accountID, subscriptionID, reason string) (*model.Subscription, error)
	RecordRefund(ctx context.Context, txnID, reason string) (*model.Payment, error)

	FindByTransaction(ctx context.Context, txnID string) (*model.Subscription, error)
	FindPendingByTransaction(ctx context.Context, txnID string) (*model.Subscription, error)
	ListByAccount(ctx context.Context, accountID string) ([]*model.Subscription, error)
	ListByStatus(ctx context.Context, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error)
	ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Subscription, error)
	ListInvoices(ctx context.Context, accountID string, page int) (*InvoicePage, error)
	GetInvoice(ctx context.Context, accountID, invoiceID string) (*InvoiceDetail, error)
	ListPayments(ctx context.Context, invoiceID string) ([]*model.Payment, error)
	DaysUntilRenewal(ctx context.Context, subscriptionID string) (int, error)
}

type ledgerUC struct {
	tm       repository.TransactionManager
	subs     repository.SubscriptionRepository
	invoices repository.InvoiceRepository
	payments repository.PaymentRepository
	plans    repository.PlanRepository
	accounts repository.AccountRepository
	clock    Clock
	log      *zerolog.Logger
}

func NewLedgerUseCase(
	tm repository.TransactionManager,
	subs repository.SubscriptionRepository,
	invoices repository.InvoiceRepository,
	payments repository.PaymentRepository,
	plans repository.PlanRepository,
	accounts repository.AccountRepository,
	clock Clock,
	logger *zerolog.Logger,
) *ledgerUC {
	if clock == nil {
		clock = SystemClock{}
	}
	return &ledgerUC{
		tm:       tm,
		subs:     subs,
		invoices: invoices,
		payments: payments,
		plans:    plans,
		accounts: accounts,
		clock:    clock,
		log:      logger,
	}
}

func (l *ledgerUC) CreatePending(ctx context.Context, sub *model.Subscription) error {
	if sub == nil || sub.ProviderTxnID == "" || !sub.IsPending() {
		return domain.ErrInvalidArgument
	}
	return l.subs.Create(ctx, repository.NoTX, sub)
}

func (l *ledgerUC) ActivatePending(ctx context.Context, txnID string) (*Activation, error) {
	if txnID == "" {
		return nil, domain.ErrInvalidArgument
	}
	var out *Activation
	err := l.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		pending, err := l.subs.FindPendingByTxnID(ctx, tx, txnID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrNoPendingSubscription
			}
			return err
		}

		now := l.clock.Now()
		start, end := pending.Period(now)
		sub, ok, err := l.subs.TransitionFromPending(ctx, tx, txnID, model.SubscriptionStatusActive, &start, &end, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNoPendingSubscription
		}

		label := sub.PlanID
		if plan, err := l.plans.FindByID(ctx, tx, sub.PlanID); err == nil {
			label = plan.Label()
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		inv, err := model.NewPaidInvoice(uuid.NewString(), newInvoiceNumber(now), sub, label, start, end, now)
		if err != nil {
			return err
		}
		if err := l.invoices.Create(ctx, tx, inv); err != nil {
			return fmt.Errorf("create invoice: %w", err)
		}

		pay, err := model.NewSucceededPayment(uuid.NewString(), inv, now)
		if err != nil {
			return err
		}
		if err := l.payments.Create(ctx, tx, pay); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		if err := l.accounts.UpdateSubscriptionPointer(ctx, tx, sub.AccountID, sub.ID, sub.PlanID, string(model.SubscriptionStatusActive), &end); err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("update account: %w", err)
		}

		out = &Activation{Subscription: sub, Invoice: inv, Payment: pay}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *ledgerUC) FailPending(ctx context.Context, txnID string) (*model.Subscription, error) {
	if txnID == "" {
		return nil, domain.ErrInvalidArgument
	}
	sub, ok, err := l.subs.TransitionFromPending(ctx, repository.NoTX, txnID, model.SubscriptionStatusFailed, nil, nil, l.clock.Now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNoPendingSubscription
	}
	return sub, nil
}

func (l *ledgerUC) ExpireAbandoned(ctx context.Context, olderThan time.Time, limit int) (int, error) {
	stale, err := l.subs.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, s := range stale {
		if _, err := l.FailPending(ctx, s.ProviderTxnID); err != nil {
			if errors.Is(err, domain.ErrNoPendingSubscription) {
				continue
			}
			return n, err
		}
		n++
		if l.log != nil {
			l.log.Info().Str("subscription_id", s.ID).Str("transaction_id", s.ProviderTxnID).Msg("abandoned pending subscription failed")
		}
	}
	return n, nil
}

func (l *ledgerUC) Cancel(ctx context.Context, accountID, subscriptionID, reason string) (*model.Subscription, error) {
	var out *model.Subscription
	err := l.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		sub, err := l.subs.FindByID(ctx, tx, subscriptionID)
		if err != nil {
			return err
		}
		if sub.AccountID != accountID {
			return domain.ErrNotFound
		}
		if !sub.Cancelable() {
			return fmt.Errorf("%w: subscription is %s", domain.ErrInvalidArgument, sub.Status)
		}
		now := l.clock.Now()
		ok, err := l.subs.Cancel(ctx, tx, sub.ID, reason, now)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: subscription is no longer cancelable", domain.ErrInvalidArgument)
		}
		sub.Status = model.SubscriptionStatusCanceled
		sub.CanceledAt = &now
		sub.CancellationReason = reason
		sub.UpdatedAt = now

		acc, err := l.accounts.FindByID(ctx, tx, accountID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		if acc != nil && acc.CurrentSubscriptionID != nil && *acc.CurrentSubscriptionID == sub.ID {
			if err := l.accounts.UpdateSubscriptionStatus(ctx, tx, accountID, string(model.SubscriptionStatusCanceled)); err != nil {
				return err
			}
		}
		out = sub
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *ledgerUC) RecordRefund(ctx context.Context, txnID, reason string) (*model.Payment, error) {
	var out *model.Payment
	err := l.tm.WithTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted}, func(ctx context.Context, tx repository.Tx) error {
		orig, err := l.payments.FindSucceededByTxnID(ctx, tx, txnID)
		if err != nil {
			return err
		}
		existing, err := l.payments.ListByTxnID(ctx, tx, txnID)
		if err != nil {
			return err
		}
		for _, p := range existing {
			if p.Status == model.PaymentStatusRefunded {
				return fmt.Errorf("%w: transaction %s already refunded", domain.ErrAlreadyExists, txnID)
			}
		}
		ref, err := model.NewRefundPayment(uuid.NewString(), orig, reason, l.clock.Now())
		if err != nil {
			return err
		}
		if err := l.payments.Create(ctx, tx, ref); err != nil {
			return err
		}
		out = ref
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (l *ledgerUC) FindByTransaction(ctx context.Context, txnID string) (*model.Subscription, error) {
	return l.subs.FindByTxnID(ctx, repository.NoTX, txnID)
}

func (l *ledgerUC) FindPendingByTransaction(ctx context.Context, txnID string) (*model.Subscription, error) {
	return l.subs.FindPendingByTxnID(ctx, repository.NoTX, txnID)
}

func (l *ledgerUC) ListByAccount(ctx context.Context, accountID string) ([]*model.Subscription, error) {
	return l.subs.ListByAccount(ctx, repository.NoTX, accountID)
}

func (l *ledgerUC) ListByStatus(ctx context.Context, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error) {
	return l.subs.ListByStatus(ctx, repository.NoTX, status, limit)
}

func (l *ledgerUC) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]*model.Subscription, error) {
	return l.subs.ListPendingOlderThan(ctx, repository.NoTX, olderThan, limit)
}

func (l *ledgerUC) ListInvoices(ctx context.Context, accountID string, page int) (*InvoicePage, error) {
	if page < 1 {
		page = 1
	}
	total, err := l.invoices.CountByAccount(ctx, repository.NoTX, accountID)
	if err != nil {
		return nil, err
	}
	items, err := l.invoices.ListByAccount(ctx, repository.NoTX, accountID, (page-1)*InvoicePageSize, InvoicePageSize)
	if err != nil {
		return nil, err
	}
	return &InvoicePage{Invoices: items, Page: page, PageSize: InvoicePageSize, Total: total}, nil
}

func (l *ledgerUC) GetInvoice(ctx context.Context, accountID, invoiceID string) (*InvoiceDetail, error) {
	inv, err := l.invoices.FindByID(ctx, repository.NoTX, invoiceID)
	if err != nil {
		return nil, err
	}
	if inv.AccountID != accountID {
		return nil, domain.ErrNotFound
	}
	pays, err := l.ListPayments(ctx, inv.ID)
	if err != nil {
		return nil, err
	}
	return &InvoiceDetail{Invoice: inv, Payments: pays}, nil
}

func (l *ledgerUC) ListPayments(ctx context.Context, invoiceID string) ([]*model.Payment, error) {
	return l.payments.ListByInvoice(ctx, repository.NoTX, invoiceID)
}

func (l *ledgerUC) DaysUntilRenewal(ctx context.Context, subscriptionID string) (int, error) {
	sub, err := l.subs.FindByID(ctx, repository.NoTX, subscriptionID)
	if err != nil {
		return 0, err
	}
	return sub.DaysUntilRenewal(l.clock.Now()), nil
}

func newInvoiceNumber(at time.Time) string {
	return "INV-" + ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String()
}
