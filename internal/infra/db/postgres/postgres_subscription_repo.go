package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

// Ensure subscriptionRepo implements repository.SubscriptionRepository
var _ repository.SubscriptionRepository = (*subscriptionRepo)(nil)

// FieldCipher seals sensitive columns at rest. security.Keyring implements it.
type FieldCipher interface {
	EncryptField(plaintext string) (string, error)
	DecryptField(stored string) (string, error)
}

type subscriptionRepo struct {
	pool   *pgxpool.Pool
	cipher FieldCipher
}

// NewSubscriptionRepo stores phone numbers through cipher; nil stores them as given.
func NewSubscriptionRepo(pool *pgxpool.Pool, cipher FieldCipher) *subscriptionRepo {
	return &subscriptionRepo{pool: pool, cipher: cipher}
}

const subColumns = `id, account_id, plan_id, billing_interval, status, current_period_start,
       current_period_end, trial_start, trial_end, canceled_at, cancellation_reason,
       cancel_at_period_end, amount_billed, currency, phone_number, payment_method,
       provider_txn_id, reference, created_at, updated_at`

func (r *subscriptionRepo) Create(ctx context.Context, tx repository.Tx, s *model.Subscription) error {
	const q = `
INSERT INTO subscriptions (` + subColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20);`

	phone, err := r.seal(s.PhoneNumber)
	if err != nil {
		return err
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		s.ID, s.AccountID, s.PlanID, s.BillingInterval, s.Status, s.CurrentPeriodStart,
		s.CurrentPeriodEnd, s.TrialStart, s.TrialEnd, s.CanceledAt, s.CancellationReason,
		s.CancelAtPeriodEnd, s.AmountBilled, s.Currency, phone, s.PaymentMethod,
		s.ProviderTxnID, s.Reference, s.CreatedAt, s.UpdatedAt,
	)
	return mapWriteErr("create subscription", err)
}

func (r *subscriptionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subColumns+` FROM subscriptions WHERE id=$1`+forUpdate(tx), id)
}

func (r *subscriptionRepo) FindByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx, `SELECT `+subColumns+` FROM subscriptions WHERE provider_txn_id=$1`+forUpdate(tx), txnID)
}

func (r *subscriptionRepo) FindPendingByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Subscription, error) {
	return r.queryOne(ctx, tx,
		`SELECT `+subColumns+` FROM subscriptions WHERE provider_txn_id=$1 AND status='pending'`+forUpdate(tx), txnID)
}

func (r *subscriptionRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.Subscription, error) {
	return r.queryMany(ctx, tx, "list subscriptions by account",
		`SELECT `+subColumns+` FROM subscriptions WHERE account_id=$1 ORDER BY created_at DESC`, accountID)
}

func (r *subscriptionRepo) ListByStatus(ctx context.Context, tx repository.Tx, status model.SubscriptionStatus, limit int) ([]*model.Subscription, error) {
	return r.queryMany(ctx, tx, "list subscriptions by status",
		`SELECT `+subColumns+` FROM subscriptions WHERE status=$1 ORDER BY created_at DESC LIMIT $2`, status, limitOrAll(limit))
}

func (r *subscriptionRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.Subscription, error) {
	return r.queryMany(ctx, tx, "list stale pending",
		`SELECT `+subColumns+` FROM subscriptions
		  WHERE status='pending' AND created_at < $1
		  ORDER BY created_at ASC LIMIT $2`, olderThan, limitOrAll(limit))
}

// TransitionFromPending is a single UPDATE guarded by status='pending'. Of two
// concurrent callers, the second blocks on the row lock and then matches nothing.
func (r *subscriptionRepo) TransitionFromPending(ctx context.Context, tx repository.Tx, txnID string, to model.SubscriptionStatus, periodStart, periodEnd *time.Time, now time.Time) (*model.Subscription, bool, error) {
	if to == model.SubscriptionStatusPending {
		return nil, false, fmt.Errorf("%w: transition to pending", domain.ErrInvalidArgument)
	}
	const q = `
UPDATE subscriptions
   SET status=$2,
       current_period_start=COALESCE($3, current_period_start),
       current_period_end=COALESCE($4, current_period_end),
       updated_at=$5
 WHERE provider_txn_id=$1 AND status='pending'
RETURNING ` + subColumns + `;`
	row, err := pickRow(ctx, r.pool, tx, q, txnID, to, periodStart, periodEnd, now)
	if err != nil {
		return nil, false, err
	}
	s, err := r.scan(row)
	if err != nil {
		err = mapReadErr("transition subscription", err)
		if errors.Is(err, domain.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return s, true, nil
}

func (r *subscriptionRepo) Cancel(ctx context.Context, tx repository.Tx, id, reason string, at time.Time) (bool, error) {
	const q = `
UPDATE subscriptions
   SET status='canceled', canceled_at=$2, cancellation_reason=$3, updated_at=$2
 WHERE id=$1 AND status IN ('active','trialing','past_due','paused');`
	cmd, err := execSQL(ctx, r.pool, tx, q, id, at, reason)
	if err != nil {
		return false, mapWriteErr("cancel subscription", err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *subscriptionRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Subscription, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	s, err := r.scan(row)
	if err != nil {
		return nil, mapReadErr("find subscription", err)
	}
	return s, nil
}

func (r *subscriptionRepo) queryMany(ctx context.Context, tx repository.Tx, op, q string, args ...interface{}) ([]*model.Subscription, error) {
	rows, err := queryRows(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, mapQueryErr(op, err)
	}
	return collect(op, rows, r.scan)
}

func (r *subscriptionRepo) scan(row rowScanner) (*model.Subscription, error) {
	var s model.Subscription
	if err := row.Scan(
		&s.ID, &s.AccountID, &s.PlanID, &s.BillingInterval, &s.Status, &s.CurrentPeriodStart,
		&s.CurrentPeriodEnd, &s.TrialStart, &s.TrialEnd, &s.CanceledAt, &s.CancellationReason,
		&s.CancelAtPeriodEnd, &s.AmountBilled, &s.Currency, &s.PhoneNumber, &s.PaymentMethod,
		&s.ProviderTxnID, &s.Reference, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if r.cipher != nil {
		phone, err := r.cipher.DecryptField(s.PhoneNumber)
		if err != nil {
			return nil, fmt.Errorf("decrypt phone: %w", err)
		}
		s.PhoneNumber = phone
	}
	return &s, nil
}

func (r *subscriptionRepo) seal(phone string) (string, error) {
	if r.cipher == nil {
		return phone, nil
	}
	v, err := r.cipher.EncryptField(phone)
	if err != nil {
		return "", fmt.Errorf("%w: encrypt phone: %v", domain.ErrOperationFailed, err)
	}
	return v, nil
}

// limitOrAll maps a non-positive limit to no limit (LIMIT NULL).
func limitOrAll(limit int) interface{} {
	if limit <= 0 {
		return nil
	}
	return limit
}
