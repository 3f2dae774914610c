package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*accountRepo)(nil)

type accountRepo struct {
	pool *pgxpool.Pool
}

func NewAccountRepo(pool *pgxpool.Pool) *accountRepo {
	return &accountRepo{pool: pool}
}

func (r *accountRepo) Save(ctx context.Context, tx repository.Tx, a *model.Account) error {
	const q = `
INSERT INTO accounts (id, email, name, plan_id, phone_number, current_subscription_id,
                      subscription_status, subscription_ends_at, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, plan_id=$4, phone_number=$5, current_subscription_id=$6,
  subscription_status=$7, subscription_ends_at=$8, updated_at=$10;`
	_, err := execSQL(ctx, r.pool, tx, q,
		a.ID, a.Email, a.Name, a.PlanID, a.PhoneNumber, a.CurrentSubscriptionID,
		a.SubscriptionStatus, a.SubscriptionEndsAt, a.CreatedAt, a.UpdatedAt,
	)
	return mapWriteErr("save account", err)
}

func (r *accountRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Account, error) {
	q := `
SELECT id, email, name, plan_id, phone_number, current_subscription_id,
       subscription_status, subscription_ends_at, created_at, updated_at
  FROM accounts
 WHERE id=$1` + forUpdate(tx)
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	var a model.Account
	if err := row.Scan(
		&a.ID, &a.Email, &a.Name, &a.PlanID, &a.PhoneNumber, &a.CurrentSubscriptionID,
		&a.SubscriptionStatus, &a.SubscriptionEndsAt, &a.CreatedAt, &a.UpdatedAt,
	); err != nil {
		return nil, mapReadErr("find account", err)
	}
	return &a, nil
}

func (r *accountRepo) UpdateSubscriptionPointer(ctx context.Context, tx repository.Tx, accountID, subscriptionID, planID, status string, endsAt *time.Time) error {
	const q = `
UPDATE accounts
   SET current_subscription_id=$2, plan_id=$3, subscription_status=$4,
       subscription_ends_at=$5, updated_at=NOW()
 WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, accountID, subscriptionID, planID, status, endsAt)
	if err != nil {
		return mapWriteErr("update account subscription", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *accountRepo) UpdateSubscriptionStatus(ctx context.Context, tx repository.Tx, accountID, status string) error {
	const q = `UPDATE accounts SET subscription_status=$2, updated_at=NOW() WHERE id=$1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, accountID, status)
	if err != nil {
		return mapWriteErr("update account status", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
