package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

var _ repository.PaymentMethodRepository = (*paymentMethodRepo)(nil)

type paymentMethodRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentMethodRepo(pool *pgxpool.Pool) *paymentMethodRepo {
	return &paymentMethodRepo{pool: pool}
}

const methodColumns = `id, account_id, phone_number, phone_verified, is_default, is_active, created_at, updated_at`

func (r *paymentMethodRepo) Create(ctx context.Context, tx repository.Tx, pm *model.PaymentMethod) error {
	const q = `INSERT INTO payment_methods (` + methodColumns + `) VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`
	_, err := execSQL(ctx, r.pool, tx, q,
		pm.ID, pm.AccountID, pm.PhoneNumber, pm.PhoneVerified, pm.IsDefault, pm.IsActive, pm.CreatedAt, pm.UpdatedAt)
	return mapWriteErr("create payment method", err)
}

func (r *paymentMethodRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.PaymentMethod, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT `+methodColumns+` FROM payment_methods WHERE id=$1`+forUpdate(tx), id)
	if err != nil {
		return nil, err
	}
	pm, err := scanPaymentMethod(row)
	if err != nil {
		return nil, mapReadErr("find payment method", err)
	}
	return pm, nil
}

func (r *paymentMethodRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string) ([]*model.PaymentMethod, error) {
	const op = "list payment methods"
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+methodColumns+` FROM payment_methods
		  WHERE account_id=$1 AND is_active
		  ORDER BY is_default DESC, created_at ASC`, accountID)
	if err != nil {
		return nil, mapQueryErr(op, err)
	}
	return collect(op, rows, scanPaymentMethod)
}

func (r *paymentMethodRepo) ClearDefault(ctx context.Context, tx repository.Tx, accountID string) error {
	_, err := execSQL(ctx, r.pool, tx,
		`UPDATE payment_methods SET is_default=FALSE, updated_at=NOW() WHERE account_id=$1 AND is_default`, accountID)
	return mapWriteErr("clear default payment method", err)
}

func (r *paymentMethodRepo) SetDefault(ctx context.Context, tx repository.Tx, id string) (bool, error) {
	cmd, err := execSQL(ctx, r.pool, tx,
		`UPDATE payment_methods SET is_default=TRUE, updated_at=NOW() WHERE id=$1 AND is_active`, id)
	if err != nil {
		return false, mapWriteErr("set default payment method", err)
	}
	return cmd.RowsAffected() >= 1, nil
}

func scanPaymentMethod(row rowScanner) (*model.PaymentMethod, error) {
	var pm model.PaymentMethod
	if err := row.Scan(&pm.ID, &pm.AccountID, &pm.PhoneNumber, &pm.PhoneVerified, &pm.IsDefault, &pm.IsActive, &pm.CreatedAt, &pm.UpdatedAt); err != nil {
		return nil, err
	}
	return &pm, nil
}
