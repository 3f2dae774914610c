package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, account_id, invoice_id, subscription_id, provider_txn_id, amount, currency,
       status, payment_method_id, failure_code, failure_message, description, created_at`

// Create inserts a payment row. A second succeeded (or refunded) row for the
// same transaction violates a partial unique index and maps to ErrAlreadyExists.
func (r *paymentRepo) Create(ctx context.Context, tx repository.Tx, p *model.Payment) error {
	const q = `
INSERT INTO payments (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13);`
	_, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.AccountID, p.InvoiceID, p.SubscriptionID, p.ProviderTxnID, p.Amount, p.Currency,
		p.Status, p.PaymentMethodID, p.FailureCode, p.FailureMessage, p.Description, p.CreatedAt,
	)
	return mapWriteErr("create payment", err)
}

func (r *paymentRepo) FindSucceededByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Payment, error) {
	q := `SELECT ` + paymentColumns + ` FROM payments WHERE provider_txn_id=$1 AND status='succeeded'` + forUpdate(tx)
	row, err := pickRow(ctx, r.pool, tx, q, txnID)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(row)
	if err != nil {
		return nil, mapReadErr("find payment", err)
	}
	return p, nil
}

func (r *paymentRepo) ListByTxnID(ctx context.Context, tx repository.Tx, txnID string) ([]*model.Payment, error) {
	const op = "list payments by txn"
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+paymentColumns+` FROM payments WHERE provider_txn_id=$1 ORDER BY created_at ASC`, txnID)
	if err != nil {
		return nil, mapQueryErr(op, err)
	}
	return collect(op, rows, scanPayment)
}

func (r *paymentRepo) ListByInvoice(ctx context.Context, tx repository.Tx, invoiceID string) ([]*model.Payment, error) {
	const op = "list payments by invoice"
	rows, err := queryRows(ctx, r.pool, tx,
		`SELECT `+paymentColumns+` FROM payments WHERE invoice_id=$1 ORDER BY created_at ASC`, invoiceID)
	if err != nil {
		return nil, mapQueryErr(op, err)
	}
	return collect(op, rows, scanPayment)
}

func scanPayment(row rowScanner) (*model.Payment, error) {
	var p model.Payment
	if err := row.Scan(
		&p.ID, &p.AccountID, &p.InvoiceID, &p.SubscriptionID, &p.ProviderTxnID, &p.Amount, &p.Currency,
		&p.Status, &p.PaymentMethodID, &p.FailureCode, &p.FailureMessage, &p.Description, &p.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
