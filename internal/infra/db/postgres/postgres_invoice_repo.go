package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

var _ repository.InvoiceRepository = (*invoiceRepo)(nil)

type invoiceRepo struct {
	pool *pgxpool.Pool
}

func NewInvoiceRepo(pool *pgxpool.Pool) *invoiceRepo {
	return &invoiceRepo{pool: pool}
}

const invoiceColumns = `id, number, account_id, subscription_id, provider_txn_id, status, amount_due,
       amount_paid, amount_remaining, currency, lines, issued_at, due_at, paid_at, attempted,
       attempt_count, description, created_at`

// Create inserts a new invoice. Invoices are append-only; there is no update path.
func (r *invoiceRepo) Create(ctx context.Context, tx repository.Tx, inv *model.Invoice) error {
	if err := inv.Validate(); err != nil {
		return err
	}
	lines, err := json.Marshal(inv.Lines)
	if err != nil {
		return fmt.Errorf("%w: invoice lines: %v", domain.ErrInvalidArgument, err)
	}
	if inv.Lines == nil {
		lines = []byte("[]")
	}
	const q = `
INSERT INTO invoices (` + invoiceColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18);`
	_, err = execSQL(ctx, r.pool, tx, q,
		inv.ID, inv.Number, inv.AccountID, inv.SubscriptionID, inv.ProviderTxnID, inv.Status, inv.AmountDue,
		inv.AmountPaid, inv.AmountRemaining, inv.Currency, lines, inv.IssuedAt, inv.DueAt, inv.PaidAt, inv.Attempted,
		inv.AttemptCount, inv.Description, inv.CreatedAt,
	)
	return mapWriteErr("create invoice", err)
}

func (r *invoiceRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Invoice, error) {
	return r.queryOne(ctx, tx, `SELECT `+invoiceColumns+` FROM invoices WHERE id=$1`, id)
}

func (r *invoiceRepo) FindByTxnID(ctx context.Context, tx repository.Tx, txnID string) (*model.Invoice, error) {
	return r.queryOne(ctx, tx, `SELECT `+invoiceColumns+` FROM invoices WHERE provider_txn_id=$1`, txnID)
}

func (r *invoiceRepo) ListByAccount(ctx context.Context, tx repository.Tx, accountID string, offset, limit int) ([]*model.Invoice, error) {
	const op = "list invoices"
	q := `SELECT ` + invoiceColumns + ` FROM invoices WHERE account_id=$1
	       ORDER BY issued_at DESC, id DESC OFFSET $2 LIMIT $3`
	rows, err := queryRows(ctx, r.pool, tx, q, accountID, offset, limitOrAll(limit))
	if err != nil {
		return nil, mapQueryErr(op, err)
	}
	return collect(op, rows, scanInvoice)
}

func (r *invoiceRepo) CountByAccount(ctx context.Context, tx repository.Tx, accountID string) (int, error) {
	row, err := pickRow(ctx, r.pool, tx, `SELECT COUNT(*) FROM invoices WHERE account_id=$1`, accountID)
	if err != nil {
		return 0, err
	}
	var n int
	if err := row.Scan(&n); err != nil {
		return 0, mapReadErr("count invoices", err)
	}
	return n, nil
}

func (r *invoiceRepo) queryOne(ctx context.Context, tx repository.Tx, q string, args ...interface{}) (*model.Invoice, error) {
	row, err := pickRow(ctx, r.pool, tx, q, args...)
	if err != nil {
		return nil, err
	}
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, mapReadErr("find invoice", err)
	}
	return inv, nil
}

func scanInvoice(row rowScanner) (*model.Invoice, error) {
	var (
		inv   model.Invoice
		lines []byte
	)
	if err := row.Scan(
		&inv.ID, &inv.Number, &inv.AccountID, &inv.SubscriptionID, &inv.ProviderTxnID, &inv.Status, &inv.AmountDue,
		&inv.AmountPaid, &inv.AmountRemaining, &inv.Currency, &lines, &inv.IssuedAt, &inv.DueAt, &inv.PaidAt, &inv.Attempted,
		&inv.AttemptCount, &inv.Description, &inv.CreatedAt,
	); err != nil {
		return nil, err
	}
	if len(lines) > 0 {
		if err := json.Unmarshal(lines, &inv.Lines); err != nil {
			return nil, err
		}
	}
	return &inv, nil
}
