package repository

import (
	"context"

	"socials-billing/internal/domain/model"
)

type InvoiceRepository interface {
	Create(ctx context.Context, tx Tx, inv *model.Invoice) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Invoice, error)
	FindByTxnID(ctx context.Context, tx Tx, txnID string) (*model.Invoice, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string, offset, limit int) ([]*model.Invoice, error)
	CountByAccount(ctx context.Context, tx Tx, accountID string) (int, error)
}
