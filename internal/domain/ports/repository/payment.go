package repository

import (
	"context"

	"socials-billing/internal/domain/model"
)

// PaymentRepository only inserts; succeeded rows are never updated.
type PaymentRepository interface {
	Create(ctx context.Context, tx Tx, p *model.Payment) error
	FindSucceededByTxnID(ctx context.Context, tx Tx, txnID string) (*model.Payment, error)
	ListByTxnID(ctx context.Context, tx Tx, txnID string) ([]*model.Payment, error)
	ListByInvoice(ctx context.Context, tx Tx, invoiceID string) ([]*model.Payment, error)
}

type PaymentMethodRepository interface {
	Create(ctx context.Context, tx Tx, pm *model.PaymentMethod) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.PaymentMethod, error)
	ListByAccount(ctx context.Context, tx Tx, accountID string) ([]*model.PaymentMethod, error)
	ClearDefault(ctx context.Context, tx Tx, accountID string) error
	SetDefault(ctx context.Context, tx Tx, id string) (bool, error)
}
