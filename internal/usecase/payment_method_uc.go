package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

// Compile-time check
var _ PaymentMethodUseCase = (*paymentMethodUC)(nil)

// PaymentMethodUseCase manages saved EcoCash numbers.
type PaymentMethodUseCase interface {
	List(ctx context.Context, accountID string) ([]*model.PaymentMethod, error)
	// Add saves a normalized number; the first number of an account becomes its default.
	Add(ctx context.Context, accountID, phone string) (*model.PaymentMethod, error)
	SetDefault(ctx context.Context, accountID, methodID string) error
}

type paymentMethodUC struct {
	tm      repository.TransactionManager
	methods repository.PaymentMethodRepository
	clock   Clock
}

func NewPaymentMethodUseCase(tm repository.TransactionManager, methods repository.PaymentMethodRepository, clock Clock) *paymentMethodUC {
	if clock == nil {
		clock = SystemClock{}
	}
	return &paymentMethodUC{tm: tm, methods: methods, clock: clock}
}

func (u *paymentMethodUC) List(ctx context.Context, accountID string) ([]*model.PaymentMethod, error) {
	return u.methods.ListByAccount(ctx, repository.NoTX, accountID)
}

func (u *paymentMethodUC) Add(ctx context.Context, accountID, phone string) (*model.PaymentMethod, error) {
	msisdn := NormalizePhone(phone)
	if !ValidMSISDN(msisdn) {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidPhone, phone)
	}
	pm, err := model.NewPaymentMethod(uuid.NewString(), accountID, msisdn, u.clock.Now())
	if err != nil {
		return nil, err
	}
	err = u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		existing, err := u.methods.ListByAccount(ctx, tx, accountID)
		if err != nil {
			return err
		}
		for _, e := range existing {
			if e.PhoneNumber == msisdn && e.IsActive {
				return fmt.Errorf("%w: payment method %s", domain.ErrAlreadyExists, msisdn)
			}
		}
		pm.IsDefault = len(existing) == 0
		return u.methods.Create(ctx, tx, pm)
	})
	if err != nil {
		return nil, err
	}
	return pm, nil
}

func (u *paymentMethodUC) SetDefault(ctx context.Context, accountID, methodID string) error {
	return u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		pm, err := u.methods.FindByID(ctx, tx, methodID)
		if err != nil {
			return err
		}
		if pm.AccountID != accountID || !pm.IsActive {
			return domain.ErrNotFound
		}
		if err := u.methods.ClearDefault(ctx, tx, accountID); err != nil {
			return err
		}
		ok, err := u.methods.SetDefault(ctx, tx, methodID)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotFound
		}
		return nil
	})
}
