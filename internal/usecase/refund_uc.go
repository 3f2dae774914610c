package usecase

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/adapter"
)

// Compile-time check
var _ RefundUseCase = (*refundUC)(nil)

type RefundUseCase interface {
	// Refund asks the provider to reverse txnID and records a refunded payment row.
	Refund(ctx context.Context, txnID, reason string) (*model.Payment, error)
}

type refundUC struct {
	ledger  LedgerUseCase
	gateway adapter.PushGateway
	log     *zerolog.Logger
}

func NewRefundUseCase(ledger LedgerUseCase, gateway adapter.PushGateway, logger *zerolog.Logger) *refundUC {
	return &refundUC{ledger: ledger, gateway: gateway, log: logger}
}

func (u *refundUC) Refund(ctx context.Context, txnID, reason string) (*model.Payment, error) {
	if txnID == "" {
		return nil, domain.ErrInvalidArgument
	}
	if reason == "" {
		reason = "requested by admin"
	}
	res, err := u.gateway.Refund(ctx, txnID, reason)
	if err != nil {
		return nil, fmt.Errorf("%w: refund %s: %v", domain.ErrProviderUnavailable, txnID, err)
	}
	if !res.OK {
		return nil, fmt.Errorf("%w: %s", domain.ErrProviderRejected, res.Message)
	}
	p, err := u.ledger.RecordRefund(ctx, txnID, reason)
	if err != nil {
		if u.log != nil {
			u.log.Error().Err(err).Str("transaction_id", txnID).Msg("provider refunded but refund row not recorded")
		}
		return nil, fmt.Errorf("%w: refund %s: %v", domain.ErrPersistenceAfterExternalSuccess, txnID, err)
	}
	if u.log != nil {
		u.log.Info().Str("transaction_id", txnID).Int64("amount", p.Amount).Msg("refund recorded")
	}
	return p, nil
}
