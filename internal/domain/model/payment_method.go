package model

import (
	"time"

	"socials-billing/internal/domain"
)

// PaymentMethod is a saved mobile-money number. One per account may be default.
type PaymentMethod struct {
	ID            string
	AccountID     string
	PhoneNumber   string // normalized MSISDN
	PhoneVerified bool
	IsDefault     bool
	IsActive      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewPaymentMethod(id, accountID, phone string, now time.Time) (*PaymentMethod, error) {
	if id == "" || accountID == "" || phone == "" {
		return nil, domain.ErrInvalidArgument
	}
	return &PaymentMethod{
		ID:          id,
		AccountID:   accountID,
		PhoneNumber: phone,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}
