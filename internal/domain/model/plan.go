package model

import (
	"fmt"
	"time"

	"socials-billing/internal/domain"
)

type BillingInterval string

const (
	BillingMonthly BillingInterval = "monthly"
	BillingAnnual  BillingInterval = "annual"
)

// ParseBillingInterval accepts "monthly" or "annual"; empty defaults to monthly.
func ParseBillingInterval(s string) (BillingInterval, error) {
	switch BillingInterval(s) {
	case "", BillingMonthly:
		return BillingMonthly, nil
	case BillingAnnual:
		return BillingAnnual, nil
	}
	return "", fmt.Errorf("%w: billing interval %q", domain.ErrInvalidArgument, s)
}

// PeriodDays is the length of one billing period.
func (b BillingInterval) PeriodDays() int {
	if b == BillingAnnual {
		return 365
	}
	return 30
}

// Plan is a purchasable subscription tier. Prices are minor units (cents).
type Plan struct {
	ID                    string
	Name                  string
	DisplayName           string
	Slug                  string
	Description           string
	MonthlyPrice          int64
	AnnualPrice           int64
	AnnualDiscountPercent float64
	TrialDays             int
	RequireCardForTrial   bool
	Features              map[string]any
	IsActive              bool
	DisplayOrder          int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

func (p *Plan) IsZero() bool { return p == nil || p.ID == "" }

// PriceFor resolves the charge for one period of the given interval.
// A plan with no positive price for the interval cannot be pushed to the provider.
func (p *Plan) PriceFor(interval BillingInterval) (int64, error) {
	var price int64
	switch interval {
	case BillingMonthly:
		price = p.MonthlyPrice
	case BillingAnnual:
		price = p.AnnualPrice
	default:
		return 0, fmt.Errorf("%w: billing interval %q", domain.ErrInvalidArgument, interval)
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: plan=%s interval=%s", domain.ErrConfiguration, p.ID, interval)
	}
	return price, nil
}

// AnnualSavings is what a year costs monthly minus the annual price.
func (p *Plan) AnnualSavings() int64 {
	if p.AnnualPrice <= 0 || p.MonthlyPrice <= 0 {
		return 0
	}
	return p.MonthlyPrice*12 - p.AnnualPrice
}

// Label is the human name shown on invoices and status pages.
func (p *Plan) Label() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Name
}

// NewPlan validates and constructs a plan.
func NewPlan(id, name, displayName string, monthly, annual int64) (*Plan, error) {
	if id == "" || name == "" || monthly < 0 || annual < 0 {
		return nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	return &Plan{
		ID:           id,
		Name:         name,
		DisplayName:  displayName,
		Slug:         id,
		MonthlyPrice: monthly,
		AnnualPrice:  annual,
		Features:     map[string]any{},
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
