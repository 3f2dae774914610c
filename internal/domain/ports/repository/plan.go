package repository

import (
	"context"

	"socials-billing/internal/domain/model"
)

// PlanRepository holds the plan catalog, keyed by slug ("pro", "business").
type PlanRepository interface {
	// Save inserts or replaces the plan with the same ID.
	Save(ctx context.Context, tx Tx, plan *model.Plan) error
	// FindByID returns domain.ErrNotFound for an unknown slug. Inactive plans
	// are still returned so historic subscriptions can resolve their label.
	FindByID(ctx context.Context, tx Tx, id string) (*model.Plan, error)
	// ListActive returns the purchasable plans in display order.
	ListActive(ctx context.Context, tx Tx) ([]*model.Plan, error)
}
