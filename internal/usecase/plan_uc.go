package usecase

import (
	"context"
	"sort"
	"time"

	"socials-billing/internal/domain"
	"socials-billing/internal/domain/model"
	"socials-billing/internal/domain/ports/repository"
)

// PlanUseCase manages purchasable plans.
type PlanUseCase struct {
	repo repository.PlanRepository
}

// NewPlanUseCase constructs a PlanUseCase.
func NewPlanUseCase(repo repository.PlanRepository) *PlanUseCase {
	return &PlanUseCase{repo: repo}
}

// Save creates or updates a plan. Prices must not be negative.
func (uc *PlanUseCase) Save(ctx context.Context, plan *model.Plan) error {
	if plan.IsZero() || plan.Name == "" || plan.MonthlyPrice < 0 || plan.AnnualPrice < 0 {
		return domain.ErrInvalidArgument
	}
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	return uc.repo.Save(ctx, repository.NoTX, plan)
}

// Get retrieves a plan by ID.
func (uc *PlanUseCase) Get(ctx context.Context, id string) (*model.Plan, error) {
	return uc.repo.FindByID(ctx, repository.NoTX, id)
}

// List returns active plans in display order.
func (uc *PlanUseCase) List(ctx context.Context) ([]*model.Plan, error) {
	plans, err := uc.repo.ListActive(ctx, repository.NoTX)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(plans, func(i, j int) bool { return plans[i].DisplayOrder < plans[j].DisplayOrder })
	return plans, nil
}
