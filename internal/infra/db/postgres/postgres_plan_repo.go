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

// Ensure interface compliance
var _ repository.PlanRepository = (*PostgresPlanRepo)(nil)

type PostgresPlanRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresPlanRepo(pool *pgxpool.Pool) *PostgresPlanRepo {
	return &PostgresPlanRepo{pool: pool}
}

const planColumns = `id, name, display_name, slug, description, monthly_price, annual_price,
       annual_discount_percent, trial_days, require_card_for_trial, features, is_active,
       display_order, created_at, updated_at`

func (r *PostgresPlanRepo) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	const q = `
INSERT INTO plans (id, name, display_name, slug, description, monthly_price, annual_price,
                   annual_discount_percent, trial_days, require_card_for_trial, features, is_active,
                   display_order, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
ON CONFLICT (id) DO UPDATE SET
  name=$2, display_name=$3, slug=$4, description=$5, monthly_price=$6, annual_price=$7,
  annual_discount_percent=$8, trial_days=$9, require_card_for_trial=$10, features=$11,
  is_active=$12, display_order=$13, updated_at=$15;`

	features, err := json.Marshal(p.Features)
	if err != nil {
		return fmt.Errorf("%w: plan features: %v", domain.ErrInvalidArgument, err)
	}
	if p.Features == nil {
		features = []byte("{}")
	}
	_, err = execSQL(ctx, r.pool, tx, q,
		p.ID, p.Name, p.DisplayName, p.Slug, p.Description, p.MonthlyPrice, p.AnnualPrice,
		p.AnnualDiscountPercent, p.TrialDays, p.RequireCardForTrial, features, p.IsActive,
		p.DisplayOrder, p.CreatedAt, p.UpdatedAt,
	)
	return mapWriteErr("save plan", err)
}

func (r *PostgresPlanRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE id=$1`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	p, err := scanPlan(row)
	if err != nil {
		return nil, mapReadErr("find plan", err)
	}
	return p, nil
}

func (r *PostgresPlanRepo) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	q := `SELECT ` + planColumns + ` FROM plans WHERE is_active ORDER BY display_order ASC, id ASC`
	rows, err := queryRows(ctx, r.pool, tx, q)
	if err != nil {
		return nil, mapQueryErr("list plans", err)
	}
	return collect("list plans", rows, scanPlan)
}

func scanPlan(row rowScanner) (*model.Plan, error) {
	var (
		p        model.Plan
		features []byte
	)
	if err := row.Scan(
		&p.ID, &p.Name, &p.DisplayName, &p.Slug, &p.Description, &p.MonthlyPrice, &p.AnnualPrice,
		&p.AnnualDiscountPercent, &p.TrialDays, &p.RequireCardForTrial, &features, &p.IsActive,
		&p.DisplayOrder, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	p.Features = map[string]any{}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return nil, err
		}
	}
	return &p, nil
}
