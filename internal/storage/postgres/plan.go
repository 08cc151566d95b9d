package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/checkout/internal/domain/plan"
)

const (
	getPlanByIDSQL = `SELECT id, name, original_price, discounted_price, duration_days, features, is_active
		FROM plans WHERE id = $1`

	listPlansSQL = `SELECT id, name, original_price, discounted_price, duration_days, features, is_active
		FROM plans WHERE is_active = TRUE ORDER BY discounted_price`
)

var _ plan.Repository = (*PlanRepository)(nil)

// PlanRepository implements plan.Repository backed by PostgreSQL.
type PlanRepository struct {
	pool *pgxpool.Pool
}

// NewPlanRepository returns a PlanRepository that uses the given pool.
func NewPlanRepository(pool *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{pool: pool}
}

// GetByID looks up a plan by id. Returns plan.ErrNotFound when no such plan
// exists.
func (r *PlanRepository) GetByID(ctx context.Context, id string) (*plan.Plan, error) {
	rows, err := r.pool.Query(ctx, getPlanByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding plan %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPlan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, plan.ErrNotFound
		}
		return nil, fmt.Errorf("finding plan %q: %w", id, err)
	}
	return &p, nil
}

// List returns all active plans ordered by price.
func (r *PlanRepository) List(ctx context.Context) ([]plan.Plan, error) {
	rows, err := r.pool.Query(ctx, listPlansSQL)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}

	plans, err := pgx.CollectRows(rows, scanPlan)
	if err != nil {
		return nil, fmt.Errorf("listing plans: %w", err)
	}
	return plans, nil
}

func scanPlan(row pgx.CollectableRow) (plan.Plan, error) {
	var (
		p        plan.Plan
		features []byte
	)
	err := row.Scan(
		&p.ID, &p.Name, &p.OriginalPrice, &p.DiscountedPrice,
		&p.DurationDays, &features, &p.Active,
	)
	if err != nil {
		return plan.Plan{}, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return plan.Plan{}, fmt.Errorf("decoding plan features: %w", err)
		}
	}
	return p, nil
}
