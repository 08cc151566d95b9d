package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/rentora/checkout/internal/domain/plan"
)

// Evaluator validates a coupon against a plan and computes the discounted
// price. It is pure over repository reads: evaluation never mutates usage
// counters.
type Evaluator struct {
	coupons Repository
	plans   plan.Repository
	now     func() time.Time
}

// NewEvaluator creates an Evaluator backed by the given repositories.
func NewEvaluator(coupons Repository, plans plan.Repository) *Evaluator {
	return &Evaluator{coupons: coupons, plans: plans, now: time.Now}
}

// Evaluate checks the coupon and returns the final price for the plan.
// Checks run in a fixed order: existence, plan match, active flag, expiry,
// usage limit, then plan lookup and discount computation.
func (e *Evaluator) Evaluate(ctx context.Context, code, planID string) (decimal.Decimal, error) {
	c, err := e.coupons.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return decimal.Zero, ErrNotFound
		}
		return decimal.Zero, errors.Wrap(err, "lookup coupon")
	}

	if c.PlanID != planID {
		return decimal.Zero, ErrNotApplicable
	}
	if !c.Active {
		return decimal.Zero, ErrInactive
	}
	if c.ExpiresAt.Before(e.now()) {
		return decimal.Zero, ErrExpired
	}
	if c.Exhausted() {
		return decimal.Zero, ErrUsageLimitReached
	}

	p, err := e.plans.GetByID(ctx, planID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "lookup plan")
	}

	return FinalPrice(c, p.DiscountedPrice), nil
}
