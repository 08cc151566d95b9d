package plan

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Prorator computes the price charged when a user switches membership plans.
type Prorator struct {
	plans Repository
}

// NewProrator creates a Prorator backed by the given plan repository.
func NewProrator(plans Repository) *Prorator {
	return &Prorator{plans: plans}
}

// PriceDelta returns the amount to charge for moving from the current plan to
// the new one. With no current plan the new plan's full discounted price is
// charged. Downgrades are charged the full price of the new plan: remaining
// value on the old plan is not credited. Upgrades pay the difference, which
// may be zero for equally priced plans.
func (p *Prorator) PriceDelta(ctx context.Context, currentPlanID *string, newPlanID string) (decimal.Decimal, error) {
	next, err := p.plans.GetByID(ctx, newPlanID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get new plan")
	}

	if currentPlanID == nil {
		return next.DiscountedPrice, nil
	}

	current, err := p.plans.GetByID(ctx, *currentPlanID)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "get current plan")
	}

	if current.DiscountedPrice.GreaterThan(next.DiscountedPrice) {
		return next.DiscountedPrice, nil
	}

	return next.DiscountedPrice.Sub(current.DiscountedPrice), nil
}
