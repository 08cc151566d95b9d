package coupon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rentora/checkout/internal/domain/plan"
)

type stubCoupons struct {
	coupons map[string]*Coupon
}

func (s *stubCoupons) FindByCode(_ context.Context, code string) (*Coupon, error) {
	c, ok := s.coupons[code]
	if !ok {
		return nil, ErrNotFound
	}
	return c, nil
}

type stubPlans struct {
	plans map[string]*plan.Plan
}

func (s *stubPlans) GetByID(_ context.Context, id string) (*plan.Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, plan.ErrNotFound
	}
	return p, nil
}

func (s *stubPlans) List(_ context.Context) ([]plan.Plan, error) {
	return nil, nil
}

func newTestEvaluator(coupons map[string]*Coupon) *Evaluator {
	e := NewEvaluator(
		&stubCoupons{coupons: coupons},
		&stubPlans{plans: map[string]*plan.Plan{
			"basic":   {ID: "basic", DiscountedPrice: decimal.NewFromInt(299), Active: true},
			"premium": {ID: "premium", DiscountedPrice: decimal.NewFromInt(599), Active: true},
		}},
	)
	e.now = func() time.Time {
		return time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)
	}
	return e
}

func validCoupon() *Coupon {
	return &Coupon{
		Code:          "SAVE50",
		PlanID:        "basic",
		DiscountType:  DiscountFixed,
		DiscountValue: decimal.NewFromInt(50),
		ExpiresAt:     time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC),
		UsageLimit:    1000,
		UsedCount:     10,
		Active:        true,
	}
}

func TestEvaluate(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("valid coupon prices the plan", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": validCoupon()})

		price, err := e.Evaluate(ctx, "SAVE50", "basic")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(249).Equal(price), "got %s", price)
	})

	t.Run("unknown code", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(nil)

		_, err := e.Evaluate(ctx, "GHOST", "basic")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("codes are case sensitive", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": validCoupon()})

		_, err := e.Evaluate(ctx, "save50", "basic")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("wrong plan", func(t *testing.T) {
		t.Parallel()
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": validCoupon()})

		_, err := e.Evaluate(ctx, "SAVE50", "premium")
		assert.ErrorIs(t, err, ErrNotApplicable)
	})

	t.Run("inactive", func(t *testing.T) {
		t.Parallel()
		c := validCoupon()
		c.Active = false
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": c})

		_, err := e.Evaluate(ctx, "SAVE50", "basic")
		assert.ErrorIs(t, err, ErrInactive)
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()
		c := validCoupon()
		c.ExpiresAt = time.Date(2026, 8, 27, 11, 59, 59, 0, time.UTC)
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": c})

		_, err := e.Evaluate(ctx, "SAVE50", "basic")
		assert.ErrorIs(t, err, ErrExpired)
	})

	t.Run("usage limit reached", func(t *testing.T) {
		t.Parallel()
		c := validCoupon()
		c.UsedCount = c.UsageLimit
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": c})

		_, err := e.Evaluate(ctx, "SAVE50", "basic")
		assert.ErrorIs(t, err, ErrUsageLimitReached)
	})

	t.Run("zero usage limit is unlimited", func(t *testing.T) {
		t.Parallel()
		c := validCoupon()
		c.UsageLimit = 0
		c.UsedCount = 1_000_000
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": c})

		_, err := e.Evaluate(ctx, "SAVE50", "basic")
		assert.NoError(t, err)
	})

	t.Run("evaluation does not redeem", func(t *testing.T) {
		t.Parallel()
		c := validCoupon()
		e := newTestEvaluator(map[string]*Coupon{"SAVE50": c})

		for range 5 {
			_, err := e.Evaluate(ctx, "SAVE50", "basic")
			require.NoError(t, err)
		}
		assert.Equal(t, 10, c.UsedCount)
	})
}
