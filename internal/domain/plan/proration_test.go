package plan

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	plans map[string]*Plan
}

func (s *stubRepo) GetByID(_ context.Context, id string) (*Plan, error) {
	p, ok := s.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return p, nil
}

func (s *stubRepo) List(_ context.Context) ([]Plan, error) {
	out := make([]Plan, 0, len(s.plans))
	for _, p := range s.plans {
		out = append(out, *p)
	}
	return out, nil
}

func testProrator() *Prorator {
	return NewProrator(&stubRepo{plans: map[string]*Plan{
		"basic":   {ID: "basic", DiscountedPrice: decimal.NewFromInt(299)},
		"premium": {ID: "premium", DiscountedPrice: decimal.NewFromInt(599)},
		"mirror":  {ID: "mirror", DiscountedPrice: decimal.NewFromInt(299)},
	}})
}

func TestPriceDelta(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	basic, premium := "basic", "premium"

	t.Run("no current plan pays full price", func(t *testing.T) {
		t.Parallel()
		delta, err := testProrator().PriceDelta(ctx, nil, "premium")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(599).Equal(delta), "got %s", delta)
	})

	t.Run("upgrade pays the difference", func(t *testing.T) {
		t.Parallel()
		delta, err := testProrator().PriceDelta(ctx, &basic, "premium")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(300).Equal(delta), "got %s", delta)
	})

	t.Run("downgrade pays full new price", func(t *testing.T) {
		t.Parallel()
		delta, err := testProrator().PriceDelta(ctx, &premium, "basic")
		require.NoError(t, err)
		assert.True(t, decimal.NewFromInt(299).Equal(delta), "got %s", delta)
	})

	t.Run("equal prices cost nothing", func(t *testing.T) {
		t.Parallel()
		delta, err := testProrator().PriceDelta(ctx, &basic, "mirror")
		require.NoError(t, err)
		assert.True(t, delta.IsZero(), "got %s", delta)
	})

	t.Run("unknown new plan", func(t *testing.T) {
		t.Parallel()
		_, err := testProrator().PriceDelta(ctx, &basic, "ghost")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("unknown current plan", func(t *testing.T) {
		t.Parallel()
		ghost := "ghost"
		_, err := testProrator().PriceDelta(ctx, &ghost, "premium")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
