package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage takes a percentage off the plan's discounted price.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed takes a fixed amount off the plan's discounted price.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon exists for the given code.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotApplicable is returned when the coupon belongs to a different plan.
	ErrNotApplicable = errors.New("coupon not applicable to plan")
	// ErrInactive is returned when the coupon has been soft-disabled.
	ErrInactive = errors.New("coupon inactive")
	// ErrExpired is returned when the coupon's expiry date has passed.
	ErrExpired = errors.New("coupon expired")
	// ErrUsageLimitReached is returned when the coupon has exhausted its
	// allowed redemptions.
	ErrUsageLimitReached = errors.New("coupon usage limit reached")
)

// Coupon is a plan-scoped discount code. Codes are case-sensitive as stored.
// UsedCount must never exceed UsageLimit; redemption happens only inside the
// payment-confirmation transaction, never at evaluation time, so abandoned
// checkouts do not consume usage.
type Coupon struct {
	Code          string
	PlanID        string
	DiscountType  DiscountType
	DiscountValue decimal.Decimal
	ExpiresAt     time.Time
	UsageLimit    int
	UsedCount     int
	Active        bool
}

// Exhausted reports whether the coupon has no redemptions left. A
// non-positive UsageLimit means unlimited.
func (c *Coupon) Exhausted() bool {
	return c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit
}

// Repository provides coupon lookup. Redemption goes through the order store
// so it shares the confirmation transaction.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
}
