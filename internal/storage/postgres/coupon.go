package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/checkout/internal/domain/coupon"
)

// Codes are matched case-sensitively as stored; the primary key on
// coupons.code is the unique index the data model requires.
const getCouponByCodeSQL = `SELECT code, plan_id, discount_type, discount_value,
		expires_at, usage_limit, used_count, is_active
	FROM coupons WHERE code = $1`

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code. Returns coupon.ErrNotFound when
// no such coupon exists. Soft-disabled coupons are returned as stored; the
// evaluator decides how inactive coupons fail.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon %q: %w", code, err)
	}
	return &c, nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		usageLimit   int32
		usedCount    int32
	)
	err := row.Scan(
		&c.Code, &c.PlanID, &discountType, &c.DiscountValue,
		&c.ExpiresAt, &usageLimit, &usedCount, &c.Active,
	)
	if err != nil {
		return coupon.Coupon{}, err
	}
	c.DiscountType = coupon.DiscountType(discountType)
	c.UsageLimit = int(usageLimit)
	c.UsedCount = int(usedCount)
	return c, nil
}
