package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// RawDiscount returns the undiscounted deduction the coupon takes off price,
// before any clamping.
func RawDiscount(c *Coupon, price decimal.Decimal) decimal.Decimal {
	switch c.DiscountType {
	case DiscountPercentage:
		return price.Mul(c.DiscountValue).Div(hundred)
	case DiscountFixed:
		return c.DiscountValue
	default:
		return decimal.Zero
	}
}

// FinalPrice applies the coupon to price. The result is clamped so the price
// never goes negative, and rounded to 2 decimal places.
func FinalPrice(c *Coupon, price decimal.Decimal) decimal.Decimal {
	final := price.Sub(RawDiscount(c, price))
	if final.IsNegative() {
		final = decimal.Zero
	}
	return final.Round(2)
}
