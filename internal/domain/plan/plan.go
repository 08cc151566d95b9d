package plan

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound indicates the requested plan does not exist.
var ErrNotFound = errors.New("plan not found")

// Plan is a purchasable membership tier. Pricing is admin-editable; everything
// else is reference data as far as checkout is concerned.
type Plan struct {
	ID              string
	Name            string
	OriginalPrice   decimal.Decimal
	DiscountedPrice decimal.Decimal
	DurationDays    int
	Features        []string
	Active          bool
}

// Repository defines read access to plan records.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Plan, error)
	List(ctx context.Context) ([]Plan, error)
}
