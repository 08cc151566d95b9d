package user

import (
	"context"

	"github.com/go-faster/errors"
)

// ErrNotFound indicates the requested user does not exist.
var ErrNotFound = errors.New("user not found")

// User is the slice of the marketplace user record this core needs: an
// identity plus the single currently active membership plan. Past plans are
// not modeled.
type User struct {
	ID               string
	Email            string
	Name             string
	Mobile           string
	MembershipPlanID *string
}

// Repository defines read access to user records. The membership reference is
// mutated only through the order store's confirmation transaction.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
}
