package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Status is the order lifecycle state. Orders start in StatusCreated.
// StatusSuccess is applied at most once and never left. StatusFailed records
// the latest observed gateway failure and is not a dead end: the gateway
// accepts fresh payment attempts on the same order, so a failed order still
// moves to StatusSuccess when a later attempt succeeds.
type Status string

const (
	StatusCreated Status = "created"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

var (
	// ErrOrderNotFound indicates no order exists for the given order id.
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderIDConflict indicates a freshly generated order id is already
	// taken. Retried internally; surfaced only when retries are exhausted.
	ErrOrderIDConflict = errors.New("order id conflict")
	// ErrOrderMismatch indicates the confirmation request names a different
	// plan or coupon than the one the order was created for.
	ErrOrderMismatch = errors.New("order does not match request")
	// ErrOrderFinalized indicates the order's stored state conflicts with the
	// requested transition and cannot be reconciled.
	ErrOrderFinalized = errors.New("order already finalized")
	// ErrPaymentNotSuccessful indicates the gateway does not (yet) report a
	// successful payment for the order. No state is mutated; safe to retry.
	ErrPaymentNotSuccessful = errors.New("payment not successful")
)

// Order is a single checkout attempt. OrderID doubles as the idempotency key:
// at most one order may ever transition into StatusSuccess for a given id.
type Order struct {
	OrderID       string
	UserID        string
	PlanID        string
	Amount        decimal.Decimal
	Currency      string
	CouponCode    string
	GatewayTxnID  string
	BankReference string
	PaymentMethod string
	Status        Status
	CreatedAt     time.Time
	PaymentTime   *time.Time
}

// Confirmation carries the gateway-reported payment details applied when an
// order transitions to StatusSuccess.
type Confirmation struct {
	GatewayTxnID  string
	BankReference string
	PaymentMethod string
	PaymentTime   time.Time
}

// Store persists orders and applies the confirmation side effects.
type Store interface {
	// Create inserts a new order in StatusCreated. Returns
	// ErrOrderIDConflict when the order id is already taken.
	Create(ctx context.Context, o *Order) error

	// Get returns the order for the given id, or ErrOrderNotFound.
	Get(ctx context.Context, orderID string) (*Order, error)

	// MarkFailed transitions the order from StatusCreated to StatusFailed.
	// A no-op once the order has left StatusCreated.
	MarkFailed(ctx context.Context, orderID string) error

	// ApplySuccess atomically transitions the order into StatusSuccess,
	// grants the order's plan as the user's membership, and redeems the
	// order's coupon if one was used. The three effects commit or fail
	// together. Any non-success order is eligible, StatusFailed included:
	// a later successful attempt repairs a failed order. When a concurrent
	// caller already applied the transition, the stored order is returned
	// with applied=false and no side effects re-run.
	ApplySuccess(ctx context.Context, orderID string, conf Confirmation) (o *Order, applied bool, err error)
}
