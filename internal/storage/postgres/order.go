package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rentora/checkout/internal/domain/checkout"
)

const (
	insertOrderSQL = `INSERT INTO orders
		(order_id, user_id, plan_id, amount, currency, coupon_code, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	getOrderSQL = `SELECT order_id, user_id, plan_id, amount, currency, coupon_code,
			gateway_txn_id, bank_reference, payment_method, status, created_at, payment_time
		FROM orders WHERE order_id = $1`

	markOrderFailedSQL = `UPDATE orders SET status = 'failed'
		WHERE order_id = $1 AND status = 'created'`

	// The status guard is the compare-and-set: only one caller ever moves
	// the row into 'success'. A 'failed' row stays eligible because the
	// gateway accepts fresh payment attempts on the same order id.
	confirmOrderSQL = `UPDATE orders
		SET status = 'success', gateway_txn_id = $2, bank_reference = $3,
			payment_method = $4, payment_time = $5
		WHERE order_id = $1 AND status <> 'success'
		RETURNING user_id, plan_id, amount, currency, coupon_code, created_at`

	grantMembershipSQL = `UPDATE users SET membership_plan_id = $2 WHERE id = $1`

	// The used_count guard preserves the usage invariant even when
	// concurrent evaluations raced past the limit check.
	redeemCouponSQL = `UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND (usage_limit <= 0 OR used_count < usage_limit)`

	pgUniqueViolation = "23505"
)

var _ checkout.Store = (*OrderStore)(nil)

// OrderStore implements checkout.Store backed by PostgreSQL. The order row is
// the single source of truth for "has this payment already been applied".
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Create persists a new order. Returns checkout.ErrOrderIDConflict when the
// order id hits the unique index.
func (s *OrderStore) Create(ctx context.Context, o *checkout.Order) error {
	_, err := s.pool.Exec(ctx, insertOrderSQL,
		o.OrderID, o.UserID, o.PlanID, o.Amount, o.Currency,
		o.CouponCode, string(o.Status), o.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return checkout.ErrOrderIDConflict
		}
		return fmt.Errorf("creating order %q: %w", o.OrderID, err)
	}
	return nil
}

// Get returns the order for the given id, or checkout.ErrOrderNotFound.
func (s *OrderStore) Get(ctx context.Context, orderID string) (*checkout.Order, error) {
	rows, err := s.pool.Query(ctx, getOrderSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("finding order %q: %w", orderID, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, checkout.ErrOrderNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", orderID, err)
	}
	return &o, nil
}

// MarkFailed transitions the order out of 'created' into 'failed'. Orders
// that already left 'created' are untouched.
func (s *OrderStore) MarkFailed(ctx context.Context, orderID string) error {
	_, err := s.pool.Exec(ctx, markOrderFailedSQL, orderID)
	if err != nil {
		return fmt.Errorf("marking order %q failed: %w", orderID, err)
	}
	return nil
}

// ApplySuccess runs the three confirmation effects (order success, membership
// grant, coupon redemption) in one transaction, gated by the status
// compare-and-set. Any non-success row is eligible, so an order that saw a
// failed attempt is repaired once a later attempt succeeds. Losers of a
// concurrent race observe zero updated rows, re-read the order, and return it
// without re-running side effects.
func (s *OrderStore) ApplySuccess(ctx context.Context, orderID string, conf checkout.Confirmation) (*checkout.Order, bool, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("beginning confirm transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	o := checkout.Order{
		OrderID:       orderID,
		GatewayTxnID:  conf.GatewayTxnID,
		BankReference: conf.BankReference,
		PaymentMethod: conf.PaymentMethod,
		Status:        checkout.StatusSuccess,
	}
	paymentTime := conf.PaymentTime
	o.PaymentTime = &paymentTime

	err = tx.QueryRow(ctx, confirmOrderSQL,
		orderID, conf.GatewayTxnID, conf.BankReference, conf.PaymentMethod, conf.PaymentTime,
	).Scan(&o.UserID, &o.PlanID, &o.Amount, &o.Currency, &o.CouponCode, &o.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race: the row is already 'success'. Read the
			// winner's result.
			return s.resolveFinalized(ctx, orderID)
		}
		return nil, false, fmt.Errorf("confirming order %q: %w", orderID, err)
	}

	if _, err := tx.Exec(ctx, grantMembershipSQL, o.UserID, o.PlanID); err != nil {
		return nil, false, fmt.Errorf("granting membership for order %q: %w", orderID, err)
	}

	if o.CouponCode != "" {
		if _, err := tx.Exec(ctx, redeemCouponSQL, o.CouponCode); err != nil {
			return nil, false, fmt.Errorf("redeeming coupon %q for order %q: %w", o.CouponCode, orderID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, false, fmt.Errorf("committing confirm of order %q: %w", orderID, err)
	}

	return &o, true, nil
}

// resolveFinalized handles the CAS-miss path of ApplySuccess. The guard only
// skips rows already in 'success', so the re-read should find the winner's
// result; anything else is surfaced as a terminal conflict.
func (s *OrderStore) resolveFinalized(ctx context.Context, orderID string) (*checkout.Order, bool, error) {
	o, err := s.Get(ctx, orderID)
	if err != nil {
		return nil, false, err
	}
	if o.Status == checkout.StatusSuccess {
		return o, false, nil
	}
	return nil, false, checkout.ErrOrderFinalized
}

func scanOrder(row pgx.CollectableRow) (checkout.Order, error) {
	var (
		o      checkout.Order
		status string
	)
	err := row.Scan(
		&o.OrderID, &o.UserID, &o.PlanID, &o.Amount, &o.Currency, &o.CouponCode,
		&o.GatewayTxnID, &o.BankReference, &o.PaymentMethod, &status,
		&o.CreatedAt, &o.PaymentTime,
	)
	if err != nil {
		return checkout.Order{}, err
	}
	o.Status = checkout.Status(status)
	return o, nil
}
