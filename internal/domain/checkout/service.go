package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/rentora/checkout/internal/domain/plan"
	"github.com/rentora/checkout/internal/domain/user"
)

// maxOrderIDAttempts bounds the regenerate-and-retry loop for order id
// collisions. 48-bit ids make even one collision unlikely; hitting the bound
// means something is systematically wrong.
const maxOrderIDAttempts = 3

// CouponEvaluator computes the discounted price a coupon yields for a plan.
type CouponEvaluator interface {
	Evaluate(ctx context.Context, code, planID string) (decimal.Decimal, error)
}

// CreateOrderRequest holds the input for starting a checkout.
type CreateOrderRequest struct {
	UserID     string
	PlanID     string
	CouponCode string
	// Name and Mobile are the buyer details forwarded to the gateway;
	// they may differ from the stored user profile.
	Name   string
	Mobile string
}

// CreateOrderResult holds the output of a successfully started checkout.
type CreateOrderResult struct {
	OrderID      string
	SessionToken string
	Amount       decimal.Decimal
	Currency     string
}

// ConfirmRequest holds the input for confirming a payment. PlanID and
// CouponCode are cross-checked against the stored order when non-empty; the
// gateway webhook path supplies only the order id.
type ConfirmRequest struct {
	OrderID    string
	PlanID     string
	CouponCode string
}

// Service is the checkout orchestrator: it creates gateway orders and, on
// verification, durably records the transaction and grants membership exactly
// once per order id.
type Service struct {
	users    user.Repository
	plans    plan.Repository
	coupons  CouponEvaluator
	gateway  Gateway
	store    Store
	currency string

	newOrderID func() (string, error)
	now        func() time.Time

	tracer          trace.Tracer
	ordersCreated   metric.Int64Counter
	ordersConfirmed metric.Int64Counter
}

// NewService creates the checkout orchestrator.
func NewService(
	users user.Repository,
	plans plan.Repository,
	coupons CouponEvaluator,
	gateway Gateway,
	store Store,
	currency string,
) *Service {
	meter := otel.Meter("rentora.checkout")
	ordersCreated, _ := meter.Int64Counter("checkout.orders.created")
	ordersConfirmed, _ := meter.Int64Counter("checkout.orders.confirmed")

	return &Service{
		users:           users,
		plans:           plans,
		coupons:         coupons,
		gateway:         gateway,
		store:           store,
		currency:        currency,
		newOrderID:      NewOrderID,
		now:             time.Now,
		tracer:          otel.Tracer("rentora.checkout"),
		ordersCreated:   ordersCreated,
		ordersConfirmed: ordersConfirmed,
	}
}

// CreateOrder prices the plan (applying a coupon when provided), registers
// the order with the gateway, and only then persists it in StatusCreated.
// The gateway call comes first so a timed-out attempt never leaves a local
// order without a gateway counterpart.
func (s *Service) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "CreateOrder",
		trace.WithAttributes(attribute.String("plan.id", req.PlanID)))
	defer span.End()

	usr, err := s.users.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "load user")
	}

	pl, err := s.plans.GetByID(ctx, req.PlanID)
	if err != nil {
		return nil, errors.Wrap(err, "load plan")
	}

	amount := pl.DiscountedPrice
	if req.CouponCode != "" {
		amount, err = s.coupons.Evaluate(ctx, req.CouponCode, req.PlanID)
		if err != nil {
			return nil, errors.Wrap(err, "evaluate coupon")
		}
	}

	customer := Customer{
		ID:     usr.ID,
		Email:  usr.Email,
		Name:   req.Name,
		Mobile: req.Mobile,
	}
	if customer.Name == "" {
		customer.Name = usr.Name
	}
	if customer.Mobile == "" {
		customer.Mobile = usr.Mobile
	}

	for range maxOrderIDAttempts {
		orderID, err := s.newOrderID()
		if err != nil {
			return nil, errors.Wrap(err, "generate order id")
		}

		token, err := s.gateway.CreateOrder(ctx, orderID, amount, s.currency, customer)
		if errors.Is(err, ErrDuplicateOrderID) {
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "gateway create order")
		}

		o := &Order{
			OrderID:    orderID,
			UserID:     usr.ID,
			PlanID:     pl.ID,
			Amount:     amount,
			Currency:   s.currency,
			CouponCode: req.CouponCode,
			Status:     StatusCreated,
			CreatedAt:  s.now(),
		}
		if err := s.store.Create(ctx, o); err != nil {
			if errors.Is(err, ErrOrderIDConflict) {
				// The id slipped past the gateway but hit our unique
				// index: 48-bit ids do collide eventually.
				continue
			}
			return nil, errors.Wrap(err, "persist order")
		}

		s.ordersCreated.Add(ctx, 1)
		zctx.From(ctx).Info("Order created",
			zap.String("order_id", orderID),
			zap.String("plan_id", pl.ID),
			zap.String("amount", amount.String()),
		)

		return &CreateOrderResult{
			OrderID:      orderID,
			SessionToken: token,
			Amount:       amount,
			Currency:     s.currency,
		}, nil
	}

	return nil, ErrOrderIDConflict
}

// ConfirmPayment verifies the payment against the gateway and applies the
// confirmation side effects exactly once. It is safe under concurrent
// invocation for the same order id: the store's compare-and-set lets only one
// caller past, and losers receive the already-applied order.
func (s *Service) ConfirmPayment(ctx context.Context, req ConfirmRequest) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "ConfirmPayment",
		trace.WithAttributes(attribute.String("order.id", req.OrderID)))
	defer span.End()

	rec, err := s.gateway.FetchPaymentStatus(ctx, req.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "fetch payment status")
	}

	o, err := s.store.Get(ctx, req.OrderID)
	if err != nil {
		return nil, errors.Wrap(err, "load order")
	}
	if err := matchesOrder(o, req); err != nil {
		return nil, err
	}

	// Idempotent replay: the payment was already applied, return the stored
	// record without touching anything.
	if o.Status == StatusSuccess {
		return o, nil
	}

	switch rec.State {
	case PaymentStateSuccess:
		// fall through to apply
	case PaymentStateFailed:
		// Record the failure. The gateway accepts fresh attempts on the
		// same order, so a later successful attempt still applies through
		// this same path.
		if err := s.store.MarkFailed(ctx, req.OrderID); err != nil {
			return nil, errors.Wrap(err, "mark order failed")
		}
		return nil, ErrPaymentNotSuccessful
	default:
		// Still pending at the gateway; the order stays in StatusCreated so
		// the caller can retry once the payment settles.
		return nil, ErrPaymentNotSuccessful
	}

	applied, wasApplied, err := s.store.ApplySuccess(ctx, req.OrderID, Confirmation{
		GatewayTxnID:  rec.GatewayTxnID,
		BankReference: rec.BankReference,
		PaymentMethod: rec.Method,
		PaymentTime:   rec.PaymentTime,
	})
	if err != nil {
		// The gateway believes the payment succeeded but the local write
		// failed: report loudly for out-of-band reconciliation.
		zctx.From(ctx).Error("Confirmed payment could not be applied",
			zap.String("order_id", req.OrderID),
			zap.String("gateway_txn_id", rec.GatewayTxnID),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "apply confirmed payment")
	}

	if wasApplied {
		s.ordersConfirmed.Add(ctx, 1)
		zctx.From(ctx).Info("Payment confirmed",
			zap.String("order_id", req.OrderID),
			zap.String("gateway_txn_id", rec.GatewayTxnID),
			zap.String("method", rec.Method),
		)
	}

	return applied, nil
}

// matchesOrder cross-checks the confirmation request against the stored
// order. Empty request fields are not checked; the webhook path only knows
// the order id.
func matchesOrder(o *Order, req ConfirmRequest) error {
	if req.PlanID != "" && req.PlanID != o.PlanID {
		return ErrOrderMismatch
	}
	if req.CouponCode != "" && req.CouponCode != o.CouponCode {
		return ErrOrderMismatch
	}
	return nil
}
