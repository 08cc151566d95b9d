// Package httpapi exposes the checkout core over HTTP. Every endpoint decodes
// into an explicit request struct, validates it field by field, and only then
// calls into the domain layer.
package httpapi

import (
	"context"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/rentora/checkout/internal/domain/auth"
	"github.com/rentora/checkout/internal/domain/checkout"
	"github.com/rentora/checkout/internal/domain/plan"
	"github.com/rentora/checkout/internal/domain/user"
)

// CheckoutService is the slice of the checkout orchestrator the handlers use.
type CheckoutService interface {
	CreateOrder(ctx context.Context, req checkout.CreateOrderRequest) (*checkout.CreateOrderResult, error)
	ConfirmPayment(ctx context.Context, req checkout.ConfirmRequest) (*checkout.Order, error)
}

// CouponVerifier prices a coupon against a plan without redeeming it.
type CouponVerifier interface {
	Evaluate(ctx context.Context, code, planID string) (decimal.Decimal, error)
}

// Prorator computes the plan-switch price.
type Prorator interface {
	PriceDelta(ctx context.Context, currentPlanID *string, newPlanID string) (decimal.Decimal, error)
}

// TokenVerifier resolves bearer tokens to caller identities.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// Handler serves the checkout HTTP API.
type Handler struct {
	checkout CheckoutService
	coupons  CouponVerifier
	prorator Prorator
	plans    plan.Repository
	users    user.Repository
	verifier TokenVerifier
}

// NewHandler wires the HTTP surface to its domain collaborators.
func NewHandler(
	svc CheckoutService,
	coupons CouponVerifier,
	prorator Prorator,
	plans plan.Repository,
	users user.Repository,
	verifier TokenVerifier,
) *Handler {
	return &Handler{
		checkout: svc,
		coupons:  coupons,
		prorator: prorator,
		plans:    plans,
		users:    users,
		verifier: verifier,
	}
}

// Routes returns the API router. The gateway webhook and plan listing are
// public; everything else requires a bearer token.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /plans", h.listPlans)
	mux.HandleFunc("POST /gateway/webhook", h.gatewayWebhook)

	mux.Handle("POST /checkout/order", h.requireUser(h.createOrder))
	mux.Handle("POST /checkout/confirm", h.requireUser(h.confirmPayment))
	mux.Handle("GET /checkout/proration/{planId}", h.requireUser(h.proration))
	mux.Handle("POST /coupon/verify", h.requireUser(h.verifyCoupon))

	return mux
}
