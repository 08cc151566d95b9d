package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-faster/errors"

	"github.com/rentora/checkout/internal/domain/checkout"
)

type createOrderRequest struct {
	PlanID     string `json:"planId"`
	CouponCode string `json:"couponCode,omitempty"`
	Name       string `json:"name"`
	Mobile     string `json:"mobile"`
}

func (req createOrderRequest) validate() error {
	if req.PlanID == "" {
		return errors.Wrap(errBadRequest, "planId is required")
	}
	if req.Mobile == "" {
		return errors.Wrap(errBadRequest, "mobile is required")
	}
	return nil
}

type createOrderResponse struct {
	OrderID      string  `json:"orderId"`
	SessionToken string  `json:"sessionToken"`
	Amount       float64 `json:"amount"`
	Currency     string  `json:"currency"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, errors.New("identity missing from context"))
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, "malformed JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.checkout.CreateOrder(r.Context(), checkout.CreateOrderRequest{
		UserID:     id.UserID,
		PlanID:     req.PlanID,
		CouponCode: req.CouponCode,
		Name:       req.Name,
		Mobile:     req.Mobile,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, createOrderResponse{
		OrderID:      res.OrderID,
		SessionToken: res.SessionToken,
		Amount:       res.Amount.InexactFloat64(),
		Currency:     res.Currency,
	})
}

type confirmRequest struct {
	OrderID    string `json:"orderId"`
	PlanID     string `json:"planId"`
	CouponCode string `json:"couponCode,omitempty"`
}

func (req confirmRequest) validate() error {
	if req.OrderID == "" {
		return errors.Wrap(errBadRequest, "orderId is required")
	}
	if req.PlanID == "" {
		return errors.Wrap(errBadRequest, "planId is required")
	}
	return nil
}

type orderResponse struct {
	OrderID       string     `json:"orderId"`
	UserID        string     `json:"userId"`
	PlanID        string     `json:"planId"`
	Amount        float64    `json:"amount"`
	Currency      string     `json:"currency"`
	CouponCode    string     `json:"couponCode,omitempty"`
	GatewayTxnID  string     `json:"gatewayTxnId,omitempty"`
	BankReference string     `json:"bankReference,omitempty"`
	PaymentMethod string     `json:"paymentMethod,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaymentTime   *time.Time `json:"paymentTime,omitempty"`
}

func toOrderResponse(o *checkout.Order) orderResponse {
	return orderResponse{
		OrderID:       o.OrderID,
		UserID:        o.UserID,
		PlanID:        o.PlanID,
		Amount:        o.Amount.InexactFloat64(),
		Currency:      o.Currency,
		CouponCode:    o.CouponCode,
		GatewayTxnID:  o.GatewayTxnID,
		BankReference: o.BankReference,
		PaymentMethod: o.PaymentMethod,
		Status:        string(o.Status),
		CreatedAt:     o.CreatedAt,
		PaymentTime:   o.PaymentTime,
	}
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, "malformed JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.checkout.ConfirmPayment(r.Context(), checkout.ConfirmRequest{
		OrderID:    req.OrderID,
		PlanID:     req.PlanID,
		CouponCode: req.CouponCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

type prorationResponse struct {
	PriceDelta float64 `json:"priceDelta"`
}

// proration quotes the price for the authenticated user switching to the
// given plan, based on their current membership.
func (h *Handler) proration(w http.ResponseWriter, r *http.Request) {
	id, ok := identityFrom(r.Context())
	if !ok {
		writeError(w, r, errors.New("identity missing from context"))
		return
	}

	planID := r.PathValue("planId")
	if planID == "" {
		writeError(w, r, errors.Wrap(errBadRequest, "planId is required"))
		return
	}

	usr, err := h.users.GetByID(r.Context(), id.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	delta, err := h.prorator.PriceDelta(r.Context(), usr.MembershipPlanID, planID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, prorationResponse{PriceDelta: delta.InexactFloat64()})
}

// gatewayWebhook handles asynchronous payment notifications. The payload is
// treated as a hint only: confirmation re-fetches the authoritative payment
// status from the gateway, so a forged webhook cannot grant membership.
func (h *Handler) gatewayWebhook(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Data struct {
			Order struct {
				OrderID string `json:"order_id"`
			} `json:"order"`
		} `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, "malformed JSON body"))
		return
	}
	if payload.Data.Order.OrderID == "" {
		writeError(w, r, errors.Wrap(errBadRequest, "order_id is required"))
		return
	}

	_, err := h.checkout.ConfirmPayment(r.Context(), checkout.ConfirmRequest{
		OrderID: payload.Data.Order.OrderID,
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"processed": true})
	case errors.Is(err, checkout.ErrPaymentNotSuccessful):
		// Acknowledge so the gateway does not retry a payment that is still
		// pending or failed; a later successful attempt sends its own event.
		writeJSON(w, http.StatusOK, map[string]bool{"processed": false})
	default:
		writeError(w, r, err)
	}
}
