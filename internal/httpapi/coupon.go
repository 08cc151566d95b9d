package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
)

type verifyCouponRequest struct {
	CouponCode string `json:"couponCode"`
	PlanID     string `json:"planId"`
}

func (req verifyCouponRequest) validate() error {
	if req.CouponCode == "" {
		return errors.Wrap(errBadRequest, "couponCode is required")
	}
	if req.PlanID == "" {
		return errors.Wrap(errBadRequest, "planId is required")
	}
	return nil
}

type verifyCouponResponse struct {
	DiscountedPrice float64 `json:"discountedPrice"`
}

// verifyCoupon prices a coupon without redeeming it; usage counters only move
// when a paid order is confirmed.
func (h *Handler) verifyCoupon(w http.ResponseWriter, r *http.Request) {
	var req verifyCouponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, errors.Wrap(errBadRequest, "malformed JSON body"))
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, r, err)
		return
	}

	price, err := h.coupons.Evaluate(r.Context(), req.CouponCode, req.PlanID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, verifyCouponResponse{DiscountedPrice: price.InexactFloat64()})
}
