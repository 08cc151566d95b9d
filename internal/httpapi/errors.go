package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rentora/checkout/internal/domain/auth"
	"github.com/rentora/checkout/internal/domain/checkout"
	"github.com/rentora/checkout/internal/domain/coupon"
	"github.com/rentora/checkout/internal/domain/plan"
	"github.com/rentora/checkout/internal/domain/user"
)

type errorResponse struct {
	Error string `json:"error"`
}

// errBadRequest wraps client-side validation failures with a stable sentinel
// so writeError can map them without a per-field error type.
var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors to their HTTP status. Unknown errors become an
// opaque 500; the full error goes to the log, never to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, public := classify(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		public = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: public})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, plan.ErrNotFound),
		errors.Is(err, user.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, checkout.ErrOrderNotFound),
		errors.Is(err, checkout.ErrPaymentNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, coupon.ErrNotApplicable),
		errors.Is(err, coupon.ErrInactive),
		errors.Is(err, coupon.ErrExpired),
		errors.Is(err, coupon.ErrUsageLimitReached),
		errors.Is(err, checkout.ErrPaymentNotSuccessful),
		errors.Is(err, checkout.ErrOrderMismatch),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, checkout.ErrOrderFinalized),
		errors.Is(err, checkout.ErrOrderIDConflict):
		return http.StatusConflict, err.Error()
	case errors.Is(err, checkout.ErrGatewayUnavailable),
		errors.Is(err, checkout.ErrGatewayRejected):
		return http.StatusBadGateway, "payment gateway error"
	default:
		return http.StatusInternalServerError, ""
	}
}
