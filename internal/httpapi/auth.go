package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/rentora/checkout/internal/domain/auth"
)

type identityKey struct{}

// identityFrom returns the authenticated caller stored by requireUser.
func identityFrom(ctx context.Context) (*auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(*auth.Identity)
	return id, ok
}

// requireUser authenticates the request's bearer token and stores the
// resolved identity in the request context.
func (h *Handler) requireUser(next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeError(w, r, auth.ErrUnauthorized)
			return
		}

		id, err := h.verifier.Verify(r.Context(), token)
		if err != nil {
			writeError(w, r, err)
			return
		}

		ctx := context.WithValue(r.Context(), identityKey{}, id)
		next(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || token == "" {
		return "", false
	}
	return token, true
}
