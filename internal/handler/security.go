package handler

import (
	"net/http"
	"strings"

	"github.com/velles/storefront/internal/domain/auth"
)

// authenticate verifies the bearer token and stores the principal in the
// request context. All failures answer with the same generic 401.
func (h *Handler) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}

		principal, err := h.tokens.Verify(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), principal)))
	})
}

// principalFrom fetches the principal placed by authenticate. Reaching a
// protected handler without one is a routing bug; callers treat ok=false as
// a 401.
func principalFrom(r *http.Request) (auth.Principal, bool) {
	return auth.PrincipalFrom(r.Context())
}
