package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/velles/storefront/internal/domain/auth"
	"github.com/velles/storefront/internal/domain/catalog"
	"github.com/velles/storefront/internal/domain/order"
	"github.com/velles/storefront/internal/domain/user"
)

// errorBody is the generic error envelope.
type errorBody struct {
	Error string `json:"error"`
}

// fieldErrorBody carries field-keyed validation errors.
type fieldErrorBody struct {
	Errors map[string]string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeDomainError maps a domain error to its HTTP representation.
// Validation and not-found errors surface with detail; authentication
// failures stay generic; everything else is a logged 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *order.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, fieldErrorBody{Errors: verr.Fields})
		return
	}

	var pnf *order.ProductsNotFoundError
	if errors.As(err, &pnf) {
		writeJSON(w, http.StatusNotFound, struct {
			Error    string   `json:"error"`
			Products []string `json:"products"`
		}{Error: "products not found", Products: pnf.IDs})
		return
	}

	switch {
	case errors.Is(err, order.ErrInvalidTransition):
		writeJSON(w, http.StatusBadRequest, fieldErrorBody{
			Errors: map[string]string{"status": err.Error()},
		})
	case errors.Is(err, order.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "order not found"})
	case errors.Is(err, order.ErrFulfillmentNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, catalog.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "product not found"})
	case errors.Is(err, user.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "user not found"})
	case errors.Is(err, user.ErrEmailTaken):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, user.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: err.Error()})
	case errors.Is(err, auth.ErrUnauthenticated):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}

// decodeJSON parses the request body into dst, reporting malformed JSON as a
// field-keyed validation error on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, fieldErrorBody{
			Errors: map[string]string{"body": "invalid JSON"},
		})
		return false
	}
	return true
}
