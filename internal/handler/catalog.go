package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/velles/storefront/internal/domain/catalog"
	"github.com/velles/storefront/internal/domain/order"
	"github.com/velles/storefront/internal/domain/user"
)

type productRequest struct {
	ShopID     string          `json:"shop_id"`
	CategoryID string          `json:"category_id"`
	Name       string          `json:"name"`
	Image      string          `json:"image"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

type productResponse struct {
	ID         string `json:"id"`
	ShopID     string `json:"shop_id"`
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
	Image      string `json:"image"`
	Quantity   int    `json:"quantity"`
	Price      string `json:"price"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:         p.ID,
		ShopID:     p.ShopID,
		CategoryID: p.CategoryID,
		Name:       p.Name,
		Image:      p.Image,
		Quantity:   p.Quantity,
		Price:      p.Price.StringFixed(2),
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*p))
}

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	fields := make(map[string]string)
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if req.ShopID == "" {
		fields["shop_id"] = "shop_id is required"
	}
	if req.Price.IsNegative() {
		fields["price"] = "price must not be negative"
	}
	if len(fields) > 0 {
		writeJSON(w, http.StatusBadRequest, fieldErrorBody{Errors: fields})
		return
	}

	if !h.ownsShop(w, r, principal.UserID, req.ShopID) {
		return
	}

	p := &catalog.Product{
		ID:         uuid.New().String(),
		ShopID:     req.ShopID,
		CategoryID: req.CategoryID,
		Name:       req.Name,
		Image:      req.Image,
		Quantity:   req.Quantity,
		Price:      req.Price,
	}
	if err := h.catalog.Create(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductResponse(*p))
}

func (h *Handler) updateProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	existing, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !h.ownsShop(w, r, principal.UserID, existing.ShopID) {
		return
	}

	var req productRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	existing.Name = req.Name
	existing.Image = req.Image
	existing.Quantity = req.Quantity
	existing.Price = req.Price
	if req.CategoryID != "" {
		existing.CategoryID = req.CategoryID
	}

	if err := h.catalog.Update(r.Context(), existing); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProductResponse(*existing))
}

func (h *Handler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	existing, err := h.catalog.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if !h.ownsShop(w, r, principal.UserID, existing.ShopID) {
		return
	}

	if err := h.catalog.Delete(r.Context(), existing.ID); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ownsShop verifies the shop exists and belongs to the user, writing the
// error response itself when it does not.
func (h *Handler) ownsShop(w http.ResponseWriter, r *http.Request, userID, shopID string) bool {
	shop, err := h.shops.GetByID(r.Context(), shopID)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			writeDomainError(w, r, order.NewValidationError("shop_id", "unknown shop"))
			return false
		}
		writeDomainError(w, r, err)
		return false
	}
	if shop.OwnerID != userID {
		writeJSON(w, http.StatusForbidden, errorBody{Error: "shop does not belong to you"})
		return false
	}
	return true
}
