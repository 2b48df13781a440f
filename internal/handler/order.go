package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/velles/storefront/internal/domain/order"
)

type checkoutRequest struct {
	Products   []string `json:"products"`
	Method     string   `json:"method"`
	Address    string   `json:"address"`
	PickupDate string   `json:"pickup_date"`
	PickupTime string   `json:"pickup_time"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	OrderNumber string `json:"order_number"`
	Method      string `json:"method"`
	Status      string `json:"status"`
	TotalPrice  string `json:"total_price"`
}

func (h *Handler) checkoutOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req checkoutRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.checkout.Checkout(r.Context(), principal, order.CheckoutRequest{
		ProductIDs: req.Products,
		Method:     order.Method(req.Method),
		Fulfillment: order.FulfillmentPayload{
			Address:    req.Address,
			PickupDate: req.PickupDate,
			PickupTime: req.PickupTime,
		},
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, checkoutResponse{
		ID:          result.OrderID,
		OrderNumber: result.OrderNumber,
		Method:      string(result.Method),
		Status:      string(result.Status),
		TotalPrice:  result.TotalPrice,
	})
}

type createOrderRequest struct {
	Products []string `json:"products"`
	Method   string   `json:"method"`
	Status   string   `json:"status"`
}

type updateOrderRequest struct {
	Products []string `json:"products"`
	Status   *string  `json:"status"`
}

type orderResponse struct {
	ID          string    `json:"id"`
	OrderNumber string    `json:"order_number"`
	Products    []string  `json:"products"`
	TotalPrice  string    `json:"total_price"`
	Method      string    `json:"method"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

func toOrderResponse(o *order.Order) orderResponse {
	products := o.ProductIDs
	if products == nil {
		products = []string{}
	}
	return orderResponse{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Products:    products,
		TotalPrice:  o.TotalPrice.StringFixed(2),
		Method:      string(o.Method),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
	}
}

// createOrder is the direct entry point bypassing checkout orchestration: no
// fulfillment record is attached.
func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	var req createOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	o, err := h.orders.Create(r.Context(), order.CreateParams{
		CustomerID: principal.UserID,
		ProductIDs: req.Products,
		Method:     order.Method(req.Method),
		Status:     order.Status(req.Status),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}

	orders, err := h.orders.List(r.Context(), order.ScopeFor(principal))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	var req updateOrderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	params := order.UpdateParams{ProductIDs: req.Products}
	if req.Status != nil {
		status := order.Status(*req.Status)
		params.Status = &status
	}

	o, err := h.orders.Update(r.Context(), chi.URLParam(r, "orderNumber"), params)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) deleteOrder(w http.ResponseWriter, r *http.Request) {
	if err := h.orders.Delete(r.Context(), chi.URLParam(r, "orderNumber")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
