package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/velles/storefront/internal/domain/order"
)

type deliveryResponse struct {
	ID        int64     `json:"id"`
	OrderID   string    `json:"order_id"`
	Address   string    `json:"address"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"created_at"`
}

func toDeliveryResponse(d *order.Delivery) deliveryResponse {
	return deliveryResponse{
		ID:        d.ID,
		OrderID:   d.OrderID,
		Address:   d.Address,
		Completed: d.Completed,
		CreatedAt: d.CreatedAt,
	}
}

type pickupResponse struct {
	ID         int64     `json:"id"`
	OrderID    string    `json:"order_id"`
	PickupDate string    `json:"pickup_date"`
	PickupTime string    `json:"pickup_time"`
	Completed  bool      `json:"completed"`
	CreatedAt  time.Time `json:"created_at"`
}

func toPickupResponse(p *order.Pickup) pickupResponse {
	return pickupResponse{
		ID:         p.ID,
		OrderID:    p.OrderID,
		PickupDate: p.PickupDate.Format(order.PickupDateLayout),
		PickupTime: p.PickupTime.Format(order.PickupTimeLayout),
		Completed:  p.Completed,
		CreatedAt:  p.CreatedAt,
	}
}

// fulfillmentID parses the numeric primary key from the URL, answering 404
// for garbage: a non-numeric key can never resolve.
func fulfillmentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "fulfillmentID"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return 0, false
	}
	return id, true
}

func (h *Handler) scopedDeliveries(w http.ResponseWriter, r *http.Request, scope order.Scope) {
	deliveries, err := h.fulfillments.ListDeliveries(r.Context(), scope)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]deliveryResponse, len(deliveries))
	for i := range deliveries {
		out[i] = toDeliveryResponse(&deliveries[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listDeliveriesBySeller(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	h.scopedDeliveries(w, r, order.Scope{SellerID: principal.UserID})
}

func (h *Handler) listDeliveriesByCustomer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	h.scopedDeliveries(w, r, order.Scope{CustomerID: principal.UserID})
}

type createDeliveryRequest struct {
	OrderNumber string `json:"order_number"`
	Address     string `json:"address"`
}

func (h *Handler) createDelivery(w http.ResponseWriter, r *http.Request) {
	var req createDeliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Address == "" {
		writeDomainError(w, r, order.NewValidationError("address", "address is required"))
		return
	}

	o, err := h.orders.Get(r.Context(), req.OrderNumber)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	d := &order.Delivery{OrderID: o.ID, Address: req.Address}
	if err := h.fulfillments.CreateDelivery(r.Context(), d); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toDeliveryResponse(d))
}

type updateDeliveryRequest struct {
	Address   *string `json:"address"`
	Completed *bool   `json:"completed"`
}

func (h *Handler) updateDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := fulfillmentID(w, r)
	if !ok {
		return
	}

	var req updateDeliveryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	d, err := h.fulfillments.GetDelivery(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.Address != nil {
		if *req.Address == "" {
			writeDomainError(w, r, order.NewValidationError("address", "address must not be empty"))
			return
		}
		d.Address = *req.Address
	}
	if req.Completed != nil {
		d.Completed = *req.Completed
	}

	if err := h.fulfillments.UpdateDelivery(r.Context(), d); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toDeliveryResponse(d))
}

func (h *Handler) deleteDelivery(w http.ResponseWriter, r *http.Request) {
	id, ok := fulfillmentID(w, r)
	if !ok {
		return
	}
	if err := h.fulfillments.DeleteDelivery(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) scopedPickups(w http.ResponseWriter, r *http.Request, scope order.Scope) {
	pickups, err := h.fulfillments.ListPickups(r.Context(), scope)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]pickupResponse, len(pickups))
	for i := range pickups {
		out[i] = toPickupResponse(&pickups[i])
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) listPickupsBySeller(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	h.scopedPickups(w, r, order.Scope{SellerID: principal.UserID})
}

func (h *Handler) listPickupsByCustomer(w http.ResponseWriter, r *http.Request) {
	principal, ok := principalFrom(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
		return
	}
	h.scopedPickups(w, r, order.Scope{CustomerID: principal.UserID})
}

type createPickupRequest struct {
	OrderNumber string `json:"order_number"`
	PickupDate  string `json:"pickup_date"`
	PickupTime  string `json:"pickup_time"`
}

func (h *Handler) createPickup(w http.ResponseWriter, r *http.Request) {
	var req createPickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	date, tm, verr := order.ParsePickupSlot(order.FulfillmentPayload{
		PickupDate: req.PickupDate,
		PickupTime: req.PickupTime,
	})
	if verr != nil {
		writeDomainError(w, r, verr)
		return
	}

	o, err := h.orders.Get(r.Context(), req.OrderNumber)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	p := &order.Pickup{OrderID: o.ID, PickupDate: date, PickupTime: tm}
	if err := h.fulfillments.CreatePickup(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPickupResponse(p))
}

type updatePickupRequest struct {
	PickupDate *string `json:"pickup_date"`
	PickupTime *string `json:"pickup_time"`
	Completed  *bool   `json:"completed"`
}

func (h *Handler) updatePickup(w http.ResponseWriter, r *http.Request) {
	id, ok := fulfillmentID(w, r)
	if !ok {
		return
	}

	var req updatePickupRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := h.fulfillments.GetPickup(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	if req.PickupDate != nil || req.PickupTime != nil {
		payload := order.FulfillmentPayload{
			PickupDate: p.PickupDate.Format(order.PickupDateLayout),
			PickupTime: p.PickupTime.Format(order.PickupTimeLayout),
		}
		if req.PickupDate != nil {
			payload.PickupDate = *req.PickupDate
		}
		if req.PickupTime != nil {
			payload.PickupTime = *req.PickupTime
		}
		date, tm, verr := order.ParsePickupSlot(payload)
		if verr != nil {
			writeDomainError(w, r, verr)
			return
		}
		p.PickupDate = date
		p.PickupTime = tm
	}
	if req.Completed != nil {
		p.Completed = *req.Completed
	}

	if err := h.fulfillments.UpdatePickup(r.Context(), p); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPickupResponse(p))
}

func (h *Handler) deletePickup(w http.ResponseWriter, r *http.Request) {
	id, ok := fulfillmentID(w, r)
	if !ok {
		return
	}
	if err := h.fulfillments.DeletePickup(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
