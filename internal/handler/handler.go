// Package handler exposes the HTTP API: checkout, order and fulfillment
// CRUD, catalog, and account endpoints. It converts wire requests to domain
// calls and maps domain errors back to status codes.
package handler

import (
	"github.com/go-chi/chi/v5"

	"github.com/velles/storefront/internal/domain/auth"
	"github.com/velles/storefront/internal/domain/catalog"
	"github.com/velles/storefront/internal/domain/order"
	"github.com/velles/storefront/internal/domain/user"
)

// Handler holds the domain dependencies behind the HTTP surface.
type Handler struct {
	tokens       *auth.Tokens
	users        *user.Service
	shops        user.ShopRepository
	catalog      catalog.Repository
	orders       *order.Service
	checkout     *order.CheckoutService
	fulfillments order.FulfillmentRepository
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	tokens *auth.Tokens,
	users *user.Service,
	shops user.ShopRepository,
	catalogRepo catalog.Repository,
	orders *order.Service,
	checkout *order.CheckoutService,
	fulfillments order.FulfillmentRepository,
) *Handler {
	return &Handler{
		tokens:       tokens,
		users:        users,
		shops:        shops,
		catalog:      catalogRepo,
		orders:       orders,
		checkout:     checkout,
		fulfillments: fulfillments,
	}
}

// Routes builds the API router. Registration, login, and catalog reads are
// public; everything else requires a bearer token.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Post("/users/register", h.register)
	r.Post("/users/login", h.login)
	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(h.authenticate)

		r.Get("/users/me", h.profile)

		r.Post("/products", h.createProduct)
		r.Put("/products/{productID}", h.updateProduct)
		r.Delete("/products/{productID}", h.deleteProduct)

		r.Post("/checkout", h.checkoutOrder)

		r.Post("/orders", h.createOrder)
		r.Get("/orders", h.listOrders)
		r.Patch("/orders/{orderNumber}", h.updateOrder)
		r.Delete("/orders/{orderNumber}", h.deleteOrder)

		r.Get("/delivery/by-seller", h.listDeliveriesBySeller)
		r.Get("/delivery/by-customer", h.listDeliveriesByCustomer)
		r.Post("/delivery", h.createDelivery)
		r.Patch("/delivery/{fulfillmentID}", h.updateDelivery)
		r.Delete("/delivery/{fulfillmentID}", h.deleteDelivery)

		r.Get("/pickup/by-seller", h.listPickupsBySeller)
		r.Get("/pickup/by-customer", h.listPickupsByCustomer)
		r.Post("/pickup", h.createPickup)
		r.Patch("/pickup/{fulfillmentID}", h.updatePickup)
		r.Delete("/pickup/{fulfillmentID}", h.deletePickup)
	})

	return r
}
