// Package order implements the checkout and order-pricing pipeline: pricing,
// the order aggregate, fulfillment attachment with compensating rollback, and
// the access-scoped query surface on top of it.
package order

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Method is how an order reaches the customer.
type Method string

const (
	MethodDelivery Method = "delivery"
	MethodPickup   Method = "pickup"
)

// Valid reports whether m is a known fulfillment method.
func (m Method) Valid() bool {
	return m == MethodDelivery || m == MethodPickup
}

// Status is the order lifecycle state.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s == StatusProcessing || s == StatusDelivered || s == StatusCancelled
}

// CanTransitionTo reports whether the transition s -> next is allowed.
// Processing may move to delivered or cancelled; both of those are terminal.
// A no-op transition is always allowed.
func (s Status) CanTransitionTo(next Status) bool {
	if s == next {
		return true
	}
	return s == StatusProcessing && (next == StatusDelivered || next == StatusCancelled)
}

// Order is the aggregate root. OrderNumber is assigned once at creation and
// never changes; TotalPrice is always server-computed. Product references
// carry no quantity: presence implies quantity 1.
type Order struct {
	ID          string
	OrderNumber string
	CustomerID  string
	ProductIDs  []string
	TotalPrice  decimal.Decimal
	Method      Method
	Status      Status
	CreatedAt   time.Time
}

// Delivery is the fulfillment record for method=delivery, bound 1:1 to its
// order and cascade-deleted with it.
type Delivery struct {
	ID        int64
	OrderID   string
	Address   string
	Completed bool
	CreatedAt time.Time
}

// Pickup is the fulfillment record for method=pickup.
type Pickup struct {
	ID         int64
	OrderID    string
	PickupDate time.Time
	PickupTime time.Time
	Completed  bool
	CreatedAt  time.Time
}

// Sentinel errors for the order pipeline.
var (
	// ErrNotFound indicates an unknown order identifier.
	ErrNotFound = errors.New("order not found")
	// ErrNumberTaken is returned by Repository.Create when the order number
	// lost the insert race against a concurrent checkout. Callers retry with
	// a fresh number; the error never surfaces to API clients.
	ErrNumberTaken = errors.New("order number already taken")
	// ErrFulfillmentNotFound indicates an unknown delivery or pickup key.
	ErrFulfillmentNotFound = errors.New("fulfillment record not found")
	// ErrInvalidTransition is returned for status changes outside the
	// transition table.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// ValidationError reports malformed or missing request fields, keyed by
// field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

// NewValidationError builds a single-field ValidationError.
func NewValidationError(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// ProductsNotFoundError lists cart product ids that did not resolve in the
// catalog.
type ProductsNotFoundError struct {
	IDs []string
}

func (e *ProductsNotFoundError) Error() string {
	return "products not found: " + strings.Join(e.IDs, ", ")
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists the order and its product associations. It returns
	// ErrNumberTaken when the order number collides with an existing row.
	Create(ctx context.Context, o *Order) error
	GetByNumber(ctx context.Context, orderNumber string) (*Order, error)
	NumberExists(ctx context.Context, orderNumber string) (bool, error)
	ListNumbers(ctx context.Context) ([]string, error)
	// Update persists total price and status. Order number, customer, and
	// method are immutable.
	Update(ctx context.Context, o *Order) error
	ReplaceProducts(ctx context.Context, orderID string, productIDs []string) error
	// Delete removes the order; fulfillment rows cascade. Returns ErrNotFound
	// when no row matches.
	Delete(ctx context.Context, orderNumber string) error
	List(ctx context.Context, scope Scope) ([]Order, error)
	// DeleteOrphans removes orders created before the cutoff that have no
	// fulfillment row, returning the deleted order numbers.
	DeleteOrphans(ctx context.Context, cutoff time.Time) ([]string, error)
}

// FulfillmentRepository defines persistence operations for delivery and
// pickup records.
type FulfillmentRepository interface {
	CreateDelivery(ctx context.Context, d *Delivery) error
	GetDelivery(ctx context.Context, id int64) (*Delivery, error)
	UpdateDelivery(ctx context.Context, d *Delivery) error
	DeleteDelivery(ctx context.Context, id int64) error
	ListDeliveries(ctx context.Context, scope Scope) ([]Delivery, error)

	CreatePickup(ctx context.Context, p *Pickup) error
	GetPickup(ctx context.Context, id int64) (*Pickup, error)
	UpdatePickup(ctx context.Context, p *Pickup) error
	DeletePickup(ctx context.Context, id int64) error
	ListPickups(ctx context.Context, scope Scope) ([]Pickup, error)
}
