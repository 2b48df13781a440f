package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/velles/storefront/internal/domain/catalog"
)

// maxCreateAttempts bounds the insert retry loop when the unique constraint
// rejects a generated order number. The pre-check makes a single collision
// already unlikely; repeated collisions indicate something worse than load,
// so the error is surfaced instead of looping forever.
const maxCreateAttempts = 3

// Service is the order aggregate: creation with server-computed totals,
// product-set updates with repricing, status transitions, and deletion.
type Service struct {
	catalog catalog.Repository
	orders  Repository
	numbers *NumberGenerator

	// now is injectable for tests.
	now func() time.Time
}

// NewService creates an order Service with the required dependencies.
func NewService(catalogRepo catalog.Repository, orders Repository, numbers *NumberGenerator) *Service {
	return &Service{
		catalog: catalogRepo,
		orders:  orders,
		numbers: numbers,
		now:     time.Now,
	}
}

// CreateParams holds the input for creating an order. Status defaults to
// processing when empty.
type CreateParams struct {
	CustomerID string
	ProductIDs []string
	Method     Method
	Status     Status
}

// Create resolves the cart against the catalog, prices it, assigns a unique
// order number, and persists the order. A number that loses the insert race
// against a concurrent checkout is regenerated up to maxCreateAttempts times.
func (s *Service) Create(ctx context.Context, p CreateParams) (*Order, error) {
	if !p.Method.Valid() {
		return nil, NewValidationError("method", `must be "delivery" or "pickup"`)
	}

	status := p.Status
	if status == "" {
		status = StatusProcessing
	}
	if !status.Valid() {
		return nil, NewValidationError("status", "unknown status "+string(status))
	}

	products, err := s.resolveProducts(ctx, p.ProductIDs)
	if err != nil {
		return nil, err
	}

	total, err := PriceOrder(products, p.Method)
	if err != nil {
		return nil, err
	}

	productIDs := make([]string, len(products))
	for i, prod := range products {
		productIDs[i] = prod.ID
	}

	for attempt := 0; attempt < maxCreateAttempts; attempt++ {
		number, err := s.numbers.Next(ctx, s.orders.NumberExists)
		if err != nil {
			return nil, errors.Wrap(err, "generate order number")
		}

		o := &Order{
			ID:          uuid.New().String(),
			OrderNumber: number,
			CustomerID:  p.CustomerID,
			ProductIDs:  productIDs,
			TotalPrice:  total,
			Method:      p.Method,
			Status:      status,
			CreatedAt:   s.now(),
		}

		err = s.orders.Create(ctx, o)
		if errors.Is(err, ErrNumberTaken) {
			// Lost the check-then-insert race; remember the number and retry.
			s.numbers.Mark(number)
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "create order")
		}

		s.numbers.Mark(number)
		return o, nil
	}
	return nil, errors.Wrap(ErrNumberExhausted, "create order")
}

// Get returns the order with the given order number.
func (s *Service) Get(ctx context.Context, orderNumber string) (*Order, error) {
	return s.orders.GetByNumber(ctx, orderNumber)
}

// List returns all orders visible within the scope.
func (s *Service) List(ctx context.Context, scope Scope) ([]Order, error) {
	return s.orders.List(ctx, scope)
}

// UpdateProducts replaces the order's product set and recomputes the total,
// re-applying the delivery surcharge per the order's current method.
func (s *Service) UpdateProducts(ctx context.Context, o *Order, productIDs []string) (*Order, error) {
	products, err := s.resolveProducts(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	total, err := PriceOrder(products, o.Method)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(products))
	for i, prod := range products {
		ids[i] = prod.ID
	}

	if err := s.orders.ReplaceProducts(ctx, o.ID, ids); err != nil {
		return nil, errors.Wrap(err, "replace order products")
	}

	o.ProductIDs = ids
	o.TotalPrice = total
	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// UpdateParams holds a partial update. A nil field is left unchanged.
type UpdateParams struct {
	ProductIDs []string
	Status     *Status
}

// Update applies a partial update to the order identified by orderNumber.
// Status changes are validated against the transition table: processing may
// become delivered or cancelled, both of which are terminal.
func (s *Service) Update(ctx context.Context, orderNumber string, p UpdateParams) (*Order, error) {
	o, err := s.orders.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if p.Status != nil {
		next := *p.Status
		if !next.Valid() {
			return nil, NewValidationError("status", "unknown status "+string(next))
		}
		if !o.Status.CanTransitionTo(next) {
			return nil, errors.Wrapf(ErrInvalidTransition, "%s -> %s", o.Status, next)
		}
		o.Status = next
	}

	if p.ProductIDs != nil {
		return s.UpdateProducts(ctx, o, p.ProductIDs)
	}

	if err := s.orders.Update(ctx, o); err != nil {
		return nil, errors.Wrap(err, "update order")
	}
	return o, nil
}

// Delete removes the order and, through the store's cascade, its fulfillment
// record. Deleting an already-deleted order returns ErrNotFound.
func (s *Service) Delete(ctx context.Context, orderNumber string) error {
	return s.orders.Delete(ctx, orderNumber)
}

// resolveProducts fetches the cart's products in one batch and fails with
// ProductsNotFoundError listing every id that did not resolve. Duplicate ids
// collapse: the product set is a set.
func (s *Service) resolveProducts(ctx context.Context, ids []string) ([]catalog.Product, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	if len(unique) == 0 {
		return nil, nil
	}

	fetched, err := s.catalog.GetByIDs(ctx, unique)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}

	byID := make(map[string]catalog.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	products := make([]catalog.Product, 0, len(unique))
	var missing []string
	for _, id := range unique {
		p, ok := byID[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		products = append(products, p)
	}
	if len(missing) > 0 {
		return nil, &ProductsNotFoundError{IDs: missing}
	}
	return products, nil
}
