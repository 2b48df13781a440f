package order

import (
	"context"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/velles/storefront/internal/domain/auth"
)

// CheckoutService sequences catalog lookup, pricing, order creation, and
// fulfillment attachment. The two persistence steps form a saga: when the
// fulfillment step fails, the just-created order is deleted so that no
// persisted order is left without exactly one fulfillment record.
type CheckoutService struct {
	orders       *Service
	fulfillments FulfillmentRepository
	lg           *zap.Logger
}

// NewCheckoutService creates a CheckoutService.
func NewCheckoutService(orders *Service, fulfillments FulfillmentRepository, lg *zap.Logger) *CheckoutService {
	return &CheckoutService{
		orders:       orders,
		fulfillments: fulfillments,
		lg:           lg,
	}
}

// CheckoutRequest is the checkout input: cart contents, fulfillment method,
// and the method-specific payload.
type CheckoutRequest struct {
	ProductIDs  []string
	Method      Method
	Fulfillment FulfillmentPayload
}

// CheckoutResult is the terminal Succeeded state of a checkout.
type CheckoutResult struct {
	OrderID     string
	OrderNumber string
	Method      Method
	Status      Status
	// TotalPrice is the string-formatted decimal total, always 2 places.
	TotalPrice string
}

// Checkout runs the pipeline to completion. Failures before the order insert
// persist nothing. A fulfillment failure triggers the mandatory compensating
// delete; a failure of the compensation itself is logged but never masks the
// original error returned to the caller.
func (s *CheckoutService) Checkout(ctx context.Context, principal auth.Principal, req CheckoutRequest) (*CheckoutResult, error) {
	if principal.UserID == "" {
		return nil, auth.ErrUnauthenticated
	}

	o, err := s.orders.Create(ctx, CreateParams{
		CustomerID: principal.UserID,
		ProductIDs: req.ProductIDs,
		Method:     req.Method,
	})
	if err != nil {
		return nil, err
	}

	if err := s.attach(ctx, o, req.Fulfillment); err != nil {
		if delErr := s.orders.Delete(ctx, o.OrderNumber); delErr != nil {
			s.lg.Error("checkout compensation failed, order left without fulfillment",
				zap.String("order_number", o.OrderNumber),
				zap.Error(delErr),
			)
		}
		return nil, err
	}

	return &CheckoutResult{
		OrderID:     o.ID,
		OrderNumber: o.OrderNumber,
		Method:      o.Method,
		Status:      o.Status,
		TotalPrice:  o.TotalPrice.StringFixed(2),
	}, nil
}

// attach creates the single fulfillment record for the order.
func (s *CheckoutService) attach(ctx context.Context, o *Order, payload FulfillmentPayload) error {
	switch o.Method {
	case MethodDelivery:
		addr, verr := parseDeliveryAddress(payload)
		if verr != nil {
			return verr
		}
		d := &Delivery{OrderID: o.ID, Address: addr}
		if err := s.fulfillments.CreateDelivery(ctx, d); err != nil {
			return errors.Wrap(err, "create delivery")
		}
		return nil

	case MethodPickup:
		date, tm, verr := ParsePickupSlot(payload)
		if verr != nil {
			return verr
		}
		p := &Pickup{OrderID: o.ID, PickupDate: date, PickupTime: tm}
		if err := s.fulfillments.CreatePickup(ctx, p); err != nil {
			return errors.Wrap(err, "create pickup")
		}
		return nil

	default:
		return NewValidationError("method", `must be "delivery" or "pickup"`)
	}
}
