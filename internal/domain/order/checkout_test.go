package order

import (
	"context"
	"testing"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/velles/storefront/internal/domain/auth"
)

type mockFulfillmentRepo struct {
	deliveries []*Delivery
	pickups    []*Pickup

	deliveryErr error
	pickupErr   error
}

func (m *mockFulfillmentRepo) CreateDelivery(_ context.Context, d *Delivery) error {
	if m.deliveryErr != nil {
		return m.deliveryErr
	}
	d.ID = int64(len(m.deliveries) + 1)
	m.deliveries = append(m.deliveries, d)
	return nil
}

func (m *mockFulfillmentRepo) GetDelivery(_ context.Context, id int64) (*Delivery, error) {
	for _, d := range m.deliveries {
		if d.ID == id {
			return d, nil
		}
	}
	return nil, ErrFulfillmentNotFound
}

func (m *mockFulfillmentRepo) UpdateDelivery(_ context.Context, _ *Delivery) error { return nil }
func (m *mockFulfillmentRepo) DeleteDelivery(_ context.Context, _ int64) error     { return nil }
func (m *mockFulfillmentRepo) ListDeliveries(_ context.Context, _ Scope) ([]Delivery, error) {
	return nil, nil
}

func (m *mockFulfillmentRepo) CreatePickup(_ context.Context, p *Pickup) error {
	if m.pickupErr != nil {
		return m.pickupErr
	}
	p.ID = int64(len(m.pickups) + 1)
	m.pickups = append(m.pickups, p)
	return nil
}

func (m *mockFulfillmentRepo) GetPickup(_ context.Context, id int64) (*Pickup, error) {
	for _, p := range m.pickups {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, ErrFulfillmentNotFound
}

func (m *mockFulfillmentRepo) UpdatePickup(_ context.Context, _ *Pickup) error { return nil }
func (m *mockFulfillmentRepo) DeletePickup(_ context.Context, _ int64) error   { return nil }
func (m *mockFulfillmentRepo) ListPickups(_ context.Context, _ Scope) ([]Pickup, error) {
	return nil, nil
}

func newCheckout(orders *mockOrderRepo, fulfillments *mockFulfillmentRepo) *CheckoutService {
	svc := newTestService(newCatalogRepo(
		priced("pie", "12.50"),
		priced("panna-cotta", "7.25"),
	), orders)
	return NewCheckoutService(svc, fulfillments, zap.NewNop())
}

var customer = auth.Principal{UserID: "u1", Role: auth.RoleCustomer}

func TestCheckoutDelivery(t *testing.T) {
	orders := newOrderRepo()
	fulfillments := &mockFulfillmentRepo{}
	checkout := newCheckout(orders, fulfillments)

	result, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs:  []string{"pie", "panna-cotta"},
		Method:      MethodDelivery,
		Fulfillment: FulfillmentPayload{Address: "1 Market Street"},
	})

	require.NoError(t, err)
	assert.Equal(t, "24.75", result.TotalPrice)
	assert.Equal(t, StatusProcessing, result.Status)
	assert.Len(t, result.OrderNumber, shortNumberLen)

	require.Len(t, fulfillments.deliveries, 1)
	assert.Equal(t, result.OrderID, fulfillments.deliveries[0].OrderID)
	assert.Equal(t, "1 Market Street", fulfillments.deliveries[0].Address)
}

func TestCheckoutPickup(t *testing.T) {
	orders := newOrderRepo()
	fulfillments := &mockFulfillmentRepo{}
	checkout := newCheckout(orders, fulfillments)

	result, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs: []string{"pie"},
		Method:     MethodPickup,
		Fulfillment: FulfillmentPayload{
			PickupDate: "2026-09-01",
			PickupTime: "14:30",
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "12.50", result.TotalPrice)

	require.Len(t, fulfillments.pickups, 1)
	assert.Equal(t, result.OrderID, fulfillments.pickups[0].OrderID)
}

func TestCheckoutUnauthenticated(t *testing.T) {
	checkout := newCheckout(newOrderRepo(), &mockFulfillmentRepo{})

	_, err := checkout.Checkout(context.Background(), auth.Principal{}, CheckoutRequest{
		ProductIDs: []string{"pie"},
		Method:     MethodPickup,
	})

	assert.ErrorIs(t, err, auth.ErrUnauthenticated)
}

func TestCheckoutInvalidPickupSlotRollsBack(t *testing.T) {
	orders := newOrderRepo()
	checkout := newCheckout(orders, &mockFulfillmentRepo{})

	_, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs:  []string{"pie"},
		Method:      MethodPickup,
		Fulfillment: FulfillmentPayload{PickupDate: "not-a-date"},
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "pickup_date")
	assert.Contains(t, verr.Fields, "pickup_time")

	// The created order must be compensated away.
	assert.Empty(t, orders.byNumber, "no order may survive a failed checkout")
	assert.Len(t, orders.deleted, 1)
}

func TestCheckoutMissingAddressRollsBack(t *testing.T) {
	orders := newOrderRepo()
	checkout := newCheckout(orders, &mockFulfillmentRepo{})

	_, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs: []string{"pie"},
		Method:     MethodDelivery,
	})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "address")
	assert.Empty(t, orders.byNumber)
}

func TestCheckoutFulfillmentInsertFailureRollsBack(t *testing.T) {
	orders := newOrderRepo()
	fulfillments := &mockFulfillmentRepo{deliveryErr: errors.New("insert failed")}
	checkout := newCheckout(orders, fulfillments)

	_, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs:  []string{"pie"},
		Method:      MethodDelivery,
		Fulfillment: FulfillmentPayload{Address: "1 Market Street"},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "create delivery")
	assert.Empty(t, orders.byNumber)
}

func TestCheckoutCompensationFailureKeepsOriginalError(t *testing.T) {
	orders := newOrderRepo()
	orders.deleteErr = errors.New("delete also failed")
	fulfillments := &mockFulfillmentRepo{deliveryErr: errors.New("insert failed")}
	checkout := newCheckout(orders, fulfillments)

	_, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs:  []string{"pie"},
		Method:      MethodDelivery,
		Fulfillment: FulfillmentPayload{Address: "1 Market Street"},
	})

	// The fulfillment error surfaces, not the compensation error.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert failed")
	assert.NotContains(t, err.Error(), "delete also failed")
}

func TestCheckoutValidationFailurePersistsNothing(t *testing.T) {
	orders := newOrderRepo()
	checkout := newCheckout(orders, &mockFulfillmentRepo{})

	_, err := checkout.Checkout(context.Background(), customer, CheckoutRequest{
		ProductIDs: []string{"ghost"},
		Method:     MethodDelivery,
	})

	var pnf *ProductsNotFoundError
	require.ErrorAs(t, err, &pnf)
	assert.Equal(t, 0, orders.createdN, "pricing failures must not reach the store")
}
