package order

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velles/storefront/internal/domain/auth"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusProcessing, StatusDelivered, true},
		{StatusProcessing, StatusCancelled, true},
		{StatusDelivered, StatusCancelled, false},
		{StatusDelivered, StatusProcessing, false},
		{StatusCancelled, StatusDelivered, false},
		{StatusCancelled, StatusProcessing, false},
		{StatusProcessing, StatusProcessing, true},
		{StatusDelivered, StatusDelivered, true},
		{StatusCancelled, StatusCancelled, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to),
			"%s -> %s", tt.from, tt.to)
	}
}

func TestMethodValid(t *testing.T) {
	assert.True(t, MethodDelivery.Valid())
	assert.True(t, MethodPickup.Valid())
	assert.False(t, Method("courier").Valid())
	assert.False(t, Method("").Valid())
}

func TestScopeFor(t *testing.T) {
	customer := auth.Principal{UserID: "u1", Role: auth.RoleCustomer}
	assert.Equal(t, Scope{CustomerID: "u1"}, ScopeFor(customer))

	seller := auth.Principal{UserID: "u2", Role: auth.RoleSeller}
	assert.Equal(t, Scope{SellerID: "u2"}, ScopeFor(seller))

	// Unknown roles fall back to the narrowest scope.
	unknown := auth.Principal{UserID: "u3", Role: "admin"}
	assert.Equal(t, Scope{CustomerID: "u3"}, ScopeFor(unknown))
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"pickup_time": "required",
		"pickup_date": "required",
	}}

	// Fields are sorted so the message is stable.
	assert.Equal(t, "validation failed: pickup_date: required; pickup_time: required", err.Error())
}
