package order

import (
	"strings"
	"time"
)

// Wire formats for pickup slots.
const (
	PickupDateLayout = "2006-01-02"
	PickupTimeLayout = "15:04"
)

// FulfillmentPayload carries the method-specific checkout fields. Exactly
// one shape is meaningful per method: Address for delivery, PickupDate and
// PickupTime for pickup.
type FulfillmentPayload struct {
	Address    string
	PickupDate string
	PickupTime string
}

// parseDeliveryAddress validates the delivery payload.
func parseDeliveryAddress(p FulfillmentPayload) (string, *ValidationError) {
	addr := strings.TrimSpace(p.Address)
	if addr == "" {
		return "", NewValidationError("address", "address is required for delivery orders")
	}
	return addr, nil
}

// ParsePickupSlot validates and parses the pickup payload. Both fields must
// be present and parseable; errors are reported per field so a request
// missing both gets both told at once.
func ParsePickupSlot(p FulfillmentPayload) (date, tm time.Time, verr *ValidationError) {
	fields := make(map[string]string)

	if p.PickupDate == "" {
		fields["pickup_date"] = "pickup_date is required for pickup orders"
	} else if parsed, err := time.Parse(PickupDateLayout, p.PickupDate); err != nil {
		fields["pickup_date"] = "must be a date in format " + PickupDateLayout
	} else {
		date = parsed
	}

	if p.PickupTime == "" {
		fields["pickup_time"] = "pickup_time is required for pickup orders"
	} else if parsed, err := parseClock(p.PickupTime); err != nil {
		fields["pickup_time"] = "must be a time in format " + PickupTimeLayout
	} else {
		tm = parsed
	}

	if len(fields) > 0 {
		return time.Time{}, time.Time{}, &ValidationError{Fields: fields}
	}
	return date, tm, nil
}

// parseClock accepts HH:MM with an HH:MM:SS fallback.
func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse(PickupTimeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse("15:04:05", s)
}
