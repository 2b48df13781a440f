package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDeliveryAddress(t *testing.T) {
	addr, verr := parseDeliveryAddress(FulfillmentPayload{Address: "  1 Market Street  "})
	require.Nil(t, verr)
	assert.Equal(t, "1 Market Street", addr)

	_, verr = parseDeliveryAddress(FulfillmentPayload{Address: "   "})
	require.NotNil(t, verr)
	assert.Contains(t, verr.Fields, "address")
}

func TestParsePickupSlot(t *testing.T) {
	date, tm, verr := ParsePickupSlot(FulfillmentPayload{
		PickupDate: "2026-09-01",
		PickupTime: "14:30",
	})
	require.Nil(t, verr)
	assert.Equal(t, "2026-09-01", date.Format(PickupDateLayout))
	assert.Equal(t, "14:30", tm.Format(PickupTimeLayout))
}

func TestParsePickupSlotAcceptsSeconds(t *testing.T) {
	_, tm, verr := ParsePickupSlot(FulfillmentPayload{
		PickupDate: "2026-09-01",
		PickupTime: "14:30:15",
	})
	require.Nil(t, verr)
	assert.Equal(t, "14:30", tm.Format(PickupTimeLayout))
}

func TestParsePickupSlotReportsAllFields(t *testing.T) {
	tests := []struct {
		name    string
		payload FulfillmentPayload
		fields  []string
	}{
		{"both missing", FulfillmentPayload{}, []string{"pickup_date", "pickup_time"}},
		{"bad date", FulfillmentPayload{PickupDate: "01/09/2026", PickupTime: "14:30"}, []string{"pickup_date"}},
		{"bad time", FulfillmentPayload{PickupDate: "2026-09-01", PickupTime: "2pm"}, []string{"pickup_time"}},
		{"missing time", FulfillmentPayload{PickupDate: "2026-09-01"}, []string{"pickup_time"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, verr := ParsePickupSlot(tt.payload)
			require.NotNil(t, verr)
			assert.Len(t, verr.Fields, len(tt.fields))
			for _, f := range tt.fields {
				assert.Contains(t, verr.Fields, f)
			}
		})
	}
}
