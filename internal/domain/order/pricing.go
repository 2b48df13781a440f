package order

import (
	"github.com/shopspring/decimal"

	"github.com/velles/storefront/internal/domain/catalog"
)

// DeliverySurcharge is the flat fee added when method=delivery. It is a
// single value regardless of the shop's currency label; making it
// per-currency is an open product question.
var DeliverySurcharge = decimal.RequireFromString("5.00")

// PriceOrder computes the server-side total for a set of catalog entries:
// the sum of current product prices, plus the flat surcharge for delivery,
// rounded to 2 decimal places. Prices are read at computation time, never
// cached from the cart.
func PriceOrder(products []catalog.Product, method Method) (decimal.Decimal, error) {
	if len(products) == 0 {
		return decimal.Zero, NewValidationError("products", "at least one product is required")
	}

	total := decimal.Zero
	for _, p := range products {
		total = total.Add(p.Price)
	}
	if method == MethodDelivery {
		total = total.Add(DeliverySurcharge)
	}
	return total.Round(2), nil
}
