package order

import "github.com/shopspring/decimal"

// Totals is the monetary snapshot persisted with an order.
type Totals struct {
	ItemsPrice     decimal.Decimal
	ShippingPrice  decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalPrice     decimal.Decimal
}

// ComputeTotals derives the grand total from its parts:
// total = items + shipping - discount, clamped at zero. Pure and
// deterministic; the whole checkout transaction is testable through it
// without a datastore.
func ComputeTotals(itemsPrice, shippingPrice, discountAmount decimal.Decimal) Totals {
	total := itemsPrice.Add(shippingPrice).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return Totals{
		ItemsPrice:     itemsPrice.Round(2),
		ShippingPrice:  shippingPrice.Round(2),
		DiscountAmount: discountAmount.Round(2),
		TotalPrice:     total.Round(2),
	}
}
