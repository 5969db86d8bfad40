package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// DiscountAmount computes the monetary discount a percentage coupon grants
// on the given items subtotal, rounded to 2 decimal places. Shipping never
// participates in the discount. Negative results clamp to zero.
func DiscountAmount(percent, itemsSubtotal decimal.Decimal) decimal.Decimal {
	amount := itemsSubtotal.Mul(percent).Div(hundred).Round(2)
	if amount.IsNegative() {
		return decimal.Zero
	}
	return amount
}
