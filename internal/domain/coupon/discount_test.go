package coupon

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDiscountAmount(t *testing.T) {
	tests := []struct {
		name     string
		percent  string
		subtotal string
		want     string
	}{
		{"ten percent of 1000", "10", "1000", "100"},
		{"rounds to cents", "15", "19.99", "3.00"},
		{"zero percent", "0", "500", "0"},
		{"full discount", "100", "42.50", "42.50"},
		{"zero subtotal", "25", "0", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DiscountAmount(
				decimal.RequireFromString(tt.percent),
				decimal.RequireFromString(tt.subtotal),
			)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got), "got %s", got)
		})
	}
}

func TestDiscountAmount_ClampsNegative(t *testing.T) {
	got := DiscountAmount(decimal.NewFromInt(-10), decimal.NewFromInt(100))
	assert.True(t, got.IsZero())
}
