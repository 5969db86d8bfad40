package order

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestComputeTotals(t *testing.T) {
	tests := []struct {
		name     string
		items    string
		shipping string
		discount string
		want     string
	}{
		{"no discount", "1000", "100", "0", "1100.00"},
		{"ten percent example", "1000", "100", "100", "1000.00"},
		{"free shipping", "49.99", "0", "0", "49.99"},
		{"discount exceeds total", "10", "5", "999", "0.00"},
		{"all zero", "0", "0", "0", "0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotals(
				decimal.RequireFromString(tt.items),
				decimal.RequireFromString(tt.shipping),
				decimal.RequireFromString(tt.discount),
			)
			assert.True(t, decimal.RequireFromString(tt.want).Equal(got.TotalPrice),
				"total = %s", got.TotalPrice)
			assert.False(t, got.TotalPrice.IsNegative())
		})
	}
}
