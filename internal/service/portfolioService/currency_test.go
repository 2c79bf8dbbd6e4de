package portfolioService

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRateMultiplier(t *testing.T) {
	rate := decimal.NewFromFloat(32.5)

	tests := []struct {
		name          string
		assetCurrency string
		baseCurrency  string
		rate          decimal.Decimal
		want          decimal.Decimal
	}{
		{name: "same currency USD", assetCurrency: "USD", baseCurrency: "USD", rate: rate, want: decimal.NewFromInt(1)},
		{name: "same currency TWD", assetCurrency: "TWD", baseCurrency: "TWD", rate: rate, want: decimal.NewFromInt(1)},
		{name: "USD to TWD", assetCurrency: "USD", baseCurrency: "TWD", rate: rate, want: rate},
		{name: "TWD to USD", assetCurrency: "TWD", baseCurrency: "USD", rate: rate, want: decimal.NewFromInt(1).Div(rate)},
		{name: "zero rate degrades to identity", assetCurrency: "TWD", baseCurrency: "USD", rate: decimal.Zero, want: decimal.NewFromInt(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RateMultiplier(tt.assetCurrency, tt.baseCurrency, tt.rate)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}
