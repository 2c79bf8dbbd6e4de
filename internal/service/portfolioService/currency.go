package portfolioService

import "github.com/shopspring/decimal"

// RateMultiplier returns the factor converting a value in assetCurrency into
// baseCurrency, given the USD→other rate. Only the two-currency system
// (USD plus one local currency) is modeled; any same-currency pair is
// identity and a zero rate degrades to identity instead of dividing by zero.
func RateMultiplier(assetCurrency, baseCurrency string, usdRate decimal.Decimal) decimal.Decimal {
	if assetCurrency == baseCurrency {
		return decimal.NewFromInt(1)
	}

	if assetCurrency == "USD" {
		return usdRate
	}

	if baseCurrency == "USD" {
		if !usdRate.IsPositive() {
			return decimal.NewFromInt(1)
		}
		return decimal.NewFromInt(1).Div(usdRate)
	}

	return decimal.NewFromInt(1)
}
