package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is the top-level classification of a holding. Valuation applies
// liability sign conventions at computation time only: Quantity and AvgCost
// are always stored non-negative regardless of category.
type Category string

const (
	CategoryInvestment Category = "investment"
	CategoryCash       Category = "cash"
	CategoryLiability  Category = "liability"
)

// FaceValue reports whether holdings of this category are valued at face
// value (manual price or 1.0) and never refreshed from the quote source.
func (c Category) FaceValue() bool {
	return c == CategoryCash || c == CategoryLiability
}

const (
	// LastUpdateUnset marks a holding that has never been refreshed.
	LastUpdateUnset = "N/A"
	// LastUpdateLayout is the timestamp format stored on holdings.
	LastUpdateLayout = "2006-01-02 15:04"
)

// DisplayAuto requests per-holding native-currency display values.
const DisplayAuto = "Auto"

type Holding struct {
	Symbol      string
	Category    Category
	AssetType   string
	Quantity    decimal.Decimal
	AvgCost     decimal.Decimal
	Currency    string
	ManualPrice decimal.Decimal
	LastUpdate  string
	AccountID   string
}

type PriceStatus string

const (
	StatusLive        PriceStatus = "live"
	StatusCached      PriceStatus = "cached"
	StatusManual      PriceStatus = "manual"
	StatusManualStale PriceStatus = "manual-stale"
	StatusCostOnly    PriceStatus = "cost-only"
)

type PricePoint struct {
	Date  time.Time
	Close decimal.Decimal
}

// ValuationRow is one row of the valuation table. CurrentPrice and the
// MarketValue/NetValue/TotalCost/UnrealizedPL group are in the base currency
// and are the only fields safe to aggregate; the Display group mirrors either
// the base or the holding's native currency depending on the display mode.
type ValuationRow struct {
	Holding

	CurrentPrice   decimal.Decimal
	MarketValue    decimal.Decimal
	NetValue       decimal.Decimal
	TotalCost      decimal.Decimal
	UnrealizedPL   decimal.Decimal
	ROIPct         decimal.Decimal
	DailyChangePct decimal.Decimal

	DisplayCurrency    string
	DisplayPrice       decimal.Decimal
	DisplayCostBasis   decimal.Decimal
	DisplayMarketValue decimal.Decimal
	DisplayTotalCost   decimal.Decimal
	DisplayPL          decimal.Decimal

	Status  PriceStatus
	History []PricePoint
}

// PriceUpdateResult is the per-symbol outcome of one refresh task. It is
// consumed immediately by the refresher and never persisted.
type PriceUpdateResult struct {
	Symbol  string
	Success bool
	Price   decimal.Decimal
	Err     string
}

// PortfolioSummary aggregates base-currency fields across valuation rows.
type PortfolioSummary struct {
	NetWorth         decimal.Decimal
	TotalAssets      decimal.Decimal
	TotalLiabilities decimal.Decimal
	TotalCost        decimal.Decimal
	TotalPL          decimal.Decimal
	Rows             int
}
