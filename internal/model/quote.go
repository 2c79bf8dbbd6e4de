package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is a resolved live quote: the latest close, the close before it and
// the recent daily series. This is the shape stored in the quote cache.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Price     decimal.Decimal `json:"price"`
	PrevClose decimal.Decimal `json:"prevClose"`
	History   []PricePoint    `json:"history"`
}

type OHLCPoint struct {
	Date  time.Time
	Close decimal.Decimal
	High  decimal.Decimal
	Low   decimal.Decimal
}

// PriceSeries is the parsed form of one chart response: daily OHLC points
// plus the meta last-trade price used as a fallback when no rows came back.
type PriceSeries struct {
	Symbol    string
	Currency  string
	LastTrade decimal.Decimal
	Points    []OHLCPoint
}
