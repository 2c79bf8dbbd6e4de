package portfolioService

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yuchenglin/investool/internal/model"
)

func dailySeries(closes ...float64) model.PriceSeries {
	series := model.PriceSeries{}
	for i, close := range closes {
		series.Points = append(series.Points, model.OHLCPoint{
			Date:  testNow.AddDate(0, 0, i-len(closes)),
			Close: decimal.NewFromFloat(close),
		})
	}
	return series
}

func TestBuildValuationLivePrice(t *testing.T) {
	api := &fakeQuoteApi{series: map[string]model.PriceSeries{"AAPL": dailySeries(100, 110)}}
	s := newTestService(api)

	holding := staleHolding("AAPL") // qty 10, avg cost 100, USD
	rate := decimal.NewFromFloat(32.5)

	rows := s.BuildValuation(context.Background(), []model.Holding{holding}, "TWD", rate)
	require.Len(t, rows, 1)
	row := rows[0]

	assert.Equal(t, model.StatusLive, row.Status)

	// 110 USD * 32.5 = 3575 TWD per share.
	wantPrice := decimal.NewFromInt(110).Mul(rate)
	assert.True(t, wantPrice.Equal(row.CurrentPrice), "got %s", row.CurrentPrice)
	assert.True(t, wantPrice.Mul(holding.Quantity).Equal(row.MarketValue))
	assert.True(t, decimal.NewFromInt(100).Mul(rate).Mul(holding.Quantity).Equal(row.TotalCost))

	// Daily change from the last two closes: (110-100)/100 = 10%.
	assert.True(t, decimal.NewFromInt(10).Equal(row.DailyChangePct), "got %s", row.DailyChangePct)

	assert.Len(t, row.History, 2)
}

func TestBuildValuationCachedWithinWindow(t *testing.T) {
	api := &fakeQuoteApi{}
	s := newTestService(api)

	holding := staleHolding("AAPL")
	holding.ManualPrice = decimal.NewFromInt(150)
	holding.LastUpdate = stamp(testNow.Add(-time.Hour))

	rows := s.BuildValuation(context.Background(), []model.Holding{holding}, "USD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 1)

	assert.Equal(t, model.StatusCached, rows[0].Status)
	assert.True(t, decimal.NewFromInt(150).Equal(rows[0].CurrentPrice))
	assert.Equal(t, 0, api.seriesCalls, "cached price must not hit the quote source")
	assert.Len(t, rows[0].History, flatHistoryPoints)
}

func TestBuildValuationFallbackTiers(t *testing.T) {
	api := &fakeQuoteApi{errs: map[string]error{"AAPL": errors.New("quote source down"), "NEWPOS": errors.New("quote source down")}}
	s := newTestService(api)

	withManual := staleHolding("AAPL")
	withManual.ManualPrice = decimal.NewFromInt(140)

	costOnly := staleHolding("NEWPOS") // manual price unset

	rows := s.BuildValuation(context.Background(), []model.Holding{withManual, costOnly}, "USD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 2)

	assert.Equal(t, model.StatusManualStale, rows[0].Status)
	assert.True(t, decimal.NewFromInt(140).Equal(rows[0].CurrentPrice))

	assert.Equal(t, model.StatusCostOnly, rows[1].Status)
	assert.True(t, costOnly.AvgCost.Equal(rows[1].CurrentPrice))
}

func TestBuildValuationFaceValue(t *testing.T) {
	s := newTestService(&fakeQuoteApi{})

	cash := model.Holding{
		Symbol:   "TWD-SAVINGS",
		Category: model.CategoryCash,
		Quantity: decimal.NewFromInt(50000),
		Currency: "TWD",
	}
	loan := model.Holding{
		Symbol:      "MORTGAGE",
		Category:    model.CategoryLiability,
		Quantity:    decimal.NewFromInt(1),
		AvgCost:     decimal.NewFromInt(3000000),
		ManualPrice: decimal.NewFromInt(2800000),
		Currency:    "TWD",
	}

	rows := s.BuildValuation(context.Background(), []model.Holding{cash, loan}, "TWD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 2)

	// Cash with no manual price defaults to face value 1.
	assert.Equal(t, model.StatusManual, rows[0].Status)
	assert.True(t, decimal.NewFromInt(1).Equal(rows[0].CurrentPrice))
	assert.True(t, decimal.NewFromInt(50000).Equal(rows[0].MarketValue))
	assert.True(t, rows[0].NetValue.Equal(rows[0].MarketValue))

	// Liability: net value flips sign, P/L is cost - market value.
	loanRow := rows[1]
	assert.Equal(t, model.StatusManual, loanRow.Status)
	assert.True(t, decimal.NewFromInt(2800000).Equal(loanRow.MarketValue))
	assert.True(t, loanRow.NetValue.Equal(loanRow.MarketValue.Neg()))
	assert.True(t, loanRow.UnrealizedPL.Equal(loanRow.TotalCost.Sub(loanRow.MarketValue)))
	// 3,000,000 principal now 2,800,000 owed: paying down debt is a gain.
	assert.True(t, decimal.NewFromInt(200000).Equal(loanRow.UnrealizedPL))
}

func TestBuildValuationROIZeroOnZeroCost(t *testing.T) {
	s := newTestService(&fakeQuoteApi{series: map[string]model.PriceSeries{"FREE": dailySeries(50)}})

	holding := staleHolding("FREE")
	holding.AvgCost = decimal.Zero

	rows := s.BuildValuation(context.Background(), []model.Holding{holding}, "USD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 1)

	assert.True(t, rows[0].TotalCost.IsZero())
	assert.True(t, rows[0].ROIPct.IsZero(), "ROI must be 0 when total cost is 0, got %s", rows[0].ROIPct)
}

func TestBuildValuationROI(t *testing.T) {
	s := newTestService(&fakeQuoteApi{series: map[string]model.PriceSeries{"AAPL": dailySeries(120)}})

	holding := staleHolding("AAPL") // cost 100, qty 10

	rows := s.BuildValuation(context.Background(), []model.Holding{holding}, "USD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 1)

	// (1200 - 1000) / 1000 * 100 = 20%.
	assert.True(t, decimal.NewFromInt(20).Equal(rows[0].ROIPct), "got %s", rows[0].ROIPct)
	assert.True(t, rows[0].UnrealizedPL.Equal(rows[0].MarketValue.Sub(rows[0].TotalCost)))
}

func TestBuildValuationDisplayModes(t *testing.T) {
	rate := decimal.NewFromFloat(32.5)

	holding := staleHolding("AAPL")
	holding.ManualPrice = decimal.NewFromInt(150)
	holding.LastUpdate = stamp(testNow.Add(-time.Hour))

	t.Run("auto keeps native currency", func(t *testing.T) {
		s := newTestService(&fakeQuoteApi{})
		rows := s.BuildValuation(context.Background(), []model.Holding{holding}, model.DisplayAuto, rate)
		require.Len(t, rows, 1)
		row := rows[0]

		assert.Equal(t, "USD", row.DisplayCurrency)
		assert.True(t, decimal.NewFromInt(150).Equal(row.DisplayPrice))
		assert.True(t, decimal.NewFromInt(1500).Equal(row.DisplayMarketValue))

		// Aggregation fields still use the configured TWD base.
		assert.True(t, decimal.NewFromInt(150).Mul(rate).Equal(row.CurrentPrice))
		assert.True(t, decimal.NewFromInt(1500).Mul(rate).Equal(row.MarketValue))
	})

	t.Run("explicit base converts display fields", func(t *testing.T) {
		s := newTestService(&fakeQuoteApi{})
		rows := s.BuildValuation(context.Background(), []model.Holding{holding}, "TWD", rate)
		require.Len(t, rows, 1)
		row := rows[0]

		assert.Equal(t, "TWD", row.DisplayCurrency)
		assert.True(t, row.DisplayPrice.Equal(row.CurrentPrice))
		assert.True(t, row.DisplayMarketValue.Equal(row.MarketValue))
		assert.True(t, row.DisplayPL.Equal(row.UnrealizedPL))
	})
}

func TestBuildValuationPreservesOrder(t *testing.T) {
	s := newTestService(&fakeQuoteApi{series: map[string]model.PriceSeries{
		"AAA": dailySeries(10),
		"BBB": dailySeries(20),
		"CCC": dailySeries(30),
	}})

	holdings := []model.Holding{staleHolding("CCC"), staleHolding("AAA"), staleHolding("BBB")}

	rows := s.BuildValuation(context.Background(), holdings, "USD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 3)
	assert.Equal(t, "CCC", rows[0].Symbol)
	assert.Equal(t, "AAA", rows[1].Symbol)
	assert.Equal(t, "BBB", rows[2].Symbol)
}

func TestBuildValuationUsesQuoteCache(t *testing.T) {
	api := &fakeQuoteApi{}
	s := newTestService(api)
	s.cache = &fakeCache{quotes: map[string]model.Quote{
		"AAPL": {Symbol: "AAPL", Price: decimal.NewFromInt(205), PrevClose: decimal.NewFromInt(200)},
	}}

	rows := s.BuildValuation(context.Background(), []model.Holding{staleHolding("AAPL")}, "USD", decimal.NewFromFloat(32.5))
	require.Len(t, rows, 1)

	assert.Equal(t, model.StatusLive, rows[0].Status)
	assert.True(t, decimal.NewFromInt(205).Equal(rows[0].CurrentPrice))
	assert.Equal(t, 0, api.seriesCalls, "cache hit must not reach the quote source")
}

func TestSummarize(t *testing.T) {
	s := newTestService(&fakeQuoteApi{})

	rows := []model.ValuationRow{
		{
			Holding:      model.Holding{Category: model.CategoryInvestment},
			MarketValue:  decimal.NewFromInt(1000),
			NetValue:     decimal.NewFromInt(1000),
			TotalCost:    decimal.NewFromInt(800),
			UnrealizedPL: decimal.NewFromInt(200),
		},
		{
			Holding:      model.Holding{Category: model.CategoryCash},
			MarketValue:  decimal.NewFromInt(500),
			NetValue:     decimal.NewFromInt(500),
			TotalCost:    decimal.NewFromInt(500),
			UnrealizedPL: decimal.Zero,
		},
		{
			Holding:      model.Holding{Category: model.CategoryLiability},
			MarketValue:  decimal.NewFromInt(300),
			NetValue:     decimal.NewFromInt(-300),
			TotalCost:    decimal.NewFromInt(350),
			UnrealizedPL: decimal.NewFromInt(50),
		},
	}

	summary := s.Summarize(rows)

	assert.Equal(t, 3, summary.Rows)
	assert.True(t, decimal.NewFromInt(1200).Equal(summary.NetWorth), "got %s", summary.NetWorth)
	assert.True(t, decimal.NewFromInt(1500).Equal(summary.TotalAssets))
	assert.True(t, decimal.NewFromInt(300).Equal(summary.TotalLiabilities))
	assert.True(t, decimal.NewFromInt(1650).Equal(summary.TotalCost))
	assert.True(t, decimal.NewFromInt(250).Equal(summary.TotalPL))
}
