package portfolioService

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/yuchenglin/investool/internal/externalApi"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/utils"
)

const historyRange = "1mo"

// flatHistoryPoints is the length of the synthetic series attached to rows
// that have no live chart data.
const flatHistoryPoints = 30

var hundred = decimal.NewFromInt(100)

type resolvedPrice struct {
	price          decimal.Decimal
	status         model.PriceStatus
	dailyChangePct decimal.Decimal
	history        []model.PricePoint
}

// BuildValuation assembles the valuation table for holdings, in input order.
// displayCurrency selects the display variant: model.DisplayAuto keeps each
// row's native currency, anything else converts display fields into that
// base. Aggregation-grade fields are always in the base currency, which is
// the configured one when the caller asked for Auto.
func (s *PortfolioService) BuildValuation(ctx context.Context, holdings []model.Holding, displayCurrency string, usdRate decimal.Decimal) []model.ValuationRow {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.BuildValuation"

	slog.Debug("BuildValuation start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(holdings)))
	defer func() {
		slog.Debug("BuildValuation finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	baseCurrency := displayCurrency
	if displayCurrency == "" || displayCurrency == model.DisplayAuto {
		baseCurrency = s.cfg.MarketData.BaseCurrency
	}

	rows := make([]model.ValuationRow, 0, len(holdings))
	for _, holding := range holdings {
		rows = append(rows, s.buildRow(ctx, holding, displayCurrency, baseCurrency, usdRate))
	}

	return rows
}

func (s *PortfolioService) buildRow(ctx context.Context, holding model.Holding, displayCurrency, baseCurrency string, usdRate decimal.Decimal) model.ValuationRow {
	resolved := s.resolvePrice(ctx, holding)

	multiplier := RateMultiplier(holding.Currency, baseCurrency, usdRate)

	basePrice := resolved.price.Mul(multiplier)
	baseAvgCost := holding.AvgCost.Mul(multiplier)
	marketValue := basePrice.Mul(holding.Quantity)
	totalCost := baseAvgCost.Mul(holding.Quantity)

	// The only place sign inversion happens: liabilities subtract from net
	// worth but are stored with positive quantity and cost.
	netValue := marketValue
	if holding.Category == model.CategoryLiability {
		netValue = marketValue.Neg()
	}

	// Liability P/L assumes MarketValue is the currently owed balance and
	// AvgCost the original principal, so a growing balance is a loss.
	unrealizedPL := marketValue.Sub(totalCost)
	if holding.Category == model.CategoryLiability {
		unrealizedPL = totalCost.Sub(marketValue)
	}

	roiPct := decimal.Zero
	if totalCost.IsPositive() {
		roiPct = unrealizedPL.Div(totalCost).Mul(hundred)
	}

	row := model.ValuationRow{
		Holding:        holding,
		CurrentPrice:   basePrice,
		MarketValue:    marketValue,
		NetValue:       netValue,
		TotalCost:      totalCost,
		UnrealizedPL:   unrealizedPL,
		ROIPct:         roiPct,
		DailyChangePct: resolved.dailyChangePct,
		Status:         resolved.status,
		History:        resolved.history,
	}

	if displayCurrency == "" || displayCurrency == model.DisplayAuto {
		row.DisplayCurrency = holding.Currency
		row.DisplayPrice = resolved.price
		row.DisplayCostBasis = holding.AvgCost
		row.DisplayMarketValue = resolved.price.Mul(holding.Quantity)
		row.DisplayTotalCost = holding.AvgCost.Mul(holding.Quantity)
		if holding.Category == model.CategoryLiability {
			row.DisplayPL = row.DisplayTotalCost.Sub(row.DisplayMarketValue)
		} else {
			row.DisplayPL = row.DisplayMarketValue.Sub(row.DisplayTotalCost)
		}
	} else {
		row.DisplayCurrency = baseCurrency
		row.DisplayPrice = basePrice
		row.DisplayCostBasis = baseAvgCost
		row.DisplayMarketValue = marketValue
		row.DisplayTotalCost = totalCost
		row.DisplayPL = unrealizedPL
	}

	return row
}

// resolvePrice picks the current native-currency price for a holding, walking
// the fallback tiers: face value for cash/liability, cached manual price
// within the staleness window, live quote, stale manual price, cost basis.
func (s *PortfolioService) resolvePrice(ctx context.Context, holding model.Holding) resolvedPrice {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.resolvePrice"

	if holding.Category.FaceValue() {
		price := holding.ManualPrice
		if !price.IsPositive() {
			price = decimal.NewFromInt(1)
		}
		return resolvedPrice{price: price, status: model.StatusManual, history: s.flatHistory(price)}
	}

	if !s.IsOutdated(holding.LastUpdate) && holding.ManualPrice.IsPositive() {
		slog.Debug("using cached price", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", holding.Symbol), slog.String("price", holding.ManualPrice.String()))
		return resolvedPrice{price: holding.ManualPrice, status: model.StatusCached, history: s.flatHistory(holding.ManualPrice)}
	}

	quote, err := s.liveQuote(ctx, holding.Symbol)
	if err == nil {
		dailyChangePct := decimal.Zero
		if quote.PrevClose.IsPositive() {
			dailyChangePct = quote.Price.Sub(quote.PrevClose).Div(quote.PrevClose).Mul(hundred)
		}
		return resolvedPrice{price: quote.Price, status: model.StatusLive, dailyChangePct: dailyChangePct, history: quote.History}
	}

	slog.Debug("live data unavailable", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", holding.Symbol), slog.String("err", err.Error()))

	if holding.ManualPrice.IsPositive() {
		return resolvedPrice{price: holding.ManualPrice, status: model.StatusManualStale, history: s.flatHistory(holding.ManualPrice)}
	}

	return resolvedPrice{price: holding.AvgCost, status: model.StatusCostOnly, history: s.flatHistory(holding.AvgCost)}
}

// liveQuote consults the shared quote cache before going to the quote source.
// The fetched quote is written back asynchronously, as a best effort.
func (s *PortfolioService) liveQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.liveQuote"

	if s.cache != nil {
		quote, err := s.cache.GetQuote(ctx, symbol)
		if err == nil {
			slog.Debug("got quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol))
			return quote, nil
		}
	}

	var series model.PriceSeries
	err := s.retry.Do(ctx, "fetch daily series "+symbol, func() error {
		var err error
		series, err = s.quoteApi.GetDailySeries(ctx, symbol, historyRange)
		return err
	})
	if err != nil {
		return model.Quote{}, err
	}

	if len(series.Points) == 0 {
		return model.Quote{}, externalApi.ErrNoData
	}

	quote := model.Quote{
		Symbol:  symbol,
		Price:   series.Points[len(series.Points)-1].Close,
		History: make([]model.PricePoint, 0, len(series.Points)),
	}
	quote.PrevClose = quote.Price
	if len(series.Points) > 1 {
		quote.PrevClose = series.Points[len(series.Points)-2].Close
	}
	for _, point := range series.Points {
		quote.History = append(quote.History, model.PricePoint{Date: point.Date, Close: point.Close})
	}

	if s.cache != nil {
		go func() {
			if err := s.cache.SetQuote(context.WithoutCancel(ctx), quote); err != nil {
				slog.Warn("can't store quote in cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
			}
		}()
	}

	return quote, nil
}

func (s *PortfolioService) flatHistory(price decimal.Decimal) []model.PricePoint {
	history := make([]model.PricePoint, 0, flatHistoryPoints)
	end := s.now()
	for i := flatHistoryPoints - 1; i >= 0; i-- {
		history = append(history, model.PricePoint{Date: end.AddDate(0, 0, -i), Close: price})
	}
	return history
}
