package portfolioService

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/utils"
)

const (
	DefaultATRPeriod = 14
	atrRange         = "3mo"
)

var (
	DefaultATRMultiplier = decimal.NewFromInt(2)
	DefaultRRatio        = decimal.NewFromInt(2)
)

// EntrySuggestion sizes a planned position from the maximum acceptable loss:
// stop distance is one R (ATR * multiplier), take profit is RRatio times
// that above entry.
type EntrySuggestion struct {
	SLPrice      decimal.Decimal
	TPPrice      decimal.Decimal
	MaxQty       decimal.Decimal
	OneRDistance decimal.Decimal
	RiskAmount   decimal.Decimal
	RewardAmount decimal.Decimal
}

// HoldingSuggestion is the SL/TP advice for a position already held,
// anchored on its average cost.
type HoldingSuggestion struct {
	SLPrice         decimal.Decimal
	TPPrice         decimal.Decimal
	ATR             decimal.Decimal
	OneRDistance    decimal.Decimal
	CurrentRisk     decimal.Decimal
	CurrentReward   decimal.Decimal
	UnrealizedPLPct decimal.Decimal
}

// CalculateATR computes the Average True Range over period daily bars.
// TR = max(high-low, |high-prevClose|, |low-prevClose|); ATR is the simple
// average of the last period true ranges.
func (s *PortfolioService) CalculateATR(ctx context.Context, symbol string, period int) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.CalculateATR"

	if period < 1 {
		period = DefaultATRPeriod
	}

	series, err := s.quoteApi.GetDailySeries(ctx, symbol, atrRange)
	if err != nil {
		slog.Error("can't fetch series for ATR", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("err", err.Error()))
		return decimal.Zero, err
	}

	if len(series.Points) < period+1 {
		return decimal.Zero, fmt.Errorf("insufficient data for ATR: got %d points, need %d", len(series.Points), period+1)
	}

	trueRanges := make([]decimal.Decimal, 0, len(series.Points)-1)
	for i := 1; i < len(series.Points); i++ {
		point := series.Points[i]
		prevClose := series.Points[i-1].Close

		tr := decimal.Max(
			point.High.Sub(point.Low),
			point.High.Sub(prevClose).Abs(),
			point.Low.Sub(prevClose).Abs(),
		)
		trueRanges = append(trueRanges, tr)
	}

	window := trueRanges[len(trueRanges)-period:]
	sum := decimal.Zero
	for _, tr := range window {
		sum = sum.Add(tr)
	}
	atr := sum.Div(decimal.NewFromInt(int64(period)))

	slog.Debug("ATR calculated", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", symbol), slog.String("atr", atr.String()))

	return atr, nil
}

// SuggestEntry computes SL/TP levels and position sizing for a new entry.
// Pure function of its inputs; a zero stop distance yields zero quantity
// rather than a division error.
func SuggestEntry(entryPrice, atr, maxLossAmount, atrMultiplier, rRatio decimal.Decimal) EntrySuggestion {
	oneR := atr.Mul(atrMultiplier)

	maxQty := decimal.Zero
	if oneR.IsPositive() {
		maxQty = maxLossAmount.Div(oneR)
	}

	return EntrySuggestion{
		SLPrice:      entryPrice.Sub(oneR).Round(2),
		TPPrice:      entryPrice.Add(oneR.Mul(rRatio)).Round(2),
		MaxQty:       maxQty.Round(2),
		OneRDistance: oneR.Round(4),
		RiskAmount:   maxQty.Mul(oneR).Round(2),
		RewardAmount: maxQty.Mul(oneR).Mul(rRatio).Round(2),
	}
}

// SuggestForHolding derives SL/TP advice for an existing holding from its
// current ATR, anchored on average cost.
func (s *PortfolioService) SuggestForHolding(ctx context.Context, holding model.Holding, currentPrice decimal.Decimal) (HoldingSuggestion, error) {
	atr, err := s.CalculateATR(ctx, holding.Symbol, DefaultATRPeriod)
	if err != nil {
		return HoldingSuggestion{}, err
	}

	oneR := atr.Mul(DefaultATRMultiplier)
	slPrice := holding.AvgCost.Sub(oneR)
	tpPrice := holding.AvgCost.Add(oneR.Mul(DefaultRRatio))

	plPct := decimal.Zero
	if holding.AvgCost.IsPositive() {
		plPct = currentPrice.Sub(holding.AvgCost).Div(holding.AvgCost).Mul(hundred)
	}

	return HoldingSuggestion{
		SLPrice:         slPrice.Round(2),
		TPPrice:         tpPrice.Round(2),
		ATR:             atr.Round(4),
		OneRDistance:    oneR.Round(4),
		CurrentRisk:     holding.AvgCost.Sub(slPrice).Round(2),
		CurrentReward:   tpPrice.Sub(holding.AvgCost).Round(2),
		UnrealizedPLPct: plPct.Round(2),
	}, nil
}
