package yahooApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"github.com/yuchenglin/investool/config"
	"github.com/yuchenglin/investool/internal/externalApi"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/internal/model/yahooModel"
	"github.com/yuchenglin/investool/utils"
)

type YahooApi struct {
	client *resty.Client
	cfg    *config.Config
}

func New(cfg *config.Config) *YahooApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.YahooApi.Url).
		SetHeader("User-Agent", cfg.API.YahooApi.UserAgent)
	return &YahooApi{client: client, cfg: cfg}
}

// GetDailySeries fetches the daily OHLC series for symbol over rng (a Yahoo
// range token such as "1d", "1mo" or "3mo").
func (a *YahooApi) GetDailySeries(ctx context.Context, symbol, rng string) (model.PriceSeries, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	endpoint := fmt.Sprintf("/v8/finance/chart/%s", url.PathEscape(symbol))
	params := map[string]string{
		"range":          rng,
		"interval":       "1d",
		"includePrePost": "false",
	}

	slog.Debug("start YahooApi.GetDailySeries request", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.String("range", rng))

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get(endpoint)

	if err != nil {
		slog.Error("error while dialing YahooApi", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return model.PriceSeries{}, err
	}

	if resp.StatusCode() == 404 {
		return model.PriceSeries{}, externalApi.ErrNotFound
	}

	rawChart := yahooModel.RawChartResponse{}
	err = json.Unmarshal(resp.Body(), &rawChart)
	if err != nil {
		slog.Error("can't unmarshall response into yahooModel.RawChartResponse", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return model.PriceSeries{}, err
	}

	res, err := a.parseRawChart(symbol, rawChart)
	if err != nil {
		slog.Error("can't parse raw chart data", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.String("symbol", symbol))
		return model.PriceSeries{}, err
	}

	slog.Debug("YahooApi.GetDailySeries request complete", slog.String("rqID", rqID), slog.String("symbol", symbol), slog.Int("points", len(res.Points)))

	return res, nil
}

// FetchPrice returns the latest daily close for symbol, falling back to the
// last-trade price from chart meta when the series came back empty.
func (a *YahooApi) FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	series, err := a.GetDailySeries(ctx, symbol, "1d")
	if err != nil {
		return decimal.Zero, err
	}

	if len(series.Points) > 0 {
		return series.Points[len(series.Points)-1].Close, nil
	}

	if series.LastTrade.IsPositive() {
		return series.LastTrade, nil
	}

	return decimal.Zero, externalApi.ErrNoData
}

// FetchExchangeRate fetches the configured USD/base currency-pair quote.
func (a *YahooApi) FetchExchangeRate(ctx context.Context) (decimal.Decimal, error) {
	return a.FetchPrice(ctx, a.cfg.MarketData.FxPairSymbol)
}

func (a *YahooApi) parseRawChart(symbol string, rawChart yahooModel.RawChartResponse) (model.PriceSeries, error) {
	if rawChart.Chart.Error != nil {
		if rawChart.Chart.Error.Code == "Not Found" {
			return model.PriceSeries{}, externalApi.ErrNotFound
		}
		return model.PriceSeries{}, fmt.Errorf("chart error %s: %s", rawChart.Chart.Error.Code, rawChart.Chart.Error.Description)
	}

	if len(rawChart.Chart.Result) == 0 {
		return model.PriceSeries{}, externalApi.ErrNoData
	}

	result := rawChart.Chart.Result[0]

	series := model.PriceSeries{
		Symbol:   symbol,
		Currency: result.Meta.Currency,
	}

	if result.Meta.RegularMarketPrice > 0 {
		series.LastTrade = decimal.NewFromFloat(result.Meta.RegularMarketPrice)
	}

	if len(result.Indicators.Quote) == 0 {
		return series, nil
	}

	quote := result.Indicators.Quote[0]
	if len(quote.Close) != len(result.Timestamp) {
		return model.PriceSeries{}, fmt.Errorf("lengths close != timestamp (%d != %d)", len(quote.Close), len(result.Timestamp))
	}

	series.Points = make([]model.OHLCPoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		if quote.Close[i] == nil {
			continue
		}

		point := model.OHLCPoint{
			Date:  time.Unix(ts, 0).UTC(),
			Close: decimal.NewFromFloat(*quote.Close[i]),
		}
		if i < len(quote.High) && quote.High[i] != nil {
			point.High = decimal.NewFromFloat(*quote.High[i])
		}
		if i < len(quote.Low) && quote.Low[i] != nil {
			point.Low = decimal.NewFromFloat(*quote.Low[i])
		}
		series.Points = append(series.Points, point)
	}

	return series, nil
}
