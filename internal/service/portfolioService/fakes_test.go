package portfolioService

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuchenglin/investool/config"
	"github.com/yuchenglin/investool/internal/externalApi"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/internal/retry"
)

var testNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.Local)

type fakeQuoteApi struct {
	mu          sync.Mutex
	prices      map[string]decimal.Decimal
	series      map[string]model.PriceSeries
	errs        map[string]error
	panics      map[string]bool
	fxRate      decimal.Decimal
	fxErr       error
	fetchCalls  int
	seriesCalls int
	fxCalls     int
}

func (f *fakeQuoteApi) FetchPrice(_ context.Context, symbol string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if f.panics[symbol] {
		panic("quote source exploded for " + symbol)
	}
	if err, ok := f.errs[symbol]; ok {
		return decimal.Zero, err
	}
	price, ok := f.prices[symbol]
	if !ok {
		return decimal.Zero, externalApi.ErrNoData
	}
	return price, nil
}

func (f *fakeQuoteApi) GetDailySeries(_ context.Context, symbol, _ string) (model.PriceSeries, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seriesCalls++
	if err, ok := f.errs[symbol]; ok {
		return model.PriceSeries{}, err
	}
	series, ok := f.series[symbol]
	if !ok {
		return model.PriceSeries{}, externalApi.ErrNoData
	}
	return series, nil
}

func (f *fakeQuoteApi) FetchExchangeRate(_ context.Context) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fxCalls++
	return f.fxRate, f.fxErr
}

type fakeCache struct {
	mu     sync.Mutex
	quotes map[string]model.Quote
	stored []model.Quote
}

func (f *fakeCache) GetQuote(_ context.Context, symbol string) (model.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	quote, ok := f.quotes[symbol]
	if !ok {
		return model.Quote{}, errors.New("cache miss")
	}
	return quote, nil
}

func (f *fakeCache) SetQuote(_ context.Context, quote model.Quote) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stored = append(f.stored, quote)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		MarketData: config.MarketData{
			BaseCurrency:             "TWD",
			FxPairSymbol:             "TWD=X",
			DefaultExchangeRate:      32.5,
			ExchangeRateCacheTTL:     time.Hour,
			PriceUpdateThresholdDays: 1,
			MaxConcurrentUpdates:     4,
			MaxRetries:               1,
			RetryBaseDelay:           time.Millisecond,
		},
	}
}

func newTestService(api *fakeQuoteApi) *PortfolioService {
	s := New(testConfig(), api, &fakeCache{}, nil, nil)
	s.retry = retry.Policy{
		MaxAttempts: 1,
		Sleep:       func(time.Duration) {},
		Jitter:      func() time.Duration { return 0 },
	}
	s.now = func() time.Time { return testNow }
	return s
}

func stamp(t time.Time) string {
	return t.Format(model.LastUpdateLayout)
}
