package portfolioService

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/shopspring/decimal"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/utils"
)

type indexedResult struct {
	index  int
	result model.PriceUpdateResult
}

// AutoUpdate refreshes the price of every stale, quote-bearing holding
// through a bounded worker pool and merges results back in place. Cash and
// liability holdings are face-value items and never fetched. The returned
// slice is the input slice: successful fetches mutate ManualPrice and
// LastUpdate on their own entry, failed ones leave the entry untouched.
func (s *PortfolioService) AutoUpdate(ctx context.Context, holdings []model.Holding) (successCount, failCount int, _ []model.Holding) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.AutoUpdate"

	slog.Debug("AutoUpdate start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("holdings", len(holdings)))
	defer func() {
		slog.Debug("AutoUpdate finished", slog.String("rqID", rqID), slog.String("op", op), slog.Int("success", successCount), slog.Int("failed", failCount))
	}()

	candidates := make([]int, 0, len(holdings))
	for i := range holdings {
		if holdings[i].Category.FaceValue() {
			continue
		}
		if holdings[i].LastUpdate == "" {
			holdings[i].LastUpdate = model.LastUpdateUnset
		}
		if s.IsOutdated(holdings[i].LastUpdate) {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		slog.Info("no outdated holdings to update", slog.String("rqID", rqID), slog.String("op", op))
		return 0, 0, holdings
	}

	slog.Info("updating outdated holdings", slog.String("rqID", rqID), slog.String("op", op), slog.Int("count", len(candidates)))

	workers := s.cfg.MarketData.MaxConcurrentUpdates
	if workers < 1 {
		workers = 1
	}
	if workers > len(candidates) {
		workers = len(candidates)
	}

	jobs := make(chan int)
	results := make(chan indexedResult)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- indexedResult{index: i, result: s.fetchOne(ctx, holdings[i].Symbol)}
			}
		}()
	}

	go func() {
		for _, i := range candidates {
			jobs <- i
		}
		close(jobs)
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// Results arrive in completion order; each task owns exactly one holding
	// index, so merging here needs no further synchronization.
	for r := range results {
		if r.result.Success {
			holdings[r.index].ManualPrice = r.result.Price
			holdings[r.index].LastUpdate = s.now().Format(model.LastUpdateLayout)
			successCount++
			slog.Debug("holding updated", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", r.result.Symbol), slog.String("price", r.result.Price.String()))
		} else {
			failCount++
			slog.Warn("failed to update holding", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", r.result.Symbol), slog.String("err", r.result.Err))
		}
	}

	return successCount, failCount, holdings
}

// fetchOne runs one retried price fetch. A panic inside the quote path is
// converted into a failed PriceUpdateResult so sibling tasks keep running.
func (s *PortfolioService) fetchOne(ctx context.Context, symbol string) (res model.PriceUpdateResult) {
	defer func() {
		if r := recover(); r != nil {
			res = model.PriceUpdateResult{Symbol: symbol, Err: fmt.Sprintf("panic: %v", r)}
		}
	}()

	var price decimal.Decimal
	err := s.retry.Do(ctx, "fetch price "+symbol, func() error {
		var err error
		price, err = s.quoteApi.FetchPrice(ctx, symbol)
		return err
	})
	if err != nil {
		return model.PriceUpdateResult{Symbol: symbol, Err: err.Error()}
	}

	return model.PriceUpdateResult{Symbol: symbol, Success: true, Price: price}
}
