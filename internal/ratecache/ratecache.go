// Package ratecache memoizes the USD/base exchange rate for a bounded time
// window, falling back to a configured default when the fetch fails.
package ratecache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type FetchFunc func(ctx context.Context) (decimal.Decimal, error)

// RateCache holds a single rate with its fetch time. The mutex is held across
// the refetch so concurrent callers inside one TTL window observe the same
// value without issuing extra network calls.
type RateCache struct {
	mu        sync.Mutex
	ttl       time.Duration
	fallback  decimal.Decimal
	fetch     FetchFunc
	now       func() time.Time
	value     decimal.Decimal
	fetchedAt time.Time
}

func New(ttl time.Duration, fallback decimal.Decimal, fetch FetchFunc) *RateCache {
	return &RateCache{
		ttl:      ttl,
		fallback: fallback,
		fetch:    fetch,
		now:      time.Now,
	}
}

// Rate returns the cached exchange rate, refetching once per TTL window.
// A failed or non-positive fetch resolves to the fallback rate for the rest
// of the window; this method never returns an error.
func (c *RateCache) Rate(ctx context.Context) decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.fetchedAt.IsZero() && c.now().Sub(c.fetchedAt) <= c.ttl {
		return c.value
	}

	rate, err := c.fetch(ctx)
	if err != nil || !rate.IsPositive() {
		if err != nil {
			slog.Error("failed to fetch exchange rate, using fallback", slog.String("err", err.Error()), slog.String("fallback", c.fallback.String()))
		} else {
			slog.Warn("got non-positive exchange rate, using fallback", slog.String("fallback", c.fallback.String()))
		}
		rate = c.fallback
	}

	c.value = rate
	c.fetchedAt = c.now()

	return c.value
}
