package portfolioService

import (
	"log/slog"
	"time"

	"github.com/yuchenglin/investool/internal/model"
)

// IsOutdated reports whether a cached price with the given LastUpdate stamp
// must be refreshed. Unset or unparseable stamps count as outdated: when in
// doubt, refetch rather than trust malformed data.
func (s *PortfolioService) IsOutdated(lastUpdate string) bool {
	if lastUpdate == "" || lastUpdate == model.LastUpdateUnset {
		return true
	}

	updatedAt, err := time.ParseInLocation(model.LastUpdateLayout, lastUpdate, time.Local)
	if err != nil {
		slog.Warn("failed to parse last update time, treating as outdated", slog.String("lastUpdate", lastUpdate), slog.String("err", err.Error()))
		return true
	}

	threshold := time.Duration(s.cfg.MarketData.PriceUpdateThresholdDays) * 24 * time.Hour

	return s.now().Sub(updatedAt) > threshold
}
