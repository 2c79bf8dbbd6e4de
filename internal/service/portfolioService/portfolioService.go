package portfolioService

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yuchenglin/investool/config"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/internal/ratecache"
	"github.com/yuchenglin/investool/internal/retry"
	"github.com/yuchenglin/investool/utils"
)

type QuoteApi interface {
	FetchPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
	GetDailySeries(ctx context.Context, symbol, rng string) (model.PriceSeries, error)
	FetchExchangeRate(ctx context.Context) (decimal.Decimal, error)
}

type Cache interface {
	GetQuote(ctx context.Context, symbol string) (model.Quote, error)
	SetQuote(ctx context.Context, quote model.Quote) error
}

type Storage interface {
	LoadHoldings(ctx context.Context) ([]model.Holding, error)
	SaveHoldings(ctx context.Context, holdings []model.Holding) error
	Workbook(ctx context.Context, holdings []model.Holding) ([]byte, error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (fileID string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type PortfolioService struct {
	cfg      *config.Config
	quoteApi QuoteApi
	cache    Cache
	storage  Storage
	cloud    CloudStorage
	rates    *ratecache.RateCache
	retry    retry.Policy
	now      func() time.Time
}

// New wires the service. cloud may be nil; backups are then skipped.
func New(cfg *config.Config, quoteApi QuoteApi, cache Cache, storage Storage, cloud CloudStorage) *PortfolioService {
	s := &PortfolioService{
		cfg:      cfg,
		quoteApi: quoteApi,
		cache:    cache,
		storage:  storage,
		cloud:    cloud,
		retry:    retry.New(cfg.MarketData.MaxRetries, cfg.MarketData.RetryBaseDelay),
		now:      time.Now,
	}
	s.rates = ratecache.New(
		cfg.MarketData.ExchangeRateCacheTTL,
		decimal.NewFromFloat(cfg.MarketData.DefaultExchangeRate),
		quoteApi.FetchExchangeRate,
	)
	return s
}

// ExchangeRate returns the cached USD/base rate, refetching on TTL expiry.
func (s *PortfolioService) ExchangeRate(ctx context.Context) decimal.Decimal {
	return s.rates.Rate(ctx)
}

// RefreshAndPersist loads the portfolio, refreshes stale prices, saves the
// mutated holdings and uploads a workbook backup when cloud storage is
// configured. Partial fetch failures are logged, not returned: the engine
// always persists whatever it has.
func (s *PortfolioService) RefreshAndPersist(ctx context.Context) error {
	ctx = utils.CreateCtxWithRqID(ctx)
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.RefreshAndPersist"

	slog.Debug("RefreshAndPersist start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RefreshAndPersist finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	holdings, err := s.storage.LoadHoldings(ctx)
	if err != nil {
		slog.Error("got error from storage.LoadHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	successCount, failCount, holdings := s.AutoUpdate(ctx, holdings)
	slog.Info("auto update complete", slog.String("rqID", rqID), slog.String("op", op), slog.Int("success", successCount), slog.Int("failed", failCount))

	if successCount == 0 && failCount == 0 {
		return nil
	}

	err = s.storage.SaveHoldings(ctx, holdings)
	if err != nil {
		slog.Error("got error from storage.SaveHoldings", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	if s.cloud == nil {
		return nil
	}

	return s.backupPortfolio(ctx, holdings)
}

func (s *PortfolioService) backupPortfolio(ctx context.Context, holdings []model.Holding) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "PortfolioService.backupPortfolio"

	workbook, err := s.storage.Workbook(ctx, holdings)
	if err != nil {
		slog.Error("got error from storage.Workbook", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	filename := fmt.Sprintf("portfolio_backup_%s.xlsx", s.now().Format("20060102_1504"))
	fileID, err := s.cloud.UploadFile(ctx, bytes.NewReader(workbook), filename)
	if err != nil {
		slog.Error("got error from cloud.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	slog.Info("portfolio backup uploaded", slog.String("rqID", rqID), slog.String("op", op), slog.String("fileID", fileID))

	err = s.cloud.DeleteOldFiles(ctx)
	if err != nil {
		slog.Error("got error from cloud.DeleteOldFiles", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

// Summarize aggregates base-currency fields across rows. Display fields are
// never summed: native-currency values across mixed currencies have no
// meaningful total.
func (s *PortfolioService) Summarize(rows []model.ValuationRow) model.PortfolioSummary {
	summary := model.PortfolioSummary{Rows: len(rows)}

	for _, row := range rows {
		summary.NetWorth = summary.NetWorth.Add(row.NetValue)
		if row.Category == model.CategoryLiability {
			summary.TotalLiabilities = summary.TotalLiabilities.Add(row.MarketValue)
		} else {
			summary.TotalAssets = summary.TotalAssets.Add(row.MarketValue)
		}
		summary.TotalCost = summary.TotalCost.Add(row.TotalCost)
		summary.TotalPL = summary.TotalPL.Add(row.UnrealizedPL)
	}

	return summary
}
