package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuchenglin/investool/config"
	"github.com/yuchenglin/investool/data"
	"github.com/yuchenglin/investool/data/cache"
	"github.com/yuchenglin/investool/data/storage/xlsxStorage"
	"github.com/yuchenglin/investool/internal/externalApi/cloudStorageApi/googleDriveApi"
	"github.com/yuchenglin/investool/internal/externalApi/yahooApi"
	"github.com/yuchenglin/investool/internal/scheduler"
	"github.com/yuchenglin/investool/internal/service/portfolioService"
	"github.com/yuchenglin/investool/utils"
)

func main() {
	cfg := config.MustLoad()

	setupLogger(cfg)

	slog.Debug("config", slog.Any("cfg", cfg))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	redisClient := data.NewRedisClient(cfg)
	defer redisClient.Close()

	redisCache := cache.NewRedisCache(redisClient, cfg)

	yahooApiClient := yahooApi.New(cfg)

	storage := xlsxStorage.New(cfg)

	var cloudStorage portfolioService.CloudStorage
	if cfg.GoogleDrive.Enabled {
		cloudStorage = googleDriveApi.New(ctx, cfg)
	}

	portfolioSrv := portfolioService.New(cfg, yahooApiClient, redisCache, storage, cloudStorage)

	sched := scheduler.New()
	sched.NewIntervalJob("auto update portfolio", func(ctx context.Context) error {
		return portfolioSrv.RefreshAndPersist(utils.CreateCtxWithRqID(ctx))
	}, cfg.Jobs.AutoUpdateInterval, true)
	sched.Start()
	defer sched.Stop()

	// Waiting interruption signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-interrupt
}

func setupLogger(cfg *config.Config) {
	var logLevel slog.Level

	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warning":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(log)
}
