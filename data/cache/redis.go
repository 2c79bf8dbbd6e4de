package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/redis/go-redis/v9"
	"github.com/yuchenglin/investool/config"
	"github.com/yuchenglin/investool/internal/model"
	"github.com/yuchenglin/investool/utils"
)

const quoteKeyPrefix = "quote:"

type RedisCache struct {
	redis *redis.Client
	cfg   *config.Config
}

func NewRedisCache(redisClient *redis.Client, cfg *config.Config) *RedisCache {
	return &RedisCache{redis: redisClient, cfg: cfg}
}

func (r *RedisCache) SetQuote(ctx context.Context, quote model.Quote) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("SetQuote start", slog.String("rqID", rqID), slog.String("symbol", quote.Symbol))

	quoteJson, err := json.Marshal(quote)
	if err != nil {
		slog.Error(
			"can't marshall quote in SetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.Any("quote", quote),
		)
		return errors.New("can't marshall quote")
	}

	_, err = r.redis.Set(ctx, quoteKeyPrefix+quote.Symbol, quoteJson, r.cfg.Cache.QuotesExpiration).Result()
	if err != nil {
		slog.Error(
			"failed on redis.Set",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("symbol", quote.Symbol),
		)
		return err
	}

	slog.Debug("SetQuote completed", slog.String("rqID", rqID), slog.String("symbol", quote.Symbol))

	return nil
}

func (r *RedisCache) GetQuote(ctx context.Context, symbol string) (model.Quote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("GetQuote start", slog.String("rqID", rqID), slog.String("symbol", symbol))

	res, err := r.redis.Get(ctx, quoteKeyPrefix+symbol).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Error("failed on redis.Get", slog.String("rqID", rqID), slog.String("err", err.Error()), slog.String("symbol", symbol))
		}
		return model.Quote{}, err
	}

	quote := model.Quote{}
	err = json.Unmarshal([]byte(res), &quote)
	if err != nil {
		slog.Error(
			"can't unmarshall quote in GetQuote",
			slog.String("rqID", rqID),
			slog.String("err", err.Error()),
			slog.String("resultFromRedis", res),
		)
		return model.Quote{}, errors.New("can't unmarshall quote")
	}

	slog.Debug("GetQuote finished", slog.String("rqID", rqID), slog.String("symbol", symbol))

	return quote, nil
}
