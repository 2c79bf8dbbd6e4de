package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Redis       Redis
	API         API
	MarketData  MarketData
	Cache       Cache
	Storage     Storage
	GoogleDrive GoogleDrive
	Jobs        Jobs
}

type Redis struct {
	Host     string `env:"REDIS_HOST" envDefault:"localhost"`
	Port     int    `env:"REDIS_PORT" envDefault:"6379"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"10s"`
	YahooApi YahooApi
}

type YahooApi struct {
	Url       string `env:"YAHOO_API_URL" envDefault:"https://query1.finance.yahoo.com"`
	UserAgent string `env:"YAHOO_API_USER_AGENT" envDefault:"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"`
}

type MarketData struct {
	BaseCurrency             string        `env:"BASE_CURRENCY" envDefault:"TWD"`
	FxPairSymbol             string        `env:"FX_PAIR_SYMBOL" envDefault:"TWD=X"`
	DefaultExchangeRate      float64       `env:"DEFAULT_EXCHANGE_RATE" envDefault:"32.5"`
	ExchangeRateCacheTTL     time.Duration `env:"EXCHANGE_RATE_CACHE_TTL" envDefault:"1h"`
	PriceUpdateThresholdDays int           `env:"PRICE_UPDATE_THRESHOLD_DAYS" envDefault:"1"`
	MaxConcurrentUpdates     int           `env:"MAX_CONCURRENT_UPDATES" envDefault:"10"`
	MaxRetries               int           `env:"MAX_RETRIES" envDefault:"3"`
	RetryBaseDelay           time.Duration `env:"RETRY_BASE_DELAY" envDefault:"1s"`
}

type Cache struct {
	QuotesExpiration time.Duration `env:"CACHE_QUOTES_EXPIRATION" envDefault:"10m"`
}

type Storage struct {
	PortfolioFile string `env:"PORTFOLIO_FILE" envDefault:"my_portfolio.xlsx"`
}

type GoogleDrive struct {
	Enabled         bool          `env:"GOOGLE_DRIVE_ENABLED" envDefault:"false"`
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"720h"`
}

type Jobs struct {
	AutoUpdateInterval time.Duration `env:"AUTO_UPDATE_JOB_INTERVAL" envDefault:"1h"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}
