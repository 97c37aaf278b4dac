package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/liyuxiao2/polytracker/internal/scoring"
	"github.com/liyuxiao2/polytracker/internal/secrets"
)

// AuthMode represents the authentication mode for the Data API
type AuthMode string

const (
	AuthModeNone   AuthMode = "none"
	AuthModeBearer AuthMode = "bearer"
	AuthModeAPIKey AuthMode = "api_key"
)

// IngestMode selects how trades reach the ingestion pipeline
const (
	IngestModePoll   = "poll"
	IngestModeStream = "stream"
)

// Supported database drivers
const (
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// Config holds all application configuration
type Config struct {
	Environment string `envconfig:"ENVIRONMENT" default:"production"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`

	Database   DatabaseConfig
	DataAPI    DataAPIConfig
	GammaAPI   GammaAPIConfig
	ClobAPI    ClobAPIConfig
	Ingest     IngestConfig
	Scoring    ScoringConfig
	Valuation  ValuationConfig
	Resolution ResolutionConfig
	Watch      WatchConfig
	Snapshot   SnapshotConfig
	API        APIConfig
	Alerts     AlertsConfig
}

// DatabaseConfig selects the driver and connection pool settings
type DatabaseConfig struct {
	Driver      string        `envconfig:"DB_DRIVER" default:"postgres"`
	DSN         string        `envconfig:"DATABASE_DSN" default:"host=localhost user=polytracker password=polytracker dbname=polytracker sslmode=disable"`
	MaxConns    int           `envconfig:"DATABASE_MAX_CONNS" default:"25"`
	MaxIdleTime time.Duration `envconfig:"DATABASE_MAX_IDLE_TIME" default:"5m"`
}

// DataAPIConfig configures the trades/activity feed client
type DataAPIConfig struct {
	BaseURL     string  `envconfig:"DATA_API_BASE_URL" default:"https://data-api.polymarket.com"`
	AuthMode    string  `envconfig:"DATA_API_AUTH_MODE" default:"none"`
	BearerToken string  `envconfig:"DATA_API_BEARER_TOKEN"`
	APIKey      string  `envconfig:"DATA_API_API_KEY"`
	TradesRPS   float64 `envconfig:"DATA_API_TRADES_RPS" default:"2.0"`
	ActivityRPS float64 `envconfig:"DATA_API_ACTIVITY_RPS" default:"1.0"`
}

// GammaAPIConfig configures the market metadata/resolution client
type GammaAPIConfig struct {
	BaseURL    string  `envconfig:"GAMMA_API_BASE_URL" default:"https://gamma-api.polymarket.com"`
	MarketsRPS float64 `envconfig:"GAMMA_API_MARKETS_RPS" default:"5.0"`
}

// ClobAPIConfig configures the price/order-book client and stream endpoint
type ClobAPIConfig struct {
	BaseURL   string  `envconfig:"CLOB_API_BASE_URL" default:"https://clob.polymarket.com"`
	WSURL     string  `envconfig:"CLOB_WS_URL" default:"wss://ws-subscriptions-clob.polymarket.com/ws/market"`
	PricesRPS float64 `envconfig:"CLOB_API_PRICES_RPS" default:"5.0"`
}

// IngestConfig configures the ingestion worker
type IngestConfig struct {
	Mode                   string        `envconfig:"INGEST_MODE" default:"poll"`
	Interval               time.Duration `envconfig:"INGEST_INTERVAL" default:"30s"`
	FetchLimit             int           `envconfig:"INGEST_FETCH_LIMIT" default:"200"`
	MinTradeUSD            float64       `envconfig:"INGEST_MIN_TRADE_USD" default:"0"`
	BackfillTradeThreshold int           `envconfig:"INGEST_BACKFILL_TRADE_THRESHOLD" default:"50"`
	BackfillWorkers        int           `envconfig:"INGEST_BACKFILL_WORKERS" default:"3"`
	BackfillPageSize       int           `envconfig:"INGEST_BACKFILL_PAGE_SIZE" default:"100"`
	BackfillMaxPages       int           `envconfig:"INGEST_BACKFILL_MAX_PAGES" default:"20"`
	BackfillDupPages       int           `envconfig:"INGEST_BACKFILL_DUP_PAGES" default:"3"`
	StreamBuffer           int           `envconfig:"INGEST_STREAM_BUFFER" default:"2048"`
}

// ScoringConfig exposes every scoring threshold as a tunable parameter
type ScoringConfig struct {
	HistoryLimit     int     `envconfig:"SCORE_HISTORY_LIMIT" default:"100"`
	ZThreshold       float64 `envconfig:"SCORE_Z_THRESHOLD" default:"3.0"`
	FallbackSizeUSD  float64 `envconfig:"SCORE_FALLBACK_SIZE_USD" default:"10000"`
	RelativeMultiple float64 `envconfig:"SCORE_RELATIVE_MULTIPLE" default:"5.0"`

	RetroProfitUSD        float64 `envconfig:"SCORE_RETRO_PROFIT_USD" default:"25000"`
	RetroConvictionPrice  float64 `envconfig:"SCORE_RETRO_CONVICTION_PRICE" default:"0.10"`
	RetroSizeMultiple     float64 `envconfig:"SCORE_RETRO_SIZE_MULTIPLE" default:"5.0"`
	RetroFlaggedWinRate   float64 `envconfig:"SCORE_RETRO_FLAGGED_WIN_RATE" default:"0.75"`
	RetroFlaggedMinSample int     `envconfig:"SCORE_RETRO_FLAGGED_MIN_SAMPLE" default:"3"`

	MinResolved   int     `envconfig:"SCORE_MIN_RESOLVED" default:"5"`
	WinRateBase   float64 `envconfig:"SCORE_WIN_RATE_BASE" default:"0.55"`
	WinRateCeil   float64 `envconfig:"SCORE_WIN_RATE_CEIL" default:"0.80"`
	ROIFloor      float64 `envconfig:"SCORE_ROI_FLOOR" default:"-0.10"`
	ROICeil       float64 `envconfig:"SCORE_ROI_CEIL" default:"0.50"`
	UnrealROICeil float64 `envconfig:"SCORE_UNREAL_ROI_CEIL" default:"0.30"`
	UnrealWinBase float64 `envconfig:"SCORE_UNREAL_WIN_BASE" default:"0.50"`

	LongshotPrice     float64 `envconfig:"SCORE_LONGSHOT_PRICE" default:"0.20"`
	LongshotMinSample int     `envconfig:"SCORE_LONGSHOT_MIN_SAMPLE" default:"3"`
	LongshotWinBase   float64 `envconfig:"SCORE_LONGSHOT_WIN_BASE" default:"0.30"`
	LongshotWinCeil   float64 `envconfig:"SCORE_LONGSHOT_WIN_CEIL" default:"0.60"`

	LargeBetMultiple  float64 `envconfig:"SCORE_LARGE_BET_MULTIPLE" default:"2.0"`
	LargeBetMinSample int     `envconfig:"SCORE_LARGE_BET_MIN_SAMPLE" default:"3"`
	LargeBetWinBase   float64 `envconfig:"SCORE_LARGE_BET_WIN_BASE" default:"0.55"`
	LargeBetWinCeil   float64 `envconfig:"SCORE_LARGE_BET_WIN_CEIL" default:"0.85"`

	ConcentrationMinTrades int     `envconfig:"SCORE_CONCENTRATION_MIN_TRADES" default:"10"`
	ConcentrationHHIBase   float64 `envconfig:"SCORE_CONCENTRATION_HHI_BASE" default:"0.40"`

	NewWalletDays      int `envconfig:"SCORE_NEW_WALLET_DAYS" default:"30"`
	NewWalletMinTrades int `envconfig:"SCORE_NEW_WALLET_MIN_TRADES" default:"5"`
}

// ValuationConfig configures the open-position revaluation worker
type ValuationConfig struct {
	Interval  time.Duration `envconfig:"VALUATION_INTERVAL" default:"2m"`
	BatchSize int           `envconfig:"VALUATION_BATCH_SIZE" default:"500"`
}

// ResolutionConfig configures the market resolution worker
type ResolutionConfig struct {
	Interval    time.Duration `envconfig:"RESOLUTION_INTERVAL" default:"1m"`
	MarketBatch int           `envconfig:"RESOLUTION_MARKET_BATCH" default:"50"`
	CacheTTL    time.Duration `envconfig:"RESOLUTION_CACHE_TTL" default:"60s"`
}

// WatchConfig configures the market watch refresh job
type WatchConfig struct {
	Cron          string        `envconfig:"WATCH_CRON" default:"@every 5m"`
	Window        time.Duration `envconfig:"WATCH_WINDOW" default:"24h"`
	MinTrades     int           `envconfig:"WATCH_MIN_TRADES" default:"3"`
	RecomputeCron string        `envconfig:"RECOMPUTE_CRON" default:"30 3 * * *"`
}

// SnapshotConfig configures the order-book snapshot collector
type SnapshotConfig struct {
	Cron       string        `envconfig:"SNAPSHOT_CRON" default:"@every 10m"`
	TopMarkets int           `envconfig:"SNAPSHOT_TOP_MARKETS" default:"20"`
	Pinned     []string      `envconfig:"SNAPSHOT_PINNED_MARKETS"`
	Retention  time.Duration `envconfig:"SNAPSHOT_RETENTION" default:"168h"`
}

// APIConfig configures the HTTP query surface
type APIConfig struct {
	Addr string `envconfig:"API_ADDR" default:":8080"`
}

// AlertsConfig configures flagged-trade event fan-out
type AlertsConfig struct {
	Mode         string        `envconfig:"ALERT_MODE" default:"log"`
	WebhookURL   string        `envconfig:"ALERT_WEBHOOK_URL"`
	KafkaBrokers []string      `envconfig:"ALERT_KAFKA_BROKERS"`
	KafkaTopic   string        `envconfig:"ALERT_KAFKA_TOPIC" default:"polytracker.flags"`
	Cooldown     time.Duration `envconfig:"ALERT_COOLDOWN" default:"15m"`
}

// Load reads configuration from the environment. A .env file in the working
// directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	// Docker-secrets indirection for sensitive values (FOO_FILE wins over FOO)
	cfg.Database.DSN = secrets.GetOptional("DATABASE_DSN", cfg.Database.DSN)
	cfg.DataAPI.BearerToken = secrets.GetOptional("DATA_API_BEARER_TOKEN", cfg.DataAPI.BearerToken)
	cfg.DataAPI.APIKey = secrets.GetOptional("DATA_API_API_KEY", cfg.DataAPI.APIKey)
	cfg.Alerts.WebhookURL = secrets.GetOptional("ALERT_WEBHOOK_URL", cfg.Alerts.WebhookURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks configuration for errors
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverPostgres, DriverMySQL:
	default:
		return fmt.Errorf("invalid DB_DRIVER: %s (must be postgres or mysql)", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("DATABASE_DSN is required")
	}

	switch AuthMode(c.DataAPI.AuthMode) {
	case AuthModeNone:
	case AuthModeBearer:
		if c.DataAPI.BearerToken == "" {
			return fmt.Errorf("DATA_API_BEARER_TOKEN is required when DATA_API_AUTH_MODE is bearer")
		}
	case AuthModeAPIKey:
		if c.DataAPI.APIKey == "" {
			return fmt.Errorf("DATA_API_API_KEY is required when DATA_API_AUTH_MODE is api_key")
		}
	default:
		return fmt.Errorf("invalid DATA_API_AUTH_MODE: %s (must be none, bearer, or api_key)", c.DataAPI.AuthMode)
	}

	switch c.Ingest.Mode {
	case IngestModePoll, IngestModeStream:
	default:
		return fmt.Errorf("invalid INGEST_MODE: %s (must be poll or stream)", c.Ingest.Mode)
	}
	if c.Ingest.Interval <= 0 {
		return fmt.Errorf("INGEST_INTERVAL must be positive")
	}
	if c.Ingest.MinTradeUSD < 0 {
		return fmt.Errorf("INGEST_MIN_TRADE_USD must not be negative")
	}
	if c.Valuation.Interval <= 0 || c.Resolution.Interval <= 0 {
		return fmt.Errorf("worker intervals must be positive")
	}
	if c.Resolution.MarketBatch <= 0 {
		return fmt.Errorf("RESOLUTION_MARKET_BATCH must be positive")
	}

	if c.Scoring.ZThreshold <= 0 {
		return fmt.Errorf("SCORE_Z_THRESHOLD must be positive")
	}
	if c.Scoring.RetroConvictionPrice <= 0 || c.Scoring.RetroConvictionPrice >= 1 {
		return fmt.Errorf("SCORE_RETRO_CONVICTION_PRICE must be in (0,1)")
	}
	if c.Scoring.LongshotPrice <= 0 || c.Scoring.LongshotPrice >= 1 {
		return fmt.Errorf("SCORE_LONGSHOT_PRICE must be in (0,1)")
	}
	if c.Scoring.WinRateCeil <= c.Scoring.WinRateBase {
		return fmt.Errorf("SCORE_WIN_RATE_CEIL must exceed SCORE_WIN_RATE_BASE")
	}

	for _, mode := range splitModes(c.Alerts.Mode) {
		switch mode {
		case "log", "webhook", "kafka":
		default:
			return fmt.Errorf("invalid ALERT_MODE value: %s (valid values: log, webhook, kafka)", mode)
		}
	}
	if c.alertModeEnabled("webhook") && c.Alerts.WebhookURL == "" {
		return fmt.Errorf("ALERT_WEBHOOK_URL is required when webhook is in ALERT_MODE")
	}
	if c.alertModeEnabled("kafka") && len(c.Alerts.KafkaBrokers) == 0 {
		return fmt.Errorf("ALERT_KAFKA_BROKERS is required when kafka is in ALERT_MODE")
	}

	return nil
}

// AlertModes returns the configured alert sink names
func (c *Config) AlertModes() []string {
	return splitModes(c.Alerts.Mode)
}

func (c *Config) alertModeEnabled(mode string) bool {
	for _, m := range splitModes(c.Alerts.Mode) {
		if m == mode {
			return true
		}
	}
	return false
}

func splitModes(s string) []string {
	var modes []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			modes = append(modes, trimmed)
		}
	}
	return modes
}

// Params maps the scoring configuration onto the engine's parameter set
func (c ScoringConfig) Params() scoring.Params {
	return scoring.Params{
		HistoryLimit:     c.HistoryLimit,
		ZThreshold:       c.ZThreshold,
		FallbackSizeUSD:  c.FallbackSizeUSD,
		RelativeMultiple: c.RelativeMultiple,

		RetroProfitUSD:        c.RetroProfitUSD,
		RetroConvictionPrice:  c.RetroConvictionPrice,
		RetroSizeMultiple:     c.RetroSizeMultiple,
		RetroFlaggedWinRate:   c.RetroFlaggedWinRate,
		RetroFlaggedMinSample: c.RetroFlaggedMinSample,

		MinResolved:   c.MinResolved,
		WinRateBase:   c.WinRateBase,
		WinRateCeil:   c.WinRateCeil,
		ROIFloor:      c.ROIFloor,
		ROICeil:       c.ROICeil,
		UnrealROICeil: c.UnrealROICeil,
		UnrealWinBase: c.UnrealWinBase,

		LongshotPrice:     c.LongshotPrice,
		LongshotMinSample: c.LongshotMinSample,
		LongshotWinBase:   c.LongshotWinBase,
		LongshotWinCeil:   c.LongshotWinCeil,

		LargeBetMultiple:  c.LargeBetMultiple,
		LargeBetMinSample: c.LargeBetMinSample,
		LargeBetWinBase:   c.LargeBetWinBase,
		LargeBetWinCeil:   c.LargeBetWinCeil,

		ConcentrationMinTrades: c.ConcentrationMinTrades,
		ConcentrationHHIBase:   c.ConcentrationHHIBase,

		NewWalletDays:      c.NewWalletDays,
		NewWalletMinTrades: c.NewWalletMinTrades,
	}
}
