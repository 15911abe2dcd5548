package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"stockwatch/pkg/errors"
)

type Config struct {
	App           AppConfig
	HTTP          HTTPConfig
	Postgres      PostgresConfig
	ClickHouse    ClickHouseConfig
	Redis         RedisConfig
	Store         StoreConfig
	Kafka         KafkaConfig
	Influx        InfluxConfig
	Telegram      TelegramConfig
	AI            AIConfig
	MarketData    MarketDataConfig
	News          NewsConfig
	Tracing       TracingConfig
	ErrorTracking ErrorTrackingConfig
	Alerts        AlertConfig
	Analysis      AnalysisConfig
	Workers       WorkerConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"stockwatch"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

// HTTPConfig is the ops server (health and metrics), not a user-facing API
type HTTPConfig struct {
	Port int `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"stockwatch"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"stockwatch"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// ClickHouseConfig holds the OHLCV/news history store. Empty host disables it.
type ClickHouseConfig struct {
	Host     string `envconfig:"CLICKHOUSE_HOST"`
	Port     int    `envconfig:"CLICKHOUSE_PORT" default:"9000"`
	User     string `envconfig:"CLICKHOUSE_USER" default:"default"`
	Password string `envconfig:"CLICKHOUSE_PASSWORD"`
	Database string `envconfig:"CLICKHOUSE_DB" default:"stockwatch"`
}

func (c ClickHouseConfig) Enabled() bool { return c.Host != "" }

type RedisConfig struct {
	Host      string `envconfig:"REDIS_HOST" default:"localhost"`
	Port      int    `envconfig:"REDIS_PORT" default:"6379"`
	Password  string `envconfig:"REDIS_PASSWORD"`
	DB        int    `envconfig:"REDIS_DB" default:"0"`
	KeyPrefix string `envconfig:"REDIS_KEY_PREFIX" default:"stockwatch:"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Store backends for the keyed TTL store
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreBadger = "badger"
)

type StoreConfig struct {
	Backend    string        `envconfig:"STORE_BACKEND" default:"memory"`
	BadgerPath string        `envconfig:"STORE_BADGER_PATH" default:"./data/badger"`
	CacheTTL   time.Duration `envconfig:"STORE_PIPELINE_CACHE_TTL" default:"15m"`
}

// KafkaConfig configures alert event publishing. No brokers disables it.
type KafkaConfig struct {
	Brokers     []string `envconfig:"KAFKA_BROKERS"`
	Async       bool     `envconfig:"KAFKA_ASYNC" default:"false"`
	TopicPrefix string   `envconfig:"KAFKA_TOPIC_PREFIX" default:""`
}

func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// InfluxConfig configures the optional price-series sink
type InfluxConfig struct {
	URL    string `envconfig:"INFLUX_URL"`
	Token  string `envconfig:"INFLUX_TOKEN"`
	Org    string `envconfig:"INFLUX_ORG" default:"stockwatch"`
	Bucket string `envconfig:"INFLUX_BUCKET" default:"prices"`
}

func (c InfluxConfig) Enabled() bool { return c.URL != "" }

type TelegramConfig struct {
	BotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	// ChatID receives every alert notification
	ChatID int64 `envconfig:"TELEGRAM_CHAT_ID"`
}

func (c TelegramConfig) Enabled() bool { return c.BotToken != "" }

// AI narrative providers
const (
	AIProviderNone   = "none"
	AIProviderOpenAI = "openai"
	AIProviderGemini = "gemini"
)

type AIConfig struct {
	Provider    string        `envconfig:"AI_PROVIDER" default:"none"`
	OpenAIKey   string        `envconfig:"OPENAI_API_KEY"`
	OpenAIModel string        `envconfig:"OPENAI_MODEL" default:"gpt-4o-mini"`
	GeminiKey   string        `envconfig:"GEMINI_API_KEY"`
	GeminiModel string        `envconfig:"GEMINI_MODEL" default:"gemini-2.0-flash"`
	Timeout     time.Duration `envconfig:"AI_TIMEOUT" default:"30s"`
	MaxTokens   int64         `envconfig:"AI_MAX_TOKENS" default:"400"`
}

type MarketDataConfig struct {
	BaseURL      string        `envconfig:"MARKETDATA_BASE_URL" default:"https://query1.finance.yahoo.com"`
	Timeout      time.Duration `envconfig:"MARKETDATA_TIMEOUT" default:"10s"`
	MaxRetries   int           `envconfig:"MARKETDATA_MAX_RETRIES" default:"3"`
	RetryDelay   time.Duration `envconfig:"MARKETDATA_RETRY_DELAY" default:"200ms"`
	RequestsPM   int           `envconfig:"MARKETDATA_REQUESTS_PER_MINUTE" default:"120"`
	HistoryDays  int           `envconfig:"MARKETDATA_HISTORY_DAYS" default:"60"`
	MaxStaleness time.Duration `envconfig:"MARKETDATA_MAX_STALENESS" default:"1h"`
	InfluxSink   bool          `envconfig:"MARKETDATA_INFLUX_SINK" default:"false"`
}

type NewsConfig struct {
	APIKey     string        `envconfig:"NEWSAPI_KEY"`
	BaseURL    string        `envconfig:"NEWSAPI_BASE_URL" default:"https://newsapi.org"`
	Limit      int           `envconfig:"NEWS_LIMIT" default:"10"`
	Timeout    time.Duration `envconfig:"NEWS_TIMEOUT" default:"10s"`
	ScrapeURL  string        `envconfig:"NEWS_SCRAPE_URL" default:"https://finance.yahoo.com/quote/%s/news"`
	ScrapeWith bool          `envconfig:"NEWS_SCRAPE_FALLBACK" default:"true"`
}

type TracingConfig struct {
	Enabled bool `envconfig:"TRACING_ENABLED" default:"false"`
	Pretty  bool `envconfig:"TRACING_PRETTY" default:"false"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// AlertConfig holds the cumulative trigger defaults
type AlertConfig struct {
	RequiredTriggers int           `envconfig:"ALERT_REQUIRED_TRIGGERS" default:"3"`
	DefaultThreshold float64       `envconfig:"ALERT_DEFAULT_THRESHOLD" default:"-5"`
	ExpireAfter      time.Duration `envconfig:"ALERT_EXPIRE_AFTER" default:"168h"`
	SmartWindowDays  int           `envconfig:"ALERT_SMART_WINDOW_DAYS" default:"7"`
	SweepLockTTL     time.Duration `envconfig:"ALERT_SWEEP_LOCK_TTL" default:"5m"`
}

// MACD signal line modes
const (
	MACDSignalApprox = "approx"
	MACDSignalEMA    = "ema"
)

type AnalysisConfig struct {
	MACDSignal string `envconfig:"ANALYSIS_MACD_SIGNAL" default:"approx"`
}

// WorkerConfig contains intervals for the periodic jobs
type WorkerConfig struct {
	AlertSweepInterval   time.Duration `envconfig:"WORKER_ALERT_SWEEP_INTERVAL" default:"1m"`
	SmartSweepInterval   time.Duration `envconfig:"WORKER_SMART_SWEEP_INTERVAL" default:"15m"`
	NotifyInterval       time.Duration `envconfig:"WORKER_NOTIFY_INTERVAL" default:"10m"`
	ExpiryInterval       time.Duration `envconfig:"WORKER_EXPIRY_INTERVAL" default:"24h"`
	RefreshInterval      time.Duration `envconfig:"WORKER_REFRESH_INTERVAL" default:"1h"`
	RefreshEnabled       bool          `envconfig:"WORKER_REFRESH_ENABLED" default:"true"`
	RefreshMaxConcurrent int           `envconfig:"WORKER_REFRESH_MAX_CONCURRENCY" default:"4"`
}

// Validate rejects combinations envconfig cannot express
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreMemory, StoreRedis, StoreBadger:
	default:
		return errors.NewValidationError("STORE_BACKEND", "must be memory, redis or badger", c.Store.Backend)
	}
	switch c.AI.Provider {
	case AIProviderNone:
	case AIProviderOpenAI:
		if c.AI.OpenAIKey == "" {
			return errors.NewValidationError("OPENAI_API_KEY", "required when AI_PROVIDER=openai", "")
		}
	case AIProviderGemini:
		if c.AI.GeminiKey == "" {
			return errors.NewValidationError("GEMINI_API_KEY", "required when AI_PROVIDER=gemini", "")
		}
	default:
		return errors.NewValidationError("AI_PROVIDER", "must be none, openai or gemini", c.AI.Provider)
	}
	if c.Analysis.MACDSignal != MACDSignalApprox && c.Analysis.MACDSignal != MACDSignalEMA {
		return errors.NewValidationError("ANALYSIS_MACD_SIGNAL", "must be approx or ema", c.Analysis.MACDSignal)
	}
	if c.Alerts.RequiredTriggers < 1 {
		return errors.NewValidationError("ALERT_REQUIRED_TRIGGERS", "must be at least 1", c.Alerts.RequiredTriggers)
	}
	return nil
}

// Load reads configuration from environment variables, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}
