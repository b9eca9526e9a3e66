package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"minerva/pkg/errors"
)

type Config struct {
	App           AppConfig
	Server        ServerConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	AI            AIConfig
	MarketData    MarketDataConfig
	Search        SearchConfig
	Storage       StorageConfig
	Memory        MemoryConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"minerva"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type ServerConfig struct {
	Port         int           `envconfig:"HTTP_PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"HTTP_READ_TIMEOUT" default:"10s"`
	WriteTimeout time.Duration `envconfig:"HTTP_WRITE_TIMEOUT" default:"920s"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a Redis host was configured. The quote/search cache
// is optional; without it every lookup goes straight to the provider.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type AIConfig struct {
	ClaudeKey       string        `envconfig:"CLAUDE_API_KEY"`
	OpenAIKey       string        `envconfig:"OPENAI_API_KEY"`
	DefaultProvider string        `envconfig:"DEFAULT_AI_PROVIDER" default:"claude"`
	DefaultModel    string        `envconfig:"DEFAULT_AI_MODEL"`
	RequestTimeout  time.Duration `envconfig:"AI_REQUEST_TIMEOUT" default:"900s"`
	ReqPerMinute    float64       `envconfig:"AI_REQ_PER_MINUTE" default:"60"`
}

type MarketDataConfig struct {
	BaseURL      string        `envconfig:"MARKET_DATA_BASE_URL" default:"https://query1.finance.yahoo.com"`
	Timeout      time.Duration `envconfig:"MARKET_DATA_TIMEOUT" default:"15s"`
	HistoryDays  int           `envconfig:"MARKET_DATA_HISTORY_DAYS" default:"90"`
	ReqPerMinute float64       `envconfig:"MARKET_DATA_REQ_PER_MINUTE" default:"120"`
	CacheTTL     time.Duration `envconfig:"MARKET_DATA_CACHE_TTL" default:"30s"`

	MaxSearchResults int `envconfig:"MARKET_DATA_MAX_SEARCH_RESULTS" default:"25"`
}

type SearchConfig struct {
	BaseURL      string        `envconfig:"WEB_SEARCH_BASE_URL" default:"https://html.duckduckgo.com/html/"`
	Timeout      time.Duration `envconfig:"WEB_SEARCH_TIMEOUT" default:"20s"`
	MaxResults   int           `envconfig:"WEB_SEARCH_MAX_RESULTS" default:"25"`
	Region       string        `envconfig:"WEB_SEARCH_REGION" default:"us-en"`
	ReqPerMinute float64       `envconfig:"WEB_SEARCH_REQ_PER_MINUTE" default:"30"`
}

type StorageConfig struct {
	Bucket    string        `envconfig:"S3_BUCKET_NAME"`
	Region    string        `envconfig:"AWS_REGION" default:"us-east-1"`
	URLExpiry time.Duration `envconfig:"REPORT_URL_EXPIRY" default:"6h"`
}

type MemoryConfig struct {
	ScopePrefix   string `envconfig:"MEMORY_SCOPE_PREFIX" default:"FinanceAgentMemory"`
	RetentionDays int    `envconfig:"MEMORY_RETENTION_DAYS" default:"30"`
	RecentTurns   int    `envconfig:"MEMORY_RECENT_TURNS" default:"5"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"true"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
