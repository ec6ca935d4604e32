package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Collector CollectorConfig `mapstructure:"collector"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Currency  CurrencyConfig  `mapstructure:"currency"`
	Analysis  AnalysisConfig  `mapstructure:"analysis"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port" validate:"min=1,max=65535"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	DSN string `mapstructure:"dsn" validate:"required"`
}

// RedisConfig holds cache configuration
type RedisConfig struct {
	Addr     string `mapstructure:"addr" validate:"required"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// ProvidersConfig holds the upstream catalog provider configuration
type ProvidersConfig struct {
	BaseURL   string            `mapstructure:"base_url" validate:"required,url"`
	Endpoints map[string]string `mapstructure:"endpoints"`
}

// CollectorConfig holds collection loop configuration
type CollectorConfig struct {
	Interval   time.Duration `mapstructure:"interval"`
	CacheTTL   time.Duration `mapstructure:"cache_ttl"`
	Timeout    time.Duration `mapstructure:"timeout"`
	MaxRetries int           `mapstructure:"max_retries" validate:"min=0"`
}

// BreakerConfig holds circuit breaker thresholds
type BreakerConfig struct {
	FailureThreshold int           `mapstructure:"failure_threshold" validate:"min=1"`
	SuccessThreshold int           `mapstructure:"success_threshold" validate:"min=1"`
	Timeout          time.Duration `mapstructure:"timeout"`
	HalfOpenMaxCalls int           `mapstructure:"half_open_max_calls" validate:"min=1"`
}

// CurrencyConfig holds exchange rate configuration
type CurrencyConfig struct {
	ExchangeRateURL string        `mapstructure:"exchange_rate_url" validate:"required,url"`
	RatesTTL        time.Duration `mapstructure:"rates_ttl"`
}

// AnalysisConfig holds analysis pipeline tuning
type AnalysisConfig struct {
	HistoryLimit       int     `mapstructure:"history_limit" validate:"min=1"`
	TrendingLimit      int     `mapstructure:"trending_limit" validate:"min=1"`
	ArbitrageThreshold float64 `mapstructure:"arbitrage_threshold"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // "json" or "text"
}

// LoadFromEnv loads configuration primarily from environment variables,
// with an optional .env file.
func LoadFromEnv() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	// Read from .env file if it exists
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // Ignore error if .env doesn't exist

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Cache defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Provider defaults
	v.SetDefault("providers.base_url", "http://localhost:8001")
	v.SetDefault("providers.endpoints", map[string]string{
		"sport-direct": "/api/v1/providers/sport-direct/products",
		"outdoor-pro":  "/api/v1/providers/outdoor-pro/products",
		"dag-spor":     "/api/v1/providers/dag-spor/products",
		"alpine-gear":  "/api/v1/providers/alpine-gear/products",
	})

	// Collector defaults
	v.SetDefault("collector.interval", 30*time.Second)
	v.SetDefault("collector.cache_ttl", 5*time.Minute)
	v.SetDefault("collector.timeout", 30*time.Second)
	v.SetDefault("collector.max_retries", 3)

	// Circuit breaker defaults
	v.SetDefault("breaker.failure_threshold", 5)
	v.SetDefault("breaker.success_threshold", 2)
	v.SetDefault("breaker.timeout", 60*time.Second)
	v.SetDefault("breaker.half_open_max_calls", 3)

	// Currency defaults
	v.SetDefault("currency.exchange_rate_url", "https://api.exchangerate-api.com/v4/latest/EUR")
	v.SetDefault("currency.rates_ttl", 5*time.Minute)

	// Analysis defaults
	v.SetDefault("analysis.history_limit", 10)
	v.SetDefault("analysis.trending_limit", 5)
	v.SetDefault("analysis.arbitrage_threshold", 10.0)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

func bindEnvVars(v *viper.Viper) {
	// Helper to bind and log errors (BindEnv errors are non-fatal but should be logged)
	bindEnv := func(key string, envVar string) {
		if err := v.BindEnv(key, envVar); err != nil {
			slog.Warn("failed to bind environment variable",
				slog.String("key", key),
				slog.String("env_var", envVar),
				slog.String("error", err.Error()))
		}
	}

	bindEnv("database.dsn", "DATABASE_DSN")
	bindEnv("redis.addr", "REDIS_ADDR")
	bindEnv("redis.password", "REDIS_PASSWORD")

	bindEnv("providers.base_url", "PROVIDER_BASE_URL")
	bindEnv("currency.exchange_rate_url", "EXCHANGE_RATE_URL")

	bindEnv("server.host", "SERVER_HOST")
	bindEnv("server.port", "SERVER_PORT")

	bindEnv("collector.interval", "COLLECTOR_INTERVAL")
	bindEnv("collector.cache_ttl", "COLLECTOR_CACHE_TTL")
	bindEnv("collector.timeout", "COLLECTOR_TIMEOUT")
	bindEnv("collector.max_retries", "COLLECTOR_MAX_RETRIES")

	bindEnv("logging.level", "LOG_LEVEL")
	bindEnv("logging.format", "LOG_FORMAT")
}

// Validate checks if the configuration is valid. Missing required settings
// are fatal at bootstrap.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if len(c.Providers.Endpoints) == 0 {
		return fmt.Errorf("at least one provider endpoint must be configured")
	}

	if c.Collector.Interval < time.Second {
		return fmt.Errorf("collector interval %s is below the 1s floor", c.Collector.Interval)
	}

	return nil
}
