package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend modes
const (
	BackendStripe = "stripe"
	BackendHTTP   = "http"
)

// Config holds application configuration
type Config struct {
	SlackBotToken      string `env:"SLACK_BOT_TOKEN,required,notEmpty"`
	SlackSigningSecret string `env:"SLACK_SIGNING_SECRET,required,notEmpty"`
	Port               string `env:"PORT" envDefault:"8080"`

	BackendMode           string        `env:"BACKEND_MODE" envDefault:"stripe"`
	StripeAPIKey          string        `env:"STRIPE_API_KEY"`
	StripeWebhookSecret   string        `env:"STRIPE_WEBHOOK_SECRET"`
	PaymentCurrency       string        `env:"PAYMENT_CURRENCY" envDefault:"usd"`
	PaymentServiceURL     string        `env:"PAYMENT_SERVICE_URL"`
	PaymentServiceTimeout time.Duration `env:"PAYMENT_SERVICE_TIMEOUT" envDefault:"10s"`

	StorageConfig
	RecordCacheSize int           `env:"RECORD_CACHE_SIZE" envDefault:"256"`
	RecordCacheTTL  time.Duration `env:"RECORD_CACHE_TTL" envDefault:"5m"`

	LogLevel       string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat      string `env:"LOG_FORMAT" envDefault:"text"`
	Environment    string `env:"ENVIRONMENT" envDefault:"dev"`
	ServiceVersion string `env:"SERVICE_VERSION" envDefault:"dev"`
}

// StorageConfig locates the opportunity database. It is loaded on its own by
// commands that never talk to Slack.
type StorageConfig struct {
	DatabasePath string `env:"DATABASE_PATH" envDefault:"data/opportunities.db"`
}

// LoadStorageConfig loads only the storage settings
func LoadStorageConfig() (*StorageConfig, error) {
	_ = godotenv.Load()

	cfg := &StorageConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// LoadConfig loads the configuration from a .env file (when present) and the environment
func LoadConfig() (*Config, error) {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg.BackendMode = strings.ToLower(strings.TrimSpace(cfg.BackendMode))
	cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(cfg.PaymentCurrency))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values whose requirements depend on the selected backend
func (c *Config) Validate() error {
	switch c.BackendMode {
	case BackendStripe:
		if c.StripeAPIKey == "" {
			return fmt.Errorf("STRIPE_API_KEY environment variable must be set when BACKEND_MODE=%s", BackendStripe)
		}
	case BackendHTTP:
		if c.PaymentServiceURL == "" {
			return fmt.Errorf("PAYMENT_SERVICE_URL environment variable must be set when BACKEND_MODE=%s", BackendHTTP)
		}
	default:
		return fmt.Errorf("invalid BACKEND_MODE %q: must be %q or %q", c.BackendMode, BackendStripe, BackendHTTP)
	}

	if c.RecordCacheSize <= 0 {
		return fmt.Errorf("RECORD_CACHE_SIZE must be positive, got %d", c.RecordCacheSize)
	}
	if c.PaymentServiceTimeout <= 0 {
		return fmt.Errorf("PAYMENT_SERVICE_TIMEOUT must be positive, got %s", c.PaymentServiceTimeout)
	}
	return nil
}

// AddSource reports whether log records should carry source locations
func (c *Config) AddSource() bool {
	return c.Environment == "dev" || c.Environment == "development"
}
