package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_SIGNING_SECRET", "signing-secret")
}

func TestLoadConfig_Defaults(t *testing.T) {
	setRequired(t)
	t.Setenv("STRIPE_API_KEY", "sk_test_123")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, BackendStripe, cfg.BackendMode)
	assert.Equal(t, "usd", cfg.PaymentCurrency)
	assert.Equal(t, 10*time.Second, cfg.PaymentServiceTimeout)
	assert.Equal(t, 256, cfg.RecordCacheSize)
	assert.Equal(t, 5*time.Minute, cfg.RecordCacheTTL)
	assert.Equal(t, "data/opportunities.db", cfg.DatabasePath)
	assert.True(t, cfg.AddSource())
}

func TestLoadConfig_MissingSlackToken(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("SLACK_SIGNING_SECRET", "signing-secret")
	t.Setenv("STRIPE_API_KEY", "sk_test_123")

	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestLoadConfig_HTTPModeNormalized(t *testing.T) {
	setRequired(t)
	t.Setenv("BACKEND_MODE", " HTTP ")
	t.Setenv("PAYMENT_SERVICE_URL", "http://payments.internal")
	t.Setenv("PAYMENT_SERVICE_TIMEOUT", "3s")
	t.Setenv("PAYMENT_CURRENCY", "EUR")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, BackendHTTP, cfg.BackendMode)
	assert.Equal(t, "eur", cfg.PaymentCurrency)
	assert.Equal(t, 3*time.Second, cfg.PaymentServiceTimeout)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			BackendMode:           BackendStripe,
			StripeAPIKey:          "sk_test_123",
			RecordCacheSize:       10,
			PaymentServiceTimeout: time.Second,
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid stripe", func(c *Config) {}, ""},
		{"stripe without key", func(c *Config) { c.StripeAPIKey = "" }, "STRIPE_API_KEY"},
		{"http without url", func(c *Config) { c.BackendMode = BackendHTTP }, "PAYMENT_SERVICE_URL"},
		{"unknown mode", func(c *Config) { c.BackendMode = "paypal" }, "invalid BACKEND_MODE"},
		{"zero cache size", func(c *Config) { c.RecordCacheSize = 0 }, "RECORD_CACHE_SIZE"},
		{"zero timeout", func(c *Config) { c.PaymentServiceTimeout = 0 }, "PAYMENT_SERVICE_TIMEOUT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadStorageConfig_IgnoresSlackSettings(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("DATABASE_PATH", "/tmp/panel.db")

	cfg, err := LoadStorageConfig()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/panel.db", cfg.DatabasePath)
}
