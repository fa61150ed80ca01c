package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DevelopmentDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE", "memory")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreMemory, cfg.Store)
	assert.Equal(t, int64(1000), cfg.Escrow.FeeBps)
	assert.Equal(t, 2, cfg.Escrow.CurrencyDecimals)
	assert.Equal(t, devJWTSecret, cfg.JWTSecret)
	assert.NotEmpty(t, cfg.AllowedOrigins)
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, "escrow.order-events", cfg.Kafka.Topic)
}

func TestLoad_ProductionRequirements(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("STORE", "postgres")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://escrow.example.com")
	t.Setenv("GATEWAY_URL", "https://pay.example.com")

	_, err := Load()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.IsProduction())
	assert.Equal(t, []string{"https://escrow.example.com"}, cfg.AllowedOrigins)

	t.Setenv("STORE", "memory")
	_, err = Load()
	assert.Error(t, err)
}

func TestLoad_FeeRange(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE", "memory")
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ESCROW_FEE_BPS", "12000")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := []byte(`env: development
store: memory
escrow:
  fee_bps: 1500
  currency_decimals: 3
kafka:
  brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
	require.NoError(t, os.WriteFile(path, yaml, 0o600))
	t.Setenv("CONFIG_PATH", path)
	t.Setenv("APP_ENV", "development")
	t.Setenv("STORE", "memory")
	t.Setenv("CURRENCY_DECIMALS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, int64(1500), cfg.Escrow.FeeBps)
	assert.Equal(t, 2, cfg.Escrow.CurrencyDecimals)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
}
