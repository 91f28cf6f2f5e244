package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp moves into an empty directory so no .env file is picked up.
func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestNewConfig_Defaults(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverFile, cfg.StoreDriver)
	assert.Equal(t, "wallet.json", cfg.WalletFile)
	assert.Equal(t, "127.0.0.1", cfg.APIHost)
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, 60*time.Second, cfg.UnbondInterval)
	assert.Equal(t, 60*time.Second, cfg.JailInterval)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, 10.0, cfg.RESTRequestsPerS)
	assert.True(t, cfg.SkipZeroBalance)
	assert.False(t, cfg.KafkaEnabled())
}

func TestNewConfig_Overrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TELEGRAM_DISABLED", "true")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_URL", "postgres://localhost/huginn")
	t.Setenv("KAFKA_BROKER", "localhost:9092")
	t.Setenv("KAFKA_TOPIC", "huginn-notifications")
	t.Setenv("UNBOND_INTERVAL", "15s")
	t.Setenv("JAIL_INTERVAL", "5m")
	t.Setenv("SKIP_ZERO_BALANCE", "false")
	t.Setenv("API_PORT", "not-a-number")
	t.Setenv("API_HOST", "0.0.0.0")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 15*time.Second, cfg.UnbondInterval)
	assert.Equal(t, 5*time.Minute, cfg.JailInterval)
	assert.False(t, cfg.SkipZeroBalance)
	assert.True(t, cfg.KafkaEnabled())
	assert.Equal(t, 8080, cfg.APIPort)
	assert.Equal(t, "0.0.0.0", cfg.APIHost)
}

func TestNewConfig_Validation(t *testing.T) {
	chdirTemp(t)
	t.Setenv("TELEGRAM_DISABLED", "")
	t.Setenv("DB_URL", "")

	t.Setenv("TELEGRAM_TOKEN", "")
	_, err := NewConfig()
	assert.ErrorContains(t, err, "TELEGRAM_TOKEN")

	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("STORE_DRIVER", "postgres")
	_, err = NewConfig()
	assert.ErrorContains(t, err, "DB_URL")

	t.Setenv("STORE_DRIVER", "redis")
	_, err = NewConfig()
	assert.ErrorContains(t, err, "STORE_DRIVER")
}
