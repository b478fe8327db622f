package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadConfigFile(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9090"
database:
  driver: postgres
  dsn: host=localhost dbname=relay
trading:
  default_mode: live
  default_broker: zerodha
risk:
  max_daily_loss: 5000
  allowed_symbols: [INFY, TCS]
brokers:
  request_timeout: 5s
  base_urls:
    zerodha: https://sandbox.example.com
signals:
  chartink:
    enabled: true
    webhook_secret: abc
endpoints:
  - name: ops
    type: telegram
    token: t
    chat_id: "1"
    is_active: true
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "live", cfg.Trading.DefaultMode)
	assert.Equal(t, "zerodha", cfg.Trading.DefaultBroker)
	assert.Equal(t, 5000.0, cfg.Risk.MaxDailyLoss)
	assert.Equal(t, 50000.0, cfg.Risk.MaxPositionSize)
	assert.Equal(t, []string{"INFY", "TCS"}, cfg.Risk.AllowedSymbols)
	assert.Equal(t, 5*time.Second, cfg.Brokers.RequestTimeout)
	assert.Equal(t, "https://sandbox.example.com", cfg.Brokers.BaseURLs["zerodha"])
	assert.Equal(t, "abc", cfg.Signals["chartink"].WebhookSecret)
	require.Len(t, cfg.Endpoints, 1)
	assert.Equal(t, "telegram", cfg.Endpoints[0].Type)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("RELAY_DATABASE_DSN", "override.db")
	t.Setenv("RELAY_TRADING_MODE", "live")
	t.Setenv("RELAY_CHARTINK_WEBHOOK_SECRET", "from-env")
	t.Setenv("RELAY_BROKER_REQUEST_TIMEOUT", "2s")

	cfg, err := LoadConfig(writeConfig(t, "trading:\n  default_mode: paper\n"))
	require.NoError(t, err)

	assert.Equal(t, "override.db", cfg.Database.DSN)
	assert.Equal(t, "live", cfg.Trading.DefaultMode)
	assert.Equal(t, "from-env", cfg.Signals["chartink"].WebhookSecret)
	assert.True(t, cfg.Signals["chartink"].Enabled)
	assert.Equal(t, 2*time.Second, cfg.Brokers.RequestTimeout)
}

func TestLoadConfigInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{"bad yaml", "server: [", "failed to parse config file"},
		{"bad mode", "trading:\n  default_mode: backtest\n", "trading.default_mode"},
		{"bad driver", "database:\n  driver: mysql\n", "database.driver"},
		{"negative limit", "risk:\n  max_daily_loss: -1\n", "must not be negative"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadConfig(writeConfig(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestSaveConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "saved.yaml")
	cfg := Default()
	cfg.Trading.DefaultBroker = "upstox"

	require.NoError(t, SaveConfig(cfg, path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "upstox", loaded.Trading.DefaultBroker)
	assert.Equal(t, cfg.Risk.Timezone, loaded.Risk.Timezone)
	assert.Equal(t, cfg.Brokers.RequestTimeout, loaded.Brokers.RequestTimeout)
	assert.Equal(t, cfg.Signals, loaded.Signals)
}
