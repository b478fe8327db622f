package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Database  DatabaseConfig          `yaml:"database"`
	Log       LogConfig               `yaml:"log"`
	Trading   TradingConfig           `yaml:"trading"`
	Risk      RiskConfig              `yaml:"risk"`
	Brokers   BrokersConfig           `yaml:"brokers"`
	Signals   map[string]SignalConfig `yaml:"signals"`
	Endpoints []EndpointConfig        `yaml:"endpoints"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Host string `yaml:"host"`
	Port string `yaml:"port"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or postgres
	DSN      string `yaml:"dsn"`
	LogLevel string `yaml:"log_level"` // silent, error, warn, info
}

// LogConfig controls the application logger
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// TradingConfig holds the process-wide trading defaults
type TradingConfig struct {
	DefaultMode   string `yaml:"default_mode"` // paper or live
	DefaultBroker string `yaml:"default_broker"`
}

// RiskConfig holds the limits every execution is checked against
type RiskConfig struct {
	MaxDailyLoss       float64  `yaml:"max_daily_loss"`
	MaxPositionSize    float64  `yaml:"max_position_size"`
	MaxOrdersPerMinute int      `yaml:"max_orders_per_minute"`
	AllowedSymbols     []string `yaml:"allowed_symbols"`
	BlockedSymbols     []string `yaml:"blocked_symbols"`
	EnforceMarketHours bool     `yaml:"enforce_market_hours"`
	Timezone           string   `yaml:"timezone"`
}

// BrokersConfig controls how broker adapters are reached
type BrokersConfig struct {
	RequestTimeout time.Duration     `yaml:"request_timeout"`
	BaseURLs       map[string]string `yaml:"base_urls"`
	BinanceTestnet bool              `yaml:"binance_testnet"`
}

// SignalConfig represents per-source webhook settings
type SignalConfig struct {
	Enabled       bool   `yaml:"enabled"`
	WebhookSecret string `yaml:"webhook_secret"`
}

// EndpointConfig represents a downstream notification endpoint
type EndpointConfig struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"` // telegram, wechat, dingtalk, webhook
	URL      string `yaml:"url"`
	Token    string `yaml:"token,omitempty"`
	ChatID   string `yaml:"chat_id,omitempty"`
	IsActive bool   `yaml:"is_active"`
}

// envOverrides are read from RELAY_* variables and win over the file
type envOverrides struct {
	DatabaseDSN          string        `envconfig:"DATABASE_DSN"`
	TradingMode          string        `envconfig:"TRADING_MODE"`
	LogLevel             string        `envconfig:"LOG_LEVEL"`
	ChartinkSecret       string        `envconfig:"CHARTINK_WEBHOOK_SECRET"`
	TradingViewSecret    string        `envconfig:"TRADINGVIEW_WEBHOOK_SECRET"`
	BrokerRequestTimeout time.Duration `envconfig:"BROKER_REQUEST_TIMEOUT"`
}

// Default returns the configuration used when no file is present
func Default() *Config {
	return &Config{
		Server:   ServerConfig{Host: "0.0.0.0", Port: "8080"},
		Database: DatabaseConfig{Driver: "sqlite", DSN: "trading_platform.db", LogLevel: "warn"},
		Log:      LogConfig{Level: "info", Format: "text"},
		Trading:  TradingConfig{DefaultMode: "paper"},
		Risk: RiskConfig{
			MaxDailyLoss:       10000,
			MaxPositionSize:    50000,
			MaxOrdersPerMinute: 10,
			Timezone:           "Asia/Kolkata",
		},
		Brokers: BrokersConfig{RequestTimeout: 30 * time.Second, BinanceTestnet: true},
		Signals: map[string]SignalConfig{
			"chartink":    {Enabled: true},
			"tradingview": {Enabled: true},
		},
	}
}

// LoadConfig loads configuration from a YAML file on top of Default and then
// applies RELAY_* environment overrides. A missing file is not an error.
func LoadConfig(filename string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(filename)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func (c *Config) applyEnv() error {
	var env envOverrides
	if err := envconfig.Process("relay", &env); err != nil {
		return fmt.Errorf("error processing env config: %w", err)
	}

	if env.DatabaseDSN != "" {
		c.Database.DSN = env.DatabaseDSN
	}
	if env.TradingMode != "" {
		c.Trading.DefaultMode = env.TradingMode
	}
	if env.LogLevel != "" {
		c.Log.Level = env.LogLevel
	}
	if env.BrokerRequestTimeout > 0 {
		c.Brokers.RequestTimeout = env.BrokerRequestTimeout
	}
	if c.Signals == nil {
		c.Signals = make(map[string]SignalConfig)
	}
	if env.ChartinkSecret != "" {
		sc := c.Signals["chartink"]
		sc.WebhookSecret = env.ChartinkSecret
		c.Signals["chartink"] = sc
	}
	if env.TradingViewSecret != "" {
		sc := c.Signals["tradingview"]
		sc.WebhookSecret = env.TradingViewSecret
		c.Signals["tradingview"] = sc
	}
	return nil
}

// Validate checks the values that would otherwise fail at request time
func (c *Config) Validate() error {
	switch c.Trading.DefaultMode {
	case "paper", "live":
	default:
		return fmt.Errorf("invalid trading.default_mode %q: must be paper or live", c.Trading.DefaultMode)
	}

	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid database.driver %q: must be sqlite or postgres", c.Database.Driver)
	}

	if c.Risk.MaxDailyLoss < 0 || c.Risk.MaxPositionSize < 0 {
		return fmt.Errorf("risk limits must not be negative")
	}

	if c.Brokers.RequestTimeout <= 0 {
		return fmt.Errorf("brokers.request_timeout must be positive")
	}

	return nil
}

// SaveConfig saves configuration to a YAML file
func SaveConfig(config *Config, filename string) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
