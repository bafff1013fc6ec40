// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Venues    VenuesConfig    `mapstructure:"venues"`
	Engine    EngineConfig    `mapstructure:"engine"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// VenuesConfig holds per-venue connectivity settings.
type VenuesConfig struct {
	Enabled  []string       `mapstructure:"enabled"` // venue iteration order is config order
	Timeout  time.Duration  `mapstructure:"timeout"` // independent per-venue fetch timeout
	Binance  BinanceConfig  `mapstructure:"binance"`
	Kraken   KrakenConfig   `mapstructure:"kraken"`
	Ethereum EthereumConfig `mapstructure:"ethereum"`
}

// HasOnChain reports whether an on-chain venue is in the enabled set.
func (v *VenuesConfig) HasOnChain() bool {
	for _, name := range v.Enabled {
		if name == "uniswap" {
			return true
		}
	}
	return false
}

// BinanceConfig holds Binance API configuration.
type BinanceConfig struct {
	APIKey            string        `mapstructure:"api_key"`
	APISecret         string        `mapstructure:"api_secret"`
	WebSocketURL      string        `mapstructure:"websocket_url"` // wss://stream.binance.com:9443
	StreamEnabled     bool          `mapstructure:"stream_enabled"`
	StaleTimeout      time.Duration `mapstructure:"stale_timeout"`
	RequestsPerMinute int           `mapstructure:"requests_per_minute"`
}

// HasCredentials reports whether API credentials are configured.
func (c *BinanceConfig) HasCredentials() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// KrakenConfig holds Kraken API configuration.
type KrakenConfig struct {
	APIKey            string `mapstructure:"api_key"`
	APISecret         string `mapstructure:"api_secret"`
	BaseURL           string `mapstructure:"base_url"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute"`
}

// HasCredentials reports whether API credentials are configured.
func (c *KrakenConfig) HasCredentials() bool {
	return c.APIKey != "" && c.APISecret != ""
}

// EthereumConfig holds the node and Uniswap contract settings for the
// read-only on-chain venue.
type EthereumConfig struct {
	HTTPURL        string `mapstructure:"http_url"`
	QuoterAddress  string `mapstructure:"quoter_address"`
	DefaultFeeTier int    `mapstructure:"default_fee_tier"`
}

// EngineConfig holds arbitrage engine configuration.
type EngineConfig struct {
	Pair               string        `mapstructure:"pair"`                 // e.g. "BTC/USDT"
	BuyVenue           string        `mapstructure:"buy_venue"`            // empty = discovery across all venues
	SellVenue          string        `mapstructure:"sell_venue"`           // empty = discovery across all venues
	Investment         float64       `mapstructure:"investment"`           // quote-currency units
	ProfitThresholdPct float64       `mapstructure:"profit_threshold_pct"` // minimum scaled profit percent
	SlippageRate       float64       `mapstructure:"slippage_rate"`        // fraction of gross profit
	DefaultTakerFee    float64       `mapstructure:"default_taker_fee"`    // conservative fallback fraction
	DefaultWithdrawFee float64       `mapstructure:"default_withdraw_fee"` // base-asset units
	PollInterval       time.Duration `mapstructure:"poll_interval"`
	Simulate           bool          `mapstructure:"simulate"`
	Continuous         bool          `mapstructure:"continuous"` // Settled resumes Monitoring instead of Idle
	TUIMode            bool          `mapstructure:"-"`          // Set at runtime, not from config file
}

// InvestmentDecimal returns the investment as decimal.Decimal.
func (c *EngineConfig) InvestmentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.Investment)
}

// ProfitThresholdDecimal returns the profit threshold percent as decimal.Decimal.
func (c *EngineConfig) ProfitThresholdDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.ProfitThresholdPct)
}

// SlippageRateDecimal returns the slippage rate as decimal.Decimal.
func (c *EngineConfig) SlippageRateDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.SlippageRate)
}

// DefaultTakerFeeDecimal returns the fallback taker fee as decimal.Decimal.
func (c *EngineConfig) DefaultTakerFeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultTakerFee)
}

// DefaultWithdrawFeeDecimal returns the fallback withdrawal fee as decimal.Decimal.
func (c *EngineConfig) DefaultWithdrawFeeDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.DefaultWithdrawFee)
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
	HealthPort     int    `mapstructure:"health_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("CROSSARB")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "CROSSARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "CROSSARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "CROSSARB_LOG_LEVEL", "LOG_LEVEL")

	// Venues
	v.BindEnv("venues.enabled", "CROSSARB_VENUES")
	v.BindEnv("venues.binance.api_key", "CROSSARB_BINANCE_API_KEY", "BINANCE_API_KEY")
	v.BindEnv("venues.binance.api_secret", "CROSSARB_BINANCE_API_SECRET", "BINANCE_API_SECRET")
	v.BindEnv("venues.kraken.api_key", "CROSSARB_KRAKEN_API_KEY", "KRAKEN_API_KEY")
	v.BindEnv("venues.kraken.api_secret", "CROSSARB_KRAKEN_API_SECRET", "KRAKEN_API_SECRET")
	v.BindEnv("venues.ethereum.http_url", "CROSSARB_ETH_HTTP_URL", "ETH_HTTP_URL")

	// Engine
	v.BindEnv("engine.pair", "CROSSARB_PAIR")
	v.BindEnv("engine.investment", "CROSSARB_INVESTMENT")
	v.BindEnv("engine.profit_threshold_pct", "CROSSARB_PROFIT_THRESHOLD_PCT")
	v.BindEnv("engine.slippage_rate", "CROSSARB_SLIPPAGE_RATE")
	v.BindEnv("engine.simulate", "CROSSARB_SIMULATE")

	// Telemetry
	v.BindEnv("telemetry.enabled", "CROSSARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "CROSSARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "CROSSARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "crossarb")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Venue defaults
	v.SetDefault("venues.enabled", []string{"binance", "kraken"})
	v.SetDefault("venues.timeout", "4s")
	v.SetDefault("venues.binance.websocket_url", "wss://stream.binance.com:9443")
	v.SetDefault("venues.binance.stream_enabled", false)
	v.SetDefault("venues.binance.stale_timeout", "5s")
	v.SetDefault("venues.binance.requests_per_minute", 1200)
	v.SetDefault("venues.kraken.base_url", "https://api.kraken.com")
	v.SetDefault("venues.kraken.requests_per_minute", 60)
	v.SetDefault("venues.ethereum.quoter_address", "0x61fFE014bA17989E743c5F6cB21bF9697530B21e")
	v.SetDefault("venues.ethereum.default_fee_tier", 3000) // 0.3%

	// Engine defaults
	v.SetDefault("engine.pair", "BTC/USDT")
	v.SetDefault("engine.investment", 1000)
	v.SetDefault("engine.profit_threshold_pct", 0.1)
	v.SetDefault("engine.slippage_rate", 0.005)
	v.SetDefault("engine.default_taker_fee", 0.001)
	v.SetDefault("engine.default_withdraw_fee", 0.0005)
	v.SetDefault("engine.poll_interval", "5s")
	v.SetDefault("engine.simulate", true)
	v.SetDefault("engine.continuous", false)

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "crossarb")
	v.SetDefault("telemetry.prometheus_port", 9090)
	v.SetDefault("telemetry.health_port", 8081)
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if len(c.Venues.Enabled) == 0 {
		return fmt.Errorf("venues.enabled cannot be empty")
	}
	if c.Venues.Timeout <= 0 {
		return fmt.Errorf("venues.timeout must be positive")
	}
	if !strings.Contains(c.Engine.Pair, "/") {
		return fmt.Errorf("engine.pair must be BASE/QUOTE, got %q", c.Engine.Pair)
	}
	if c.Engine.Investment <= 0 {
		return fmt.Errorf("engine.investment must be positive")
	}
	if c.Engine.SlippageRate < 0 || c.Engine.SlippageRate >= 1 {
		return fmt.Errorf("engine.slippage_rate must be in [0, 1)")
	}
	if c.Engine.PollInterval <= 0 {
		return fmt.Errorf("engine.poll_interval must be positive")
	}
	if c.Engine.BuyVenue != "" && c.Engine.BuyVenue == c.Engine.SellVenue {
		return fmt.Errorf("engine.buy_venue and engine.sell_venue must differ")
	}
	for _, name := range []string{c.Engine.BuyVenue, c.Engine.SellVenue} {
		if name == "" {
			continue
		}
		if !c.venueEnabled(name) {
			return fmt.Errorf("venue %q is not in venues.enabled", name)
		}
	}
	if c.venueEnabled("uniswap") && c.Venues.Ethereum.HTTPURL == "" {
		return fmt.Errorf("venues.ethereum.http_url is required when uniswap is enabled")
	}
	return nil
}

func (c *Config) venueEnabled(name string) bool {
	for _, v := range c.Venues.Enabled {
		if v == name {
			return true
		}
	}
	return false
}
