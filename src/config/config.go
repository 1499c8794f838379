package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/models"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Timeframes the terminal can serve. The first one is the base resolution.
var SupportedTimeframes = []string{"1m", "5m", "1h", "4h", "1d", "1w"}

// -----------------------------------------------------------------------------

// Config wraps models.MConfig and provides business logic methods
type Config struct {
	*models.MConfig
}

// -----------------------------------------------------------------------------

// NewConfig creates a new Config instance from a YAML file, applying .env overrides
func NewConfig(configPath string) (*Config, error) {
	// 1. Read the YAML file content
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	// 2. Optional .env next to the working directory
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	return Parse(data)
}

// -----------------------------------------------------------------------------

// Parse builds a validated Config from YAML bytes and the process environment
func Parse(data []byte) (*Config, error) {
	var modelConfig models.MConfig
	if err := yaml.Unmarshal(data, &modelConfig); err != nil {
		return nil, fmt.Errorf("failed to parse config from YAML: %w", err)
	}

	config := &Config{MConfig: &modelConfig}
	config.applyEnv()
	config.ApplyDefaults()

	if err := config.Validate(); err != nil {
		return nil, helpers.NewConfigurationError("config validation failed: %v", err)
	}

	return config, nil
}

// -----------------------------------------------------------------------------

func (c *Config) applyEnv() {
	if v := os.Getenv("BRIDGE_SYMBOL"); v != "" {
		c.Symbol = v
	}
	if v := os.Getenv("BRIDGE_TERMINAL_URL"); v != "" {
		c.Terminal.BaseURL = v
	}
	if v := os.Getenv("BRIDGE_TERMINAL_TOKEN"); v != "" {
		c.Terminal.Token = v
	}
	if v := os.Getenv("BRIDGE_DB_DSN"); v != "" {
		c.Storage.DBConnectionString = v
	}
}

// -----------------------------------------------------------------------------

// ApplyDefaults fills every unset tuning value
func (c *Config) ApplyDefaults() {
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}

	if c.LogLevel == "" {
		c.LogLevel = "INFO"
	}
	if c.Storage.DBType == "" {
		c.Storage.DBType = "sqlite"
	}
	if len(c.Timeframes) == 0 {
		c.Timeframes = append([]string(nil), SupportedTimeframes...)
	}
	setInt(&c.Network.RequestTimeout, 5)

	setInt(&c.Intervals.PricePollMs, 250)
	setInt(&c.Intervals.TradePollMs, 250)
	setInt(&c.Intervals.DealScanMs, 250)
	setInt(&c.Intervals.FullHistoryScanSecs, 60)
	setInt(&c.Intervals.ErrorSleepMs, 2000)
	setInt(&c.Intervals.DisconnectedSleepMs, 5000)

	setInt(&c.Throttle.PriceMs, 250)
	setInt(&c.Throttle.RefreshMs, 1000)
	setInt(&c.Throttle.StatusMs, 5000)

	setInt(&c.Windows.CloseLookbackSecs, 60)
	setInt(&c.Windows.CloseLookbackWideSecs, 900)
	setInt(&c.Windows.DealScanLookbackSecs, 180)
	setInt(&c.Windows.FullHistorySecs, 600)

	setInt(&c.Deals.MaxProcessed, 1000)
	setInt(&c.Deals.TrimTo, 500)
	if c.Deals.EstimateContractSize <= 0 {
		c.Deals.EstimateContractSize = 100
	}

	if c.Bots.MagicMin <= 0 {
		c.Bots.MagicMin = 234000
	}
	if c.Bots.MagicMax <= 0 {
		c.Bots.MagicMax = 300000
	}
	if c.Bots.CommentPrefix == "" {
		c.Bots.CommentPrefix = "TradePulse"
	}
}

// -----------------------------------------------------------------------------

// Validate performs basic configuration validation
func (c *Config) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("application name cannot be empty")
	}

	// Validate Server configuration
	if c.Host == "" {
		return fmt.Errorf("server host cannot be empty")
	}
	if c.Port <= 1024 || c.Port > 65535 {
		return fmt.Errorf("invalid server port number: %d (must be between 1025 and 65535)", c.Port)
	}
	if c.GrpcPort != 0 && (c.GrpcPort <= 1024 || c.GrpcPort > 65535) {
		return fmt.Errorf("invalid grpc port number: %d", c.GrpcPort)
	}

	if c.Symbol == "" {
		return fmt.Errorf("symbol cannot be empty")
	}
	if c.Terminal.BaseURL == "" {
		return fmt.Errorf("terminal base_url cannot be empty")
	}

	// Validate Storage configuration
	switch c.Storage.DBType {
	case "sqlite":
		if c.Storage.DBPath == "" {
			return fmt.Errorf("database path cannot be empty for sqlite")
		}
	case "postgres":
		if c.Storage.DBConnectionString == "" {
			return fmt.Errorf("connection string cannot be empty for postgres")
		}
	default:
		return fmt.Errorf("unsupported database type: %s", c.Storage.DBType)
	}

	if c.Network.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}

	for i, tf := range c.Timeframes {
		if !IsSupportedTimeframe(tf) {
			return fmt.Errorf("timeframe %d (%q) is not supported", i, tf)
		}
	}
	if c.Timeframes[0] != SupportedTimeframes[0] {
		return fmt.Errorf("first timeframe must be the base timeframe %s", SupportedTimeframes[0])
	}

	if c.Deals.TrimTo >= c.Deals.MaxProcessed {
		return fmt.Errorf("deals.trim_to (%d) must be below deals.max_processed (%d)", c.Deals.TrimTo, c.Deals.MaxProcessed)
	}
	if c.Bots.MagicMin >= c.Bots.MagicMax {
		return fmt.Errorf("bots.magic_min must be below bots.magic_max")
	}
	for i, b := range c.Bots.Definitions {
		if b.BotID == "" {
			return fmt.Errorf("bot definition %d must have a bot_id", i)
		}
	}

	return nil
}

// -----------------------------------------------------------------------------

// Save persists the current configuration to the specified YAML file path
func (c *Config) Save(configPath string) error {
	// 1. Marshal the struct to YAML
	data, err := yaml.Marshal(c.MConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	// 2. Write to file (0644 permissions)
	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config to file '%s': %w", configPath, err)
	}

	return nil
}

// -----------------------------------------------------------------------------

func IsSupportedTimeframe(tf string) bool {
	for _, s := range SupportedTimeframes {
		if s == strings.TrimSpace(tf) {
			return true
		}
	}
	return false
}

// -----------------------------------------------------------------------------

// Millis converts a millisecond config value to a duration
func Millis(ms int) time.Duration {
	return time.Duration(ms) * time.Millisecond
}

// Seconds converts a second config value to a duration
func Seconds(s int) time.Duration {
	return time.Duration(s) * time.Second
}
