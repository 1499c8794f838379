package models

// MConfig Structure
type MConfig struct {
	Name           string           `yaml:"name"`
	Host           string           `yaml:"host"`
	Port           int              `yaml:"port"`
	LogLevel       string           `yaml:"log_level"`
	GrpcHost       string           `yaml:"grpc_host"`
	GrpcPort       int              `yaml:"grpc_port"`
	MetricsEnabled bool             `yaml:"metrics_enabled"`
	Symbol         string           `yaml:"symbol"`
	MarketCalendar string           `yaml:"market_calendar"`
	Timeframes     []string         `yaml:"timeframes"`
	Storage        MStorageConfig   `yaml:"storage"`
	Network        MNetworkConfig   `yaml:"network"`
	Terminal       MTerminalConfig  `yaml:"terminal"`
	Intervals      MIntervalsConfig `yaml:"intervals"`
	Throttle       MThrottleConfig  `yaml:"throttle"`
	Windows        MWindowsConfig   `yaml:"windows"`
	Deals          MDealsConfig     `yaml:"deals"`
	Bots           MBotsConfig      `yaml:"bots"`
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

// MTerminalConfig points at the HTTP bridge exposing the terminal's polling API.
type MTerminalConfig struct {
	BaseURL string `yaml:"base_url"`
	Token   string `yaml:"token"`
}

type MIntervalsConfig struct {
	PricePollMs         int `yaml:"price_poll_ms"`
	TradePollMs         int `yaml:"trade_poll_ms"`
	DealScanMs          int `yaml:"deal_scan_ms"`
	FullHistoryScanSecs int `yaml:"full_history_scan_s"`
	ErrorSleepMs        int `yaml:"error_sleep_ms"`
	DisconnectedSleepMs int `yaml:"disconnected_sleep_ms"`
}

type MThrottleConfig struct {
	PriceMs   int `yaml:"price_ms"`
	RefreshMs int `yaml:"refresh_ms"`
	StatusMs  int `yaml:"status_ms"`
}

// MWindowsConfig holds the deal-history lookback windows, in seconds.
type MWindowsConfig struct {
	CloseLookbackSecs     int `yaml:"close_lookback_s"`
	CloseLookbackWideSecs int `yaml:"close_lookback_wide_s"`
	DealScanLookbackSecs  int `yaml:"deal_scan_lookback_s"`
	FullHistorySecs       int `yaml:"full_history_lookback_s"`
}

type MDealsConfig struct {
	MaxProcessed         int     `yaml:"max_processed"`
	TrimTo               int     `yaml:"trim_to"`
	EstimateContractSize float64 `yaml:"estimate_contract_size"`
}

type MBotsConfig struct {
	MagicMin      int64            `yaml:"magic_min"`
	MagicMax      int64            `yaml:"magic_max"`
	CommentPrefix string           `yaml:"comment_prefix"`
	Definitions   []MBotDefinition `yaml:"definitions"`
}

// MBotDefinition pre-registers a bot at startup with a fixed magic number.
type MBotDefinition struct {
	BotID    string `yaml:"bot_id" json:"bot_id"`
	Name     string `yaml:"name" json:"name"`
	Strategy string `yaml:"strategy" json:"strategy"`
	Magic    int64  `yaml:"magic" json:"magic"`
}

// GetLogLevel returns the configured log level, INFO when unset.
func (c *MConfig) GetLogLevel() string {
	if c == nil || c.LogLevel == "" {
		return "INFO"
	}
	return c.LogLevel
}
