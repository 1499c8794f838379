package config

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"terminal-bridge/src/helpers"
)

const minimalYAML = `
name: bridge
host: 0.0.0.0
port: 8080
symbol: XAUUSD
terminal:
  base_url: http://127.0.0.1:5000
storage:
  db_type: sqlite
  db_path: trades.db
`

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Intervals.TradePollMs != 250 || cfg.Throttle.RefreshMs != 1000 || cfg.Throttle.StatusMs != 5000 {
		t.Fatalf("unexpected cadence defaults: %+v %+v", cfg.Intervals, cfg.Throttle)
	}
	if cfg.Deals.MaxProcessed != 1000 || cfg.Deals.TrimTo != 500 {
		t.Fatalf("unexpected deal set defaults: %+v", cfg.Deals)
	}
	if len(cfg.Timeframes) != len(SupportedTimeframes) {
		t.Fatalf("expected all timeframes, got %v", cfg.Timeframes)
	}
	if cfg.Bots.MagicMin != 234000 || cfg.Bots.MagicMax != 300000 {
		t.Fatalf("unexpected magic range %d-%d", cfg.Bots.MagicMin, cfg.Bots.MagicMax)
	}
}

func TestEnvOverridesSymbol(t *testing.T) {
	t.Setenv("BRIDGE_SYMBOL", "EURUSD")
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Symbol != "EURUSD" {
		t.Fatalf("expected EURUSD, got %s", cfg.Symbol)
	}
}

func TestValidateRejectsUnknownTimeframe(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + "timeframes: [1m, 2m]\n"))
	if err == nil || !strings.Contains(err.Error(), "2m") {
		t.Fatalf("expected timeframe error, got %v", err)
	}
}

func TestValidateRequiresBaseTimeframeFirst(t *testing.T) {
	_, err := Parse([]byte(minimalYAML + "timeframes: [5m, 1m]\n"))
	if err == nil {
		t.Fatalf("expected error for non-base first timeframe")
	}
	var cfgErr *helpers.ConfigurationError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigurationError, got %T", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Parse([]byte(minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := NewConfig(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Symbol != "XAUUSD" || loaded.Windows.CloseLookbackWideSecs != 900 {
		t.Fatalf("unexpected reloaded config: %+v", loaded.MConfig)
	}
}
