package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCollectorsRegistered(t *testing.T) {
	m := NewMetrics()
	m.PriceEmitted("1m")
	m.ThrottleHit("price")
	m.TradeEvent("position_closed")
	m.TradeClosed(true)
	m.Persisted("trade_record", "inserted")
	m.LoopError("price")
	m.SetConnected(true)

	mfs, err := m.Registry.Gather()
	if err != nil {
		t.Fatalf("failed to gather metrics: %v", err)
	}
	names := make(map[string]bool)
	for _, mf := range mfs {
		names[mf.GetName()] = true
	}
	for _, name := range []string{
		"bridge_price_emissions_total",
		"bridge_throttled_total",
		"bridge_trade_events_total",
		"bridge_closed_trades_total",
		"bridge_persistence_total",
		"bridge_loop_errors_total",
		"bridge_terminal_connected",
	} {
		if !names[name] {
			t.Fatalf("%s metric not found", name)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.PriceEmitted("1m")
	m.SetConnected(false)
	m.Persisted("trade_record", "error")
}

func TestHandlerExposesText(t *testing.T) {
	m := NewMetrics()
	m.PriceEmitted("5m")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `bridge_price_emissions_total{timeframe="5m"} 1`) {
		t.Fatalf("expected 5m emission counter in output, got %s", body)
	}
}
