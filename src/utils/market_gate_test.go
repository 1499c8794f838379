package utils

import (
	"io"
	"testing"
	"time"

	"terminal-bridge/src/logger"
)

func TestGateWithoutCalendarAlwaysOpen(t *testing.T) {
	g := NewMarketGate("", logger.NewLoggerTo(io.Discard, nil, "test"))
	if !g.IsOpen() {
		t.Fatalf("expected gate without calendar to be open")
	}

	var nilGate *MarketGate
	if !nilGate.IsOpen() {
		t.Fatalf("expected nil gate to be open")
	}
}

func TestFallbackCalendarHours(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	tc := &TradingCalendar{MIC: "test", Fallback: true, Timezone: ny}

	// Wednesday 2025-03-12
	open := time.Date(2025, 3, 12, 10, 0, 0, 0, ny)
	early := time.Date(2025, 3, 12, 9, 29, 0, 0, ny)
	late := time.Date(2025, 3, 12, 16, 0, 0, 0, ny)
	saturday := time.Date(2025, 3, 15, 11, 0, 0, 0, ny)

	if !tc.IsOpenOnMinute(open) {
		t.Fatalf("expected open at 10:00")
	}
	if tc.IsOpenOnMinute(early) || tc.IsOpenOnMinute(late) {
		t.Fatalf("expected closed outside 09:30-16:00")
	}
	if tc.IsOpenOnMinute(saturday) {
		t.Fatalf("expected closed on saturday")
	}
}

func TestGateUsesClock(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	g := &MarketGate{
		Calendar: &TradingCalendar{MIC: "test", Fallback: true, Timezone: ny},
		Logger:   logger.NewLoggerTo(io.Discard, nil, "test"),
	}

	g.Now = func() time.Time { return time.Date(2025, 3, 15, 11, 0, 0, 0, ny) }
	if g.IsOpen() {
		t.Fatalf("expected closed on saturday")
	}
	g.Now = func() time.Time { return time.Date(2025, 3, 17, 11, 0, 0, 0, ny) }
	if !g.IsOpen() {
		t.Fatalf("expected open on monday morning")
	}
}
