package datasource

import (
	"context"
	"io"
	"testing"

	"terminal-bridge/src/data_source/scripted"
	"terminal-bridge/src/logger"
)

func TestMonitoredSourceNotifiesOnTransitions(t *testing.T) {
	src := scripted.New()
	m := NewMonitoredSource(src, logger.NewLoggerTo(io.Discard, nil, "test"))

	var changes []bool
	m.OnConnectionChange(func(connected bool) { changes = append(changes, connected) })

	ctx := context.Background()
	m.IsConnected(ctx)
	m.IsConnected(ctx)
	src.SetConnected(false)
	m.IsConnected(ctx)
	m.IsConnected(ctx)
	src.SetConnected(true)
	m.IsConnected(ctx)

	expected := []bool{true, false, true}
	if len(changes) != len(expected) {
		t.Fatalf("expected %d transitions, got %v", len(expected), changes)
	}
	for i := range expected {
		if changes[i] != expected[i] {
			t.Fatalf("expected transitions %v, got %v", expected, changes)
		}
	}
	if !m.Connected() {
		t.Fatalf("expected last state connected")
	}
}
