package datasource

import (
	"context"
	"sync"
	"time"

	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"
)

// ConnectionListener is called when the terminal connection flips.
type ConnectionListener func(connected bool)

// MonitoredSource wraps an IMarketSource and tracks terminal connectivity.
// Listeners are only invoked on transitions.
type MonitoredSource struct {
	Source interfaces.IMarketSource
	Logger *logger.Logger

	mu        sync.RWMutex
	known     bool
	connected bool
	changedAt time.Time
	listeners []ConnectionListener
}

// -----------------------------------------------------------------------------

func NewMonitoredSource(source interfaces.IMarketSource, log *logger.Logger) *MonitoredSource {
	return &MonitoredSource{
		Source: source,
		Logger: log,
	}
}

// -----------------------------------------------------------------------------

// OnConnectionChange registers a listener.
func (m *MonitoredSource) OnConnectionChange(fn ConnectionListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// -----------------------------------------------------------------------------

// Connected returns the last observed connection state without polling.
func (m *MonitoredSource) Connected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connected
}

// -----------------------------------------------------------------------------

func (m *MonitoredSource) IsConnected(ctx context.Context) bool {
	connected := m.Source.IsConnected(ctx)
	m.record(connected)
	return connected
}

func (m *MonitoredSource) record(connected bool) {
	m.mu.Lock()
	if m.known && m.connected == connected {
		m.mu.Unlock()
		return
	}
	var lasted time.Duration
	if m.known {
		lasted = time.Since(m.changedAt).Round(time.Second)
	}
	m.known = true
	m.connected = connected
	m.changedAt = time.Now()
	listeners := append([]ConnectionListener(nil), m.listeners...)
	m.mu.Unlock()

	switch {
	case connected && lasted > 0:
		m.Logger.Info("Terminal connected after %s offline", lasted)
	case connected:
		m.Logger.Info("Terminal connected")
	default:
		m.Logger.Warning("Terminal disconnected")
	}
	for _, fn := range listeners {
		fn(connected)
	}
}

// -----------------------------------------------------------------------------

func (m *MonitoredSource) GetLatestBars(ctx context.Context, symbol, timeframe string, count int) ([]models.MCandle, error) {
	return m.Source.GetLatestBars(ctx, symbol, timeframe, count)
}

func (m *MonitoredSource) GetOpenPositions(ctx context.Context) ([]models.MPosition, error) {
	return m.Source.GetOpenPositions(ctx)
}

func (m *MonitoredSource) GetDealsInRange(ctx context.Context, from, to time.Time) ([]models.MDeal, error) {
	return m.Source.GetDealsInRange(ctx, from, to)
}

func (m *MonitoredSource) GetAccountInfo(ctx context.Context) (*models.MAccount, error) {
	return m.Source.GetAccountInfo(ctx)
}
