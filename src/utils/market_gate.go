package utils

import (
	"sync"
	"time"

	"terminal-bridge/src/logger"
)

// MarketGate decides whether the price loop should poll. A gate without a
// calendar is always open.
type MarketGate struct {
	Calendar *TradingCalendar
	Logger   *logger.Logger
	Now      func() time.Time

	mu       sync.Mutex
	lastOpen *bool
}

// -----------------------------------------------------------------------------

func NewMarketGate(mic string, l *logger.Logger) *MarketGate {
	g := &MarketGate{Logger: l, Now: time.Now}
	if mic == "" {
		l.Info("MarketGate: no market calendar configured, always open")
		return g
	}

	g.Calendar = GetCalendar(mic)
	if g.Calendar.Fallback {
		l.Warning("MarketGate: calendar '%s' not found, using Mon-Fri 09:30-16:00 New York hours", mic)
	} else {
		l.Info("MarketGate: using calendar '%s'", mic)
	}
	return g
}

// -----------------------------------------------------------------------------

// IsOpen reports whether the market is open now and logs transitions.
func (g *MarketGate) IsOpen() bool {
	if g == nil || g.Calendar == nil {
		return true
	}

	open := g.Calendar.IsOpenOnMinute(g.Now().UTC())

	g.mu.Lock()
	defer g.mu.Unlock()
	if g.lastOpen == nil || *g.lastOpen != open {
		if open {
			g.Logger.Info("MarketGate: market %s opened", g.Calendar.MIC)
		} else {
			g.Logger.Info("MarketGate: market %s closed", g.Calendar.MIC)
		}
		g.lastOpen = &open
	}
	return open
}
