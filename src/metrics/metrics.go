package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the bridge collectors on a private registry.
type Metrics struct {
	Registry *prometheus.Registry

	PriceEmissions    *prometheus.CounterVec
	Throttled         *prometheus.CounterVec
	TradeEvents       *prometheus.CounterVec
	ClosedTrades      *prometheus.CounterVec
	Persistence       *prometheus.CounterVec
	LoopErrors        *prometheus.CounterVec
	TerminalConnected prometheus.Gauge
	Clients           prometheus.Gauge
}

// -----------------------------------------------------------------------------

func NewMetrics() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		PriceEmissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bridge_price_emissions_total", Help: "Price updates delivered to clients"},
			[]string{"timeframe"},
		),
		Throttled: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bridge_throttled_total", Help: "Emissions suppressed by the per-client throttle"},
			[]string{"kind"},
		),
		TradeEvents: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bridge_trade_events_total", Help: "Position transitions broadcast"},
			[]string{"type"},
		),
		ClosedTrades: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bridge_closed_trades_total", Help: "Closed trades attributed"},
			[]string{"estimated"},
		),
		Persistence: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bridge_persistence_total", Help: "Store writes by operation and result"},
			[]string{"op", "result"},
		),
		LoopErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "bridge_loop_errors_total", Help: "Failed polling cycles"},
			[]string{"loop"},
		),
		TerminalConnected: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "bridge_terminal_connected", Help: "1 when the terminal is reachable"},
		),
		Clients: prometheus.NewGauge(
			prometheus.GaugeOpts{Name: "bridge_connected_clients", Help: "Open websocket clients"},
		),
	}

	m.Registry.MustRegister(
		m.PriceEmissions, m.Throttled, m.TradeEvents, m.ClosedTrades,
		m.Persistence, m.LoopErrors, m.TerminalConnected, m.Clients,
	)
	return m
}

// -----------------------------------------------------------------------------

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// -----------------------------------------------------------------------------
// Recording helpers. All of them accept a nil receiver so callers can run
// without metrics enabled.
// -----------------------------------------------------------------------------

func (m *Metrics) PriceEmitted(timeframe string) {
	if m == nil {
		return
	}
	m.PriceEmissions.WithLabelValues(timeframe).Inc()
}

func (m *Metrics) ThrottleHit(kind string) {
	if m == nil {
		return
	}
	m.Throttled.WithLabelValues(kind).Inc()
}

func (m *Metrics) TradeEvent(eventType string) {
	if m == nil {
		return
	}
	m.TradeEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) TradeClosed(estimated bool) {
	if m == nil {
		return
	}
	m.ClosedTrades.WithLabelValues(strconv.FormatBool(estimated)).Inc()
}

// Persisted records a store write; result is one of inserted, duplicate, error.
func (m *Metrics) Persisted(op, result string) {
	if m == nil {
		return
	}
	m.Persistence.WithLabelValues(op, result).Inc()
}

func (m *Metrics) LoopError(loop string) {
	if m == nil {
		return
	}
	m.LoopErrors.WithLabelValues(loop).Inc()
}

func (m *Metrics) SetConnected(connected bool) {
	if m == nil {
		return
	}
	if connected {
		m.TerminalConnected.Set(1)
	} else {
		m.TerminalConnected.Set(0)
	}
}

func (m *Metrics) SetClients(n int) {
	if m == nil {
		return
	}
	m.Clients.Set(float64(n))
}
