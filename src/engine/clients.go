package engine

import (
	"context"

	"terminal-bridge/src/analysis"
	"terminal-bridge/src/config"
	"terminal-bridge/src/models"
	"terminal-bridge/src/subscription"
)

// -----------------------------------------------------------------------------
// IClientHandler
// -----------------------------------------------------------------------------

// OnConnect registers the client and sends the acknowledgement followed by a
// refresh of its timeframe.
func (e *Engine) OnConnect(clientID, timeframe string) {
	tf := e.normalizeTimeframe(clientID, timeframe)
	e.Registry.Set(clientID, tf)

	ctx, cancel := e.requestContext()
	defer cancel()

	e.emitTo(clientID, models.EventConnectionAck, models.MConnectionAck{
		Status:            "connected",
		ClientID:          clientID,
		Symbol:            e.Config.Symbol,
		Timeframe:         tf,
		TerminalConnected: e.Source.IsConnected(ctx),
	})
	e.Logger.Info("Client %s connected on %s", clientID, tf)

	e.Refresh(ctx, clientID, tf)
}

// -----------------------------------------------------------------------------

func (e *Engine) OnCommand(clientID, event, timeframe string) {
	ctx, cancel := e.requestContext()
	defer cancel()

	switch event {
	case models.CommandSetTimeframe:
		tf := e.normalizeTimeframe(clientID, timeframe)
		e.Registry.Set(clientID, tf)
		e.emitTo(clientID, models.EventTimeframeSet, models.MTimeframeAck{Status: "success", Timeframe: tf})
		e.Refresh(ctx, clientID, tf)

	case models.CommandRequestUpdate:
		tf := timeframe
		if tf == "" {
			tf, _ = e.Registry.Get(clientID)
		}
		tf = e.normalizeTimeframe(clientID, tf)
		e.Refresh(ctx, clientID, tf)
		e.emitTo(clientID, models.EventUpdateRequested, models.MTimeframeAck{Status: "success", Timeframe: tf})

	case models.CommandCheckConnection:
		status := models.StatusDisconnected
		if e.Source.IsConnected(ctx) {
			status = models.StatusConnected
		}
		e.emitTo(clientID, models.EventConnectionStatus, models.MConnectionStatus{Status: status, Timestamp: e.Now().Unix()})

	case models.CommandPing:
		e.emitTo(clientID, models.EventPong, models.MPong{Timestamp: e.Now().UnixMilli()})

	default:
		e.Logger.Debug("Ignoring unknown command %q from %s", event, clientID)
	}
}

// -----------------------------------------------------------------------------

// OnDisconnect drops every subscription and throttle entry of the client.
func (e *Engine) OnDisconnect(clientID string) {
	e.Registry.Remove(clientID)
	e.Throttle.Purge(clientID)
	e.Logger.Info("Client %s disconnected", clientID)
}

// -----------------------------------------------------------------------------

// Refresh sends the two latest bars of tf to one client: the previous bar
// flagged as history, then the current one. Rate limited per client and
// timeframe.
func (e *Engine) Refresh(ctx context.Context, clientID, tf string) bool {
	if !e.Throttle.ShouldEmit(clientID, subscription.KindRefresh, tf) {
		e.Metrics.ThrottleHit(string(subscription.KindRefresh))
		return false
	}

	if !e.Source.IsConnected(ctx) {
		e.Throttle.MarkEmitted(clientID, subscription.KindRefresh, tf)
		e.emitTo(clientID, models.EventConnectionStatus, models.MConnectionStatus{
			Status:    models.StatusDisconnected,
			Message:   "Trading terminal is not connected",
			Timestamp: e.Now().Unix(),
		})
		return false
	}

	bars, err := e.Source.GetLatestBars(ctx, e.Config.Symbol, tf, 2)
	if err != nil || len(bars) == 0 {
		e.Logger.Warning("Refresh of %s for %s failed: %v", tf, clientID, err)
		return false
	}
	e.Throttle.MarkEmitted(clientID, subscription.KindRefresh, tf)

	current := bars[len(bars)-1]
	current.Timeframe = tf
	if len(bars) > 1 {
		prev := bars[len(bars)-2]
		prev.Timeframe = tf
		e.emitTo(clientID, models.EventPriceUpdate, models.MPriceUpdate{MCandle: prev, IsHistory: true})
	}
	return e.emitTo(clientID, models.EventPriceUpdate, models.MPriceUpdate{MCandle: current})
}

// -----------------------------------------------------------------------------

func (e *Engine) normalizeTimeframe(clientID, tf string) string {
	if tf == "" {
		return analysis.BaseTimeframe
	}
	if !config.IsSupportedTimeframe(tf) || !e.timeframeEnabled(tf) {
		e.Logger.Warning("Client %s requested invalid timeframe %q, using %s", clientID, tf, analysis.BaseTimeframe)
		return analysis.BaseTimeframe
	}
	return tf
}

func (e *Engine) timeframeEnabled(tf string) bool {
	for _, enabled := range e.Config.Timeframes {
		if enabled == tf {
			return true
		}
	}
	return false
}
