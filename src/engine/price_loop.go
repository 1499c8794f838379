package engine

import (
	"context"
	"errors"
	"sort"
	"time"

	"terminal-bridge/src/analysis"
	"terminal-bridge/src/helpers"
	"terminal-bridge/src/models"
	"terminal-bridge/src/subscription"
)

const activityLogInterval = 10 * time.Second

// PriceCycle polls the latest base bar once and fans the resulting candle
// events out to subscribed clients.
func (e *Engine) PriceCycle(ctx context.Context) error {
	if !e.Gate.IsOpen() {
		e.notifyIdle(models.StatusMarketClosed, "Market is closed")
		return nil
	}
	if !e.Source.IsConnected(ctx) {
		e.notifyIdle(models.StatusDisconnected, "Trading terminal is not connected")
		return errDisconnected
	}

	bars, err := e.Source.GetLatestBars(ctx, e.Config.Symbol, analysis.BaseTimeframe, 1)
	if err != nil {
		if errors.Is(err, helpers.ErrMalformedBar) {
			e.Logger.Debug("Dropped malformed %s bar: %v", e.Config.Symbol, err)
			return nil
		}
		return err
	}
	if len(bars) == 0 {
		return nil
	}

	events := e.Aggregator.Update(ctx, bars[len(bars)-1], e.Registry.HasSubscribers)
	emitted := e.fanOut(events)

	e.recordActivity(emitted)
	return nil
}

// -----------------------------------------------------------------------------

// fanOut sends each event to the subscribers of its timeframe under the price
// throttle and returns the number of deliveries.
func (e *Engine) fanOut(events map[string]models.MCandleEvent) int {
	if len(events) == 0 {
		return 0
	}

	timeframes := make([]string, 0, len(events))
	for tf := range events {
		timeframes = append(timeframes, tf)
	}
	sort.Strings(timeframes)

	delivered := 0
	for _, tf := range timeframes {
		ev := events[tf]
		payload := models.MPriceUpdate{MCandle: ev.Candle}
		for _, clientID := range e.Registry.Subscribers(tf) {
			if !e.Throttle.ShouldEmit(clientID, subscription.KindPrice, tf) {
				e.Metrics.ThrottleHit(string(subscription.KindPrice))
				continue
			}
			if !e.emitTo(clientID, models.EventPriceUpdate, payload) {
				continue
			}
			e.Throttle.MarkEmitted(clientID, subscription.KindPrice, tf)
			e.Metrics.PriceEmitted(tf)
			delivered++
		}
	}

	if delivered > 0 {
		e.stateMu.Lock()
		e.lastPriceUpdate = e.Now()
		e.stateMu.Unlock()
	}
	return delivered
}

// -----------------------------------------------------------------------------

// notifyIdle tells every client why no prices are flowing, at most once per
// status interval per client.
func (e *Engine) notifyIdle(status, message string) {
	payload := models.MConnectionStatus{Status: status, Message: message, Timestamp: e.Now().Unix()}
	for _, clientID := range e.Registry.Clients() {
		e.Throttle.TryEmit(clientID, subscription.KindStatus, "", func() bool {
			return e.emitTo(clientID, models.EventConnectionStatus, payload)
		})
	}
}

// -----------------------------------------------------------------------------

func (e *Engine) recordActivity(emitted int) {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()

	e.activity.cycles++
	e.activity.emissions += emitted

	now := e.Now()
	if e.lastActivityLog.IsZero() {
		e.lastActivityLog = now
		return
	}
	if now.Sub(e.lastActivityLog) < activityLogInterval {
		return
	}
	e.Logger.Info("Price loop: %d cycles, %d emissions, %d clients (%v)",
		e.activity.cycles, e.activity.emissions, e.Registry.Len(), e.Registry.CountByTimeframe())
	e.activity = activityCounters{}
	e.lastActivityLog = now
}
