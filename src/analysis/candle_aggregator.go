package analysis

import (
	"context"
	"sync"

	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"
)

// CandleAggregator turns repeated base-bar polls into per-timeframe emission
// decisions. Derived timeframes are polled only while they have subscribers.
type CandleAggregator struct {
	Source interfaces.IMarketSource
	Symbol string
	Logger *logger.Logger

	derived []string

	mu                    sync.Mutex
	initialized           bool
	lastProcessedBaseTime int64
	lastSent              map[string]models.MCandle
}

// -----------------------------------------------------------------------------

func NewCandleAggregator(source interfaces.IMarketSource, symbol string, timeframes []string, log *logger.Logger) *CandleAggregator {
	enabled := make(map[string]bool, len(timeframes))
	for _, tf := range timeframes {
		enabled[tf] = true
	}

	var derived []string
	for _, tf := range DerivedTimeframes {
		if enabled[tf] {
			derived = append(derived, tf)
		}
	}

	return &CandleAggregator{
		Source:   source,
		Symbol:   symbol,
		Logger:   log,
		derived:  derived,
		lastSent: make(map[string]models.MCandle),
	}
}

// -----------------------------------------------------------------------------

// Update ingests the latest base bar and returns the events to emit, keyed by
// timeframe. A nil map means nothing changed.
func (a *CandleAggregator) Update(ctx context.Context, bar models.MCandle, hasSubscribers func(tf string) bool) map[string]models.MCandleEvent {
	a.mu.Lock()
	defer a.mu.Unlock()

	bar.Timeframe = BaseTimeframe
	events := make(map[string]models.MCandleEvent)

	if !a.initialized {
		// First bar ever seen is the baseline
		a.initialized = true
		a.lastProcessedBaseTime = bar.Time
		a.lastSent[BaseTimeframe] = bar
		events[BaseTimeframe] = models.MCandleEvent{Candle: bar, Timeframe: BaseTimeframe}
	} else {
		last := a.lastSent[BaseTimeframe]
		isNew := bar.Time > a.lastProcessedBaseTime
		isRevision := !isNew && bar.Time == last.Time &&
			(bar.Close != last.Close || bar.High != last.High || bar.Low != last.Low)

		if !isNew && !isRevision {
			return nil
		}
		if isNew {
			a.lastProcessedBaseTime = bar.Time
		}
		a.lastSent[BaseTimeframe] = bar
		events[BaseTimeframe] = models.MCandleEvent{
			Candle:          bar,
			Timeframe:       BaseTimeframe,
			IsNewCandle:     isNew,
			IsPriceRevision: isRevision,
		}
	}

	for _, tf := range a.derived {
		if hasSubscribers == nil || !hasSubscribers(tf) {
			continue
		}
		if ev, ok := a.refreshDerived(ctx, tf, bar.Time); ok {
			events[tf] = ev
		}
	}

	return events
}

// -----------------------------------------------------------------------------

func (a *CandleAggregator) refreshDerived(ctx context.Context, tf string, baseTime int64) (models.MCandleEvent, bool) {
	periodStart, err := PeriodStart(baseTime, tf)
	if err != nil {
		a.Logger.Error("Cannot align %s candle: %v", tf, err)
		return models.MCandleEvent{}, false
	}

	recorded, hasRecorded := a.lastSent[tf]
	if hasRecorded && recorded.Time > periodStart {
		// Base bar is older than what this timeframe already shows
		return models.MCandleEvent{}, false
	}

	bars, err := a.Source.GetLatestBars(ctx, a.Symbol, tf, 1)
	if err != nil || len(bars) == 0 {
		a.Logger.Warning("Skipping %s update for %s: %v", tf, a.Symbol, err)
		return models.MCandleEvent{}, false
	}

	fetched := bars[len(bars)-1]
	fetched.Timeframe = tf

	switch {
	case !hasRecorded || fetched.Time > recorded.Time:
		a.lastSent[tf] = fetched
		return models.MCandleEvent{Candle: fetched, Timeframe: tf, IsNewCandle: true}, true
	case fetched.Time == recorded.Time && !fetched.SamePrices(recorded):
		a.lastSent[tf] = fetched
		return models.MCandleEvent{Candle: fetched, Timeframe: tf, IsPriceRevision: true}, true
	}
	return models.MCandleEvent{}, false
}

// -----------------------------------------------------------------------------

// LastSent returns the most recently emitted candle for a timeframe.
func (a *CandleAggregator) LastSent(tf string) (models.MCandle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	c, ok := a.lastSent[tf]
	return c, ok
}
