package analysis

import (
	"context"
	"errors"
	"io"
	"testing"

	"terminal-bridge/src/data_source/scripted"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"
)

func newAggregator(src *scripted.Source) *CandleAggregator {
	return NewCandleAggregator(src, "XAUUSD", []string{"1m", "5m", "1h", "4h", "1d", "1w"}, logger.NewLoggerTo(io.Discard, nil, "test"))
}

func bar(ts int64, o, h, l, c float64) models.MCandle {
	return models.MCandle{Time: ts, Open: o, High: h, Low: l, Close: c}
}

func none(string) bool { return false }

func TestBaselineThenRevisionInSamePeriod(t *testing.T) {
	agg := newAggregator(scripted.New())
	ctx := context.Background()

	first := agg.Update(ctx, bar(0, 100, 101, 99, 100.5), none)
	ev, ok := first[BaseTimeframe]
	if !ok {
		t.Fatalf("expected baseline emission")
	}
	if ev.IsNewCandle || ev.IsPriceRevision || ev.Candle.Time != 0 {
		t.Fatalf("expected baseline with both flags false, got %+v", ev)
	}

	second := agg.Update(ctx, bar(0, 100, 101, 99, 100.7), none)
	ev, ok = second[BaseTimeframe]
	if !ok {
		t.Fatalf("expected revision emission")
	}
	if ev.IsNewCandle || !ev.IsPriceRevision || ev.Candle.Time != 0 || ev.Candle.Close != 100.7 {
		t.Fatalf("expected price revision at period 0, got %+v", ev)
	}
}

func TestUnchangedBarIsNoop(t *testing.T) {
	agg := newAggregator(scripted.New())
	ctx := context.Background()

	agg.Update(ctx, bar(60, 1, 2, 0.5, 1.5), none)
	if got := agg.Update(ctx, bar(60, 1, 2, 0.5, 1.5), none); got != nil {
		t.Fatalf("expected no emission, got %+v", got)
	}
}

func TestEmissionsNeverGoBackwards(t *testing.T) {
	agg := newAggregator(scripted.New())
	ctx := context.Background()

	seq := []models.MCandle{
		bar(60, 1, 2, 0.5, 1.5),
		bar(120, 1.5, 2, 1, 1.8),
		bar(60, 1, 3, 0.5, 2.5), // stale poll of the previous period
		bar(120, 1.5, 2.2, 1, 2.1),
		bar(180, 2.1, 2.1, 2.1, 2.1),
	}

	var last int64 = -1
	var emitted int
	for _, b := range seq {
		ev, ok := agg.Update(ctx, b, none)[BaseTimeframe]
		if !ok {
			continue
		}
		emitted++
		if ev.Candle.Time < last {
			t.Fatalf("period went backwards: %d after %d", ev.Candle.Time, last)
		}
		last = ev.Candle.Time
	}
	if emitted != 4 {
		t.Fatalf("expected 4 emissions, got %d", emitted)
	}
}

func TestDerivedPolledOnlyWhenSubscribed(t *testing.T) {
	src := scripted.New()
	src.SetBars("5m", bar(300, 10, 11, 9, 10.5))
	src.SetBars("1h", bar(0, 10, 12, 8, 10.5))
	agg := newAggregator(src)
	ctx := context.Background()

	only5m := func(tf string) bool { return tf == "5m" }
	events := agg.Update(ctx, bar(360, 10, 10.5, 10, 10.5), only5m)

	if _, ok := events["5m"]; !ok {
		t.Fatalf("expected 5m emission, got %+v", events)
	}
	if !events["5m"].IsNewCandle {
		t.Fatalf("expected first 5m emission to be a new candle")
	}
	if src.BarCalls("1h") != 0 || src.BarCalls("1d") != 0 {
		t.Fatalf("unsubscribed timeframes must not be polled")
	}

	// Base revision but the 5m candle is unchanged
	events = agg.Update(ctx, bar(360, 10, 10.6, 10, 10.5), only5m)
	if _, ok := events["5m"]; ok {
		t.Fatalf("expected no 5m emission for unchanged candle")
	}

	// 5m candle revised
	src.SetBars("5m", bar(300, 10, 11.5, 9, 11.2))
	events = agg.Update(ctx, bar(360, 10, 10.7, 10, 10.7), only5m)
	ev, ok := events["5m"]
	if !ok || !ev.IsPriceRevision || ev.Candle.Close != 11.2 || ev.Timeframe != "5m" {
		t.Fatalf("expected 5m revision, got %+v", events)
	}
}

func TestFailedDerivedPollSkipsOnlyThatTimeframe(t *testing.T) {
	src := scripted.New()
	src.SetBars("5m", bar(300, 10, 11, 9, 10.5))
	src.FailBars("1h", errors.New("timeout"))
	agg := newAggregator(src)

	both := func(tf string) bool { return tf == "5m" || tf == "1h" }
	events := agg.Update(context.Background(), bar(360, 10, 10.5, 10, 10.5), both)

	if _, ok := events["5m"]; !ok {
		t.Fatalf("expected 5m emission despite 1h failure")
	}
	if _, ok := events["1h"]; ok {
		t.Fatalf("expected 1h to be skipped")
	}
	if _, ok := agg.LastSent("1h"); ok {
		t.Fatalf("failed poll must not record state")
	}
}
