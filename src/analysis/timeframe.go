package analysis

import (
	"fmt"
)

const (
	minuteSeconds = 60
	hourSeconds   = 60 * minuteSeconds
	daySeconds    = 24 * hourSeconds
	weekSeconds   = 7 * daySeconds

	// 1970-01-01 was a Thursday; weeks start on the Monday three days earlier.
	weekEpochShift = 3 * daySeconds
)

// BaseTimeframe is the resolution polled directly from the terminal.
const BaseTimeframe = "1m"

// DerivedTimeframes are refreshed only when a base update is emitted.
var DerivedTimeframes = []string{"5m", "1h", "4h", "1d", "1w"}

var timeframeSeconds = map[string]int64{
	"1m": minuteSeconds,
	"5m": 5 * minuteSeconds,
	"1h": hourSeconds,
	"4h": 4 * hourSeconds,
	"1d": daySeconds,
	"1w": weekSeconds,
}

// -----------------------------------------------------------------------------

// TimeframeSeconds returns the period length of a timeframe.
func TimeframeSeconds(tf string) (int64, error) {
	secs, ok := timeframeSeconds[tf]
	if !ok {
		return 0, fmt.Errorf("unknown timeframe %q", tf)
	}
	return secs, nil
}

// -----------------------------------------------------------------------------

// CalculateWindowBoundaries returns the [start, end) window of length window containing ts.
func CalculateWindowBoundaries(ts int64, window int64) (int64, int64) {
	start := ts - floorMod(ts, window)
	return start, start + window
}

// -----------------------------------------------------------------------------

// PeriodStart floors a unix timestamp to the start of its period in UTC.
// Weekly periods start on Monday 00:00 UTC.
func PeriodStart(ts int64, tf string) (int64, error) {
	window, err := TimeframeSeconds(tf)
	if err != nil {
		return 0, err
	}
	if tf == "1w" {
		start, _ := CalculateWindowBoundaries(ts+weekEpochShift, window)
		return start - weekEpochShift, nil
	}
	start, _ := CalculateWindowBoundaries(ts, window)
	return start, nil
}

// -----------------------------------------------------------------------------

func floorMod(a, b int64) int64 {
	m := a % b
	if m < 0 {
		m += b
	}
	return m
}
