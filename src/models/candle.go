package models

// -----------------------------------------------------------------------------
// Candle Structures
// -----------------------------------------------------------------------------

// MCandle is one OHLC bar. Time is the period start in unix seconds.
type MCandle struct {
	Time      int64   `json:"time"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
	Timeframe string  `json:"timeframe"`
}

// SamePrices reports whether two candles carry identical O/H/L/C values.
func (c MCandle) SamePrices(o MCandle) bool {
	return c.Open == o.Open && c.High == o.High && c.Low == o.Low && c.Close == o.Close
}

// -----------------------------------------------------------------------------

// MCandleEvent is an emission decision produced by the aggregator.
type MCandleEvent struct {
	Candle          MCandle
	Timeframe       string
	IsNewCandle     bool
	IsPriceRevision bool
}

// -----------------------------------------------------------------------------

// MPriceUpdate is the price_update push payload.
type MPriceUpdate struct {
	MCandle
	IsHistory bool `json:"is_history,omitempty"`
}
