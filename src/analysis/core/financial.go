package core

import (
	"terminal-bridge/src/models"

	"github.com/shopspring/decimal"
)

// -----------------------------------------------------------------------------

// NetProfit sums the raw deal profit with its commission and swap.
func NetProfit(profit, commission, swap float64) float64 {
	return decimal.NewFromFloat(profit).
		Add(decimal.NewFromFloat(commission)).
		Add(decimal.NewFromFloat(swap)).
		InexactFloat64()
}

// -----------------------------------------------------------------------------

// CalculateChangePercent calculates percentage change from previous to current.
func CalculateChangePercent(current, previous float64) float64 {
	if previous == 0 {
		return 0.0
	}
	prev := decimal.NewFromFloat(previous)
	return decimal.NewFromFloat(current).Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

// -----------------------------------------------------------------------------

// SidedChangePercent is the percent move in the position's favour: positive when
// price rose for a BUY or fell for a SELL.
func SidedChangePercent(side string, entry, exit float64) float64 {
	change := CalculateChangePercent(exit, entry)
	if side == models.SideSell {
		return -change
	}
	return change
}

// -----------------------------------------------------------------------------

// EstimateProfit approximates a close's P&L from an exit price proxy when no
// closing deal is available.
func EstimateProfit(side string, entry, exit, volume, contractSize float64) float64 {
	diff := decimal.NewFromFloat(exit).Sub(decimal.NewFromFloat(entry))
	if side == models.SideSell {
		diff = diff.Neg()
	}
	return diff.Mul(decimal.NewFromFloat(volume)).Mul(decimal.NewFromFloat(contractSize)).InexactFloat64()
}

// -----------------------------------------------------------------------------

// Round rounds half away from zero to the given number of decimal places.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// UnrealizedProfit totals profit, swap and commission across open positions.
func UnrealizedProfit(positions []models.MPosition) float64 {
	total := decimal.Zero
	for _, p := range positions {
		total = total.Add(decimal.NewFromFloat(p.Profit)).
			Add(decimal.NewFromFloat(p.Swap)).
			Add(decimal.NewFromFloat(p.Commission))
	}
	return total.InexactFloat64()
}
