package core

import (
	"math"
	"testing"

	"terminal-bridge/src/models"
)

func almost(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNetProfitIncludesCosts(t *testing.T) {
	if got := NetProfit(12.5, -0.7, -0.3); !almost(got, 11.5) {
		t.Fatalf("expected 11.5, got %v", got)
	}
}

func TestSidedChangePercent(t *testing.T) {
	if got := SidedChangePercent(models.SideBuy, 100, 101); !almost(got, 1) {
		t.Fatalf("expected 1 for buy, got %v", got)
	}
	if got := SidedChangePercent(models.SideSell, 100, 101); !almost(got, -1) {
		t.Fatalf("expected -1 for sell, got %v", got)
	}
	if got := SidedChangePercent(models.SideBuy, 0, 101); got != 0 {
		t.Fatalf("expected 0 for zero entry, got %v", got)
	}
}

func TestEstimateProfitSignsBySide(t *testing.T) {
	if got := EstimateProfit(models.SideBuy, 2000, 2001.5, 0.1, 100); !almost(got, 15) {
		t.Fatalf("expected 15, got %v", got)
	}
	if got := EstimateProfit(models.SideSell, 2000, 2001.5, 0.1, 100); !almost(got, -15) {
		t.Fatalf("expected -15, got %v", got)
	}
}

func TestRoundAndUnrealized(t *testing.T) {
	if got := Round(1.23456, 2); !almost(got, 1.23) {
		t.Fatalf("expected 1.23, got %v", got)
	}
	ps := []models.MPosition{{Profit: 10, Swap: -1, Commission: -0.5}, {Profit: -2}}
	if got := UnrealizedProfit(ps); !almost(got, 6.5) {
		t.Fatalf("expected 6.5, got %v", got)
	}
}
