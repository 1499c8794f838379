package interfaces

import (
	"context"
	"time"

	"terminal-bridge/src/models"
)

// -----------------------------------------------------------------------------
// IMarketSource is the poll-only view of the trading terminal.
// A returned error means the terminal is transiently unavailable; callers skip
// the cycle and retry on the next one.
// -----------------------------------------------------------------------------

type IMarketSource interface {

	// GetLatestBars returns up to count bars, oldest first.
	GetLatestBars(ctx context.Context, symbol, timeframe string, count int) ([]models.MCandle, error)

	// -----------------------------------------------------------------------------

	// GetOpenPositions returns the full open-position snapshot.
	GetOpenPositions(ctx context.Context) ([]models.MPosition, error)

	// -----------------------------------------------------------------------------

	// GetDealsInRange returns deals executed in [from, to].
	GetDealsInRange(ctx context.Context, from, to time.Time) ([]models.MDeal, error)

	// -----------------------------------------------------------------------------

	// GetAccountInfo returns the account summary.
	GetAccountInfo(ctx context.Context) (*models.MAccount, error)

	// -----------------------------------------------------------------------------

	// IsConnected reports whether the terminal is logged in and reachable.
	IsConnected(ctx context.Context) bool
}
