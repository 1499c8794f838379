package interfaces

import (
	"context"

	"terminal-bridge/src/models"
)

// -----------------------------------------------------------------------------
// ITradeStore defines the contract for closed-trade persistence.
// Both upserts must tolerate concurrent calls for the same ticket.
// -----------------------------------------------------------------------------

type ITradeStore interface {

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// UpsertTradeRecord stores the record unless one exists for its ticket.
	// inserted is false when the ticket was already stored.
	UpsertTradeRecord(ctx context.Context, rec models.MTradeRecord) (inserted bool, err error)

	// -----------------------------------------------------------------------------

	// UpsertTradeConfigSnapshot creates the snapshot or fills its null fields,
	// refreshing outcome fields whenever they are provided.
	UpsertTradeConfigSnapshot(ctx context.Context, ticket int64, meta models.MBotMeta, snap models.MTradeConfigSnapshot) error

	// -----------------------------------------------------------------------------

	GetTradeRecord(ctx context.Context, ticket int64) (*models.MTradeRecord, error)

	// -----------------------------------------------------------------------------

	// ListTradeRecords returns the newest records first.
	ListTradeRecords(ctx context.Context, limit int) ([]models.MTradeRecord, error)

	// -----------------------------------------------------------------------------

	GetTradeConfigSnapshot(ctx context.Context, ticket int64) (*models.MTradeConfigRecord, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
