package engine

import (
	"context"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/models"
)

// RecordExecution stores the configuration snapshot a bot reports after
// placing an order. Known bots fill in missing identity fields.
func (e *Engine) RecordExecution(ctx context.Context, report models.MExecutionReport) error {
	if report.Ticket <= 0 {
		return helpers.NewValidationError("execution report needs a positive ticket, got %d", report.Ticket)
	}
	if e.Store == nil {
		return helpers.NewPersistenceError("record execution", nil)
	}

	meta := report.Bot
	if e.Bots != nil && meta.BotID != "" {
		if info, ok := e.Bots.Get(meta.BotID); ok {
			if meta.BotName == "" {
				meta.BotName = info.Name
			}
			if meta.Strategy == "" {
				meta.Strategy = info.Strategy
			}
			if meta.MagicNumber == 0 {
				meta.MagicNumber = info.MagicNumber
			}
		}
	}

	// Outcome fields are owned by the close path
	snap := report.Config
	snap.ProfitLoss = nil
	snap.ChangePercent = nil

	if err := e.Store.UpsertTradeConfigSnapshot(ctx, report.Ticket, meta, snap); err != nil {
		e.Metrics.Persisted("config_snapshot", "error")
		return helpers.NewPersistenceError("record execution", err)
	}
	e.Metrics.Persisted("config_snapshot", "upserted")
	e.Logger.Info("Recorded execution of ticket %d by %s", report.Ticket, meta.BotID)
	return nil
}
