package engine

import (
	"context"
	"sort"

	"terminal-bridge/src/config"
	"terminal-bridge/src/models"
)

const reasonUnobservedClose = "unobserved_close"

// DealScanCycle inspects recent deal history directly. It catches closes the
// snapshot diff misses, including positions that opened and closed between
// two snapshots. Every full-history interval the window is widened.
func (e *Engine) DealScanCycle(ctx context.Context) error {
	if !e.Reconciler.Initialized() {
		return nil
	}

	now := e.Now()
	window := config.Seconds(e.Config.Windows.DealScanLookbackSecs)

	e.stateMu.Lock()
	full := e.lastFullScan.IsZero() || now.Sub(e.lastFullScan) >= config.Seconds(e.Config.Intervals.FullHistoryScanSecs)
	seeded := e.dealsSeeded
	e.stateMu.Unlock()
	if full {
		window = config.Seconds(e.Config.Windows.FullHistorySecs)
	}

	deals, err := e.Source.GetDealsInRange(ctx, now.Add(-window), now)
	if err != nil {
		return err
	}

	e.stateMu.Lock()
	if full {
		e.lastFullScan = now
	}
	e.dealsSeeded = true
	e.stateMu.Unlock()

	closes, entries := splitDeals(deals)
	if !seeded {
		e.seedHistoricCloses(closes)
		return nil
	}

	var open map[int64]bool
	closedAny := false

	for _, d := range closes {
		if e.Processed.Contains(d.Ticket) || e.partialDeals.Contains(d.Ticket) || e.Reconciler.IsClosed(d.PositionID) {
			// Already handled, or the snapshot path owns it and will mark the deal
			continue
		}

		if open == nil {
			if open, err = e.openTickets(ctx); err != nil {
				return err
			}
		}
		if open[d.PositionID] {
			// Partial close, or a stale snapshot. Either way the snapshot path
			// must still be able to use this deal.
			e.partialDeals.Add(d.Ticket)
			continue
		}

		if pos, known := e.Reconciler.Known(d.PositionID); known {
			if d.Side != models.OppositeSide(pos.Side) {
				e.Processed.Add(d.Ticket)
				continue
			}
			if e.Reconciler.ClaimClose(d.PositionID) {
				e.Logger.Info("Deal scan caught close of position %d before the snapshot diff", d.PositionID)
				e.finalizeClose(ctx, e.Attributor.FromDeal(pos, d))
				closedAny = true
			}
			continue
		}

		// Never observed, or claimed by the snapshot path since the checks above
		if !e.Reconciler.ClaimClose(d.PositionID) {
			continue
		}
		if entry, ok := entries[d.PositionID]; ok {
			e.Logger.Info("Reconstructed round trip for position %d from deals %d/%d", d.PositionID, entry.Ticket, d.Ticket)
			e.finalizeClose(ctx, e.Attributor.FromRoundTrip(entry, d))
			closedAny = true
			continue
		}

		e.Processed.Add(d.Ticket)
		e.Logger.Info("Closing deal %d for unobserved position %d, asking clients to reload history", d.Ticket, d.PositionID)
		e.broadcast(models.EventRefreshTradeHistory, models.MRefreshTradeHistory{
			Reason:     reasonUnobservedClose,
			DealTicket: d.Ticket,
			Timestamp:  now.Unix(),
		})
	}

	if closedAny {
		positions, err := e.Source.GetOpenPositions(ctx)
		if err == nil {
			e.pushAccount(ctx, positions)
		}
	}
	return nil
}

// -----------------------------------------------------------------------------

// seedHistoricCloses marks closes that predate startup as processed so the
// first scan does not replay them.
func (e *Engine) seedHistoricCloses(closes []models.MDeal) {
	seeded := 0
	for _, d := range closes {
		if _, known := e.Reconciler.Known(d.PositionID); known || e.Reconciler.IsClosed(d.PositionID) {
			continue
		}
		if e.Processed.Add(d.Ticket) {
			seeded++
		}
	}
	e.Logger.Info("Deal scan baseline: %d historic closing deals", seeded)
}

// -----------------------------------------------------------------------------

func (e *Engine) openTickets(ctx context.Context) (map[int64]bool, error) {
	positions, err := e.Source.GetOpenPositions(ctx)
	if err != nil {
		return nil, err
	}
	open := make(map[int64]bool, len(positions))
	for _, p := range positions {
		open[p.Ticket] = true
	}
	return open, nil
}

// -----------------------------------------------------------------------------

// splitDeals returns closing deals oldest first and the entry deal of each
// position.
func splitDeals(deals []models.MDeal) ([]models.MDeal, map[int64]models.MDeal) {
	var closes []models.MDeal
	entries := make(map[int64]models.MDeal)
	for _, d := range deals {
		if d.Entry == models.DealEntryIn {
			if _, seen := entries[d.PositionID]; !seen {
				entries[d.PositionID] = d
			}
			continue
		}
		closes = append(closes, d)
	}
	sort.SliceStable(closes, func(i, j int) bool {
		if closes[i].Time != closes[j].Time {
			return closes[i].Time < closes[j].Time
		}
		return closes[i].Ticket < closes[j].Ticket
	})
	return closes, entries
}
