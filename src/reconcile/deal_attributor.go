package reconcile

import (
	"context"
	"time"

	"terminal-bridge/src/analysis/core"
	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/models"
)

// DealAttributor explains a position close from the terminal's deal history,
// falling back to an estimate from the last known price.
type DealAttributor struct {
	Source       interfaces.IMarketSource
	Processed    *ProcessedDealSet
	Bots         interfaces.IBotDirectory
	Rules        AttributionRules
	ContractSize float64
	Now          func() time.Time
}

// -----------------------------------------------------------------------------

func NewDealAttributor(source interfaces.IMarketSource, processed *ProcessedDealSet, bots interfaces.IBotDirectory, rules AttributionRules, contractSize float64) *DealAttributor {
	return &DealAttributor{
		Source:       source,
		Processed:    processed,
		Bots:         bots,
		Rules:        rules,
		ContractSize: contractSize,
		Now:          time.Now,
	}
}

// -----------------------------------------------------------------------------

// Attribute builds the closed trade for pos using deals from the trailing
// window. Only a successful lookup without a match yields an estimate; a failed
// lookup returns the error and no trade.
func (a *DealAttributor) Attribute(ctx context.Context, pos models.MPosition, window time.Duration) (models.MClosedTrade, error) {
	now := a.Now()
	deals, err := a.Source.GetDealsInRange(ctx, now.Add(-window), now)
	if err != nil {
		return models.MClosedTrade{}, err
	}
	if deal, ok := a.FindClosingDeal(deals, pos.Ticket, pos.Side); ok {
		return a.FromDeal(pos, deal), nil
	}
	return a.Estimate(pos, now), nil
}

// -----------------------------------------------------------------------------

// FindClosingDeal picks the latest unprocessed deal of the position on the
// side opposite its entry. Same-side deals are partial fills.
func (a *DealAttributor) FindClosingDeal(deals []models.MDeal, ticket int64, side string) (models.MDeal, bool) {
	closing := models.OppositeSide(side)
	var best models.MDeal
	found := false
	for _, d := range deals {
		if d.PositionID != ticket || d.Side != closing || a.Processed.Contains(d.Ticket) {
			continue
		}
		if !found || d.Time > best.Time || (d.Time == best.Time && d.Ticket > best.Ticket) {
			best = d
			found = true
		}
	}
	return best, found
}

// -----------------------------------------------------------------------------

// FromDeal joins a position with its closing deal and marks the deal processed.
func (a *DealAttributor) FromDeal(pos models.MPosition, deal models.MDeal) models.MClosedTrade {
	a.Processed.Add(deal.Ticket)

	magic, comment := pos.Magic, pos.Comment
	if magic == 0 && comment == "" {
		magic, comment = deal.Magic, deal.Comment
	}

	return models.MClosedTrade{
		Ticket:        pos.Ticket,
		Symbol:        firstNonEmpty(pos.Symbol, deal.Symbol),
		Side:          pos.Side,
		Volume:        pos.Volume,
		EntryPrice:    pos.OpenPrice,
		ExitPrice:     deal.Price,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		EntryTime:     pos.OpenTime,
		ExitTime:      deal.Time,
		RawProfit:     deal.Profit,
		Commission:    deal.Commission,
		Swap:          deal.Swap,
		Profit:        core.NetProfit(deal.Profit, deal.Commission, deal.Swap),
		ChangePercent: core.Round(core.SidedChangePercent(pos.Side, pos.OpenPrice, deal.Price), 2),
		Magic:         magic,
		Comment:       comment,
		DealTicket:    deal.Ticket,
		Bot:           AttributeBot(magic, comment, a.Bots, a.Rules),
	}
}

// -----------------------------------------------------------------------------

// FromRoundTrip reconstructs a position that opened and closed between two
// snapshots from its entry and exit deals.
func (a *DealAttributor) FromRoundTrip(entry, exit models.MDeal) models.MClosedTrade {
	pos := models.MPosition{
		Ticket:    exit.PositionID,
		Symbol:    firstNonEmpty(entry.Symbol, exit.Symbol),
		Side:      entry.Side,
		Volume:    entry.Volume,
		OpenPrice: entry.Price,
		OpenTime:  entry.Time,
		Magic:     entry.Magic,
		Comment:   entry.Comment,
	}
	a.Processed.Add(entry.Ticket)
	trade := a.FromDeal(pos, exit)
	// Entry-side costs belong to the same round trip
	trade.Commission = core.NetProfit(0, exit.Commission, entry.Commission)
	trade.Swap = core.NetProfit(0, exit.Swap, entry.Swap)
	trade.Profit = core.NetProfit(exit.Profit, trade.Commission, trade.Swap)
	return trade
}

// -----------------------------------------------------------------------------

// Estimate builds a closed trade using the last known current price as the
// exit. The result is flagged estimated.
func (a *DealAttributor) Estimate(pos models.MPosition, now time.Time) models.MClosedTrade {
	exit := pos.CurrentPrice
	if exit == 0 {
		exit = pos.OpenPrice
	}
	profit := core.EstimateProfit(pos.Side, pos.OpenPrice, exit, pos.Volume, a.ContractSize)

	return models.MClosedTrade{
		Ticket:        pos.Ticket,
		Symbol:        pos.Symbol,
		Side:          pos.Side,
		Volume:        pos.Volume,
		EntryPrice:    core.Round(pos.OpenPrice, 5),
		ExitPrice:     core.Round(exit, 5),
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		EntryTime:     pos.OpenTime,
		ExitTime:      now.Unix(),
		RawProfit:     core.Round(profit, 2),
		Profit:        core.Round(profit, 2),
		ChangePercent: core.Round(core.SidedChangePercent(pos.Side, pos.OpenPrice, exit), 2),
		Magic:         pos.Magic,
		Comment:       pos.Comment,
		Estimated:     true,
		Bot:           AttributeBot(pos.Magic, pos.Comment, a.Bots, a.Rules),
	}
}

// -----------------------------------------------------------------------------

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
