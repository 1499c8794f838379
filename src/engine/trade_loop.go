package engine

import (
	"context"
	"sort"

	"terminal-bridge/src/analysis/core"
	"terminal-bridge/src/config"
	"terminal-bridge/src/models"
	"terminal-bridge/src/reconcile"
)

// TradeCycle diffs the open-position snapshot against the baseline and
// publishes the resulting transitions.
func (e *Engine) TradeCycle(ctx context.Context) error {
	e.retryPersist(ctx)

	if !e.Source.IsConnected(ctx) {
		if e.Reconciler.Initialized() {
			e.Logger.Warning("Terminal disconnected, position baseline will be rebuilt on reconnect")
			e.Reconciler.Reset()
		}
		return errDisconnected
	}

	e.retryCloses(ctx)

	positions, err := e.Source.GetOpenPositions(ctx)
	if err != nil {
		// An unavailable snapshot is not an empty one
		return err
	}

	transitions := e.Reconciler.Reconcile(positions)
	for _, t := range transitions {
		switch t.Type {
		case reconcile.Opened:
			e.Logger.Info("Position %d opened: %s %.2f %s @ %.5f", t.Position.Ticket, t.Position.Side, t.Position.Volume, t.Position.Symbol, t.Position.OpenPrice)
			e.publishPosition(models.TradePositionOpened, t.Position)
		case reconcile.Updated:
			e.publishPosition(models.TradePositionUpdated, t.Position)
		case reconcile.Closed:
			e.closeFromSnapshot(ctx, t.Position)
		}
	}

	if len(transitions) > 0 {
		e.pushAccount(ctx, positions)
	}
	return nil
}

// -----------------------------------------------------------------------------

// closeFromSnapshot attributes a ticket that vanished from the snapshot. The
// narrow deal window is tried first, then the wide one. If deal history is
// unavailable the ticket stays claimed and is retried on later cycles.
func (e *Engine) closeFromSnapshot(ctx context.Context, pos models.MPosition) {
	trade, err := e.attributeClose(ctx, pos)
	if err != nil {
		e.Logger.Warning("Deal lookup for closed position %d failed, will retry: %v", pos.Ticket, err)
		e.pendingMu.Lock()
		e.pendingClose[pos.Ticket] = pos
		e.pendingMu.Unlock()
		return
	}
	e.finalizeClose(ctx, trade)
}

func (e *Engine) attributeClose(ctx context.Context, pos models.MPosition) (models.MClosedTrade, error) {
	trade, err := e.Attributor.Attribute(ctx, pos, config.Seconds(e.Config.Windows.CloseLookbackSecs))
	if err != nil || !trade.Estimated {
		return trade, err
	}
	return e.Attributor.Attribute(ctx, pos, config.Seconds(e.Config.Windows.CloseLookbackWideSecs))
}

// retryCloses attributes closes deferred by a failed deal lookup. The first
// failure ends the pass.
func (e *Engine) retryCloses(ctx context.Context) {
	e.pendingMu.Lock()
	pending := make([]models.MPosition, 0, len(e.pendingClose))
	for _, pos := range e.pendingClose {
		pending = append(pending, pos)
	}
	e.pendingMu.Unlock()
	sort.Slice(pending, func(i, j int) bool { return pending[i].Ticket < pending[j].Ticket })

	for _, pos := range pending {
		trade, err := e.attributeClose(ctx, pos)
		if err != nil {
			e.Logger.Debug("Deal lookup for position %d still failing: %v", pos.Ticket, err)
			return
		}
		e.pendingMu.Lock()
		delete(e.pendingClose, pos.Ticket)
		e.pendingMu.Unlock()
		e.finalizeClose(ctx, trade)
	}
}

// -----------------------------------------------------------------------------

// finalizeClose persists and publishes a closed trade. Callers must hold the
// ticket's close claim.
func (e *Engine) finalizeClose(ctx context.Context, trade models.MClosedTrade) {
	if trade.Estimated {
		e.Logger.Warning("Position %d closed without a matching deal, estimated P&L %.2f", trade.Ticket, trade.Profit)
	} else {
		e.Logger.Info("Position %d closed by deal %d, P&L %.2f (%.2f%%)", trade.Ticket, trade.DealTicket, trade.Profit, trade.ChangePercent)
	}

	e.persistClose(ctx, trade)

	e.Metrics.TradeClosed(trade.Estimated)
	e.Metrics.TradeEvent(models.TradePositionClosed)
	e.broadcast(models.EventTradeUpdate, models.MTradeUpdate{
		Type:      models.TradePositionClosed,
		Data:      closedTradeData(trade),
		Timestamp: e.Now().Unix(),
	})
}

// -----------------------------------------------------------------------------

// persistClose stores the trade record and its configuration outcome. A
// failed write parks the trade for retryPersist; both upserts are idempotent.
func (e *Engine) persistClose(ctx context.Context, trade models.MClosedTrade) {
	if e.Store == nil {
		return
	}
	if err := e.writeClose(ctx, trade); err != nil {
		e.Logger.Error("Failed to persist trade %d, will retry: %v", trade.Ticket, err)
		e.pendingMu.Lock()
		e.pendingPersist[trade.Ticket] = trade
		e.pendingMu.Unlock()
	}
}

func (e *Engine) writeClose(ctx context.Context, trade models.MClosedTrade) error {
	inserted, err := e.Store.UpsertTradeRecord(ctx, models.NewTradeRecord(trade))
	switch {
	case err != nil:
		e.Metrics.Persisted("trade_record", "error")
		return err
	case inserted:
		e.Metrics.Persisted("trade_record", "inserted")
	default:
		e.Metrics.Persisted("trade_record", "duplicate")
		e.Logger.Debug("Trade %d already persisted", trade.Ticket)
	}

	profit, change := trade.Profit, trade.ChangePercent
	snap := models.MTradeConfigSnapshot{ProfitLoss: &profit, ChangePercent: &change}
	if err := e.Store.UpsertTradeConfigSnapshot(ctx, trade.Ticket, e.botMeta(trade), snap); err != nil {
		e.Metrics.Persisted("config_snapshot", "error")
		return err
	}
	e.Metrics.Persisted("config_snapshot", "upserted")
	return nil
}

// retryPersist writes trades whose earlier persistence failed. The first
// failure ends the pass.
func (e *Engine) retryPersist(ctx context.Context) {
	e.pendingMu.Lock()
	pending := make([]models.MClosedTrade, 0, len(e.pendingPersist))
	for _, trade := range e.pendingPersist {
		pending = append(pending, trade)
	}
	e.pendingMu.Unlock()
	sort.Slice(pending, func(i, j int) bool { return pending[i].Ticket < pending[j].Ticket })

	for _, trade := range pending {
		if err := e.writeClose(ctx, trade); err != nil {
			e.Logger.Debug("Trade %d still not persisted: %v", trade.Ticket, err)
			return
		}
		e.pendingMu.Lock()
		delete(e.pendingPersist, trade.Ticket)
		e.pendingMu.Unlock()
		e.Logger.Info("Persisted trade %d after retry", trade.Ticket)
	}
}

func (e *Engine) botMeta(trade models.MClosedTrade) models.MBotMeta {
	meta := models.MBotMeta{MagicNumber: trade.Magic, EntryTime: trade.EntryTime}
	if trade.Bot == nil {
		return meta
	}
	meta.BotID = trade.Bot.BotID
	meta.BotName = trade.Bot.BotName
	if e.Bots != nil {
		if info, ok := e.Bots.Get(trade.Bot.BotID); ok {
			meta.Strategy = info.Strategy
		}
	}
	return meta
}

// -----------------------------------------------------------------------------

func (e *Engine) publishPosition(tradeType string, pos models.MPosition) {
	e.Metrics.TradeEvent(tradeType)
	e.broadcast(models.EventTradeUpdate, models.MTradeUpdate{
		Type:      tradeType,
		Data:      e.positionData(pos),
		Timestamp: e.Now().Unix(),
	})
}

// pushAccount broadcasts one account summary. Failures are not cycle errors.
func (e *Engine) pushAccount(ctx context.Context, positions []models.MPosition) {
	acc, err := e.Source.GetAccountInfo(ctx)
	if err != nil {
		e.Logger.Debug("Account info unavailable: %v", err)
		return
	}
	e.broadcast(models.EventAccountUpdate, e.accountUpdate(acc, positions))
}

func (e *Engine) accountUpdate(acc *models.MAccount, positions []models.MPosition) models.MAccountUpdate {
	return models.MAccountUpdate{
		Balance:          acc.Balance,
		Equity:           acc.Equity,
		Margin:           acc.Margin,
		MarginFree:       acc.MarginFree,
		TotalProfit:      acc.Profit,
		UnrealizedProfit: core.Round(core.UnrealizedProfit(positions), 2),
		OpenPositions:    len(positions),
		Timestamp:        e.Now().Unix(),
	}
}

// -----------------------------------------------------------------------------
// Payload builders
// -----------------------------------------------------------------------------

func (e *Engine) positionData(pos models.MPosition) models.MTradeData {
	data := models.MTradeData{
		ID:            pos.Ticket,
		Ticket:        pos.Ticket,
		Time:          pos.OpenTime,
		Symbol:        pos.Symbol,
		Side:          pos.Side,
		Volume:        pos.Volume,
		EntryPrice:    pos.OpenPrice,
		CurrentPrice:  pos.CurrentPrice,
		StopLoss:      pos.StopLoss,
		TakeProfit:    pos.TakeProfit,
		Profit:        core.NetProfit(pos.Profit, pos.Commission, pos.Swap),
		RawProfit:     pos.Profit,
		Commission:    pos.Commission,
		Swap:          pos.Swap,
		ChangePercent: core.Round(core.SidedChangePercent(pos.Side, pos.OpenPrice, pos.CurrentPrice), 2),
		Comment:       pos.Comment,
		Magic:         pos.Magic,
		IsOpen:        true,
	}
	setBot(&data, reconcile.AttributeBot(pos.Magic, pos.Comment, e.Attributor.Bots, e.Attributor.Rules))
	return data
}

func closedTradeData(t models.MClosedTrade) models.MTradeData {
	data := models.MTradeData{
		ID:            t.Ticket,
		Ticket:        t.Ticket,
		Time:          t.EntryTime,
		CloseTime:     t.ExitTime,
		Symbol:        t.Symbol,
		Side:          t.Side,
		Volume:        t.Volume,
		EntryPrice:    t.EntryPrice,
		ExitPrice:     t.ExitPrice,
		CurrentPrice:  t.ExitPrice,
		StopLoss:      t.StopLoss,
		TakeProfit:    t.TakeProfit,
		Profit:        t.Profit,
		RawProfit:     t.RawProfit,
		Commission:    t.Commission,
		Swap:          t.Swap,
		ChangePercent: t.ChangePercent,
		Comment:       t.Comment,
		Magic:         t.Magic,
		JustClosed:    true,
		Estimated:     t.Estimated,
	}
	setBot(&data, t.Bot)
	return data
}

func setBot(data *models.MTradeData, bot *models.MBotAttribution) {
	if bot == nil {
		return
	}
	data.BotID = bot.BotID
	data.BotName = bot.BotName
	data.IsBotTrade = true
}
