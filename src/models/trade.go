package models

// -----------------------------------------------------------------------------
// Bot Attribution
// -----------------------------------------------------------------------------

type MBotAttribution struct {
	BotID       string `json:"bot_id"`
	BotName     string `json:"bot_name"`
	MagicNumber int64  `json:"magic_number"`
}

// MBotInfo is a live bot registration.
type MBotInfo struct {
	BotID        string `json:"bot_id"`
	Name         string `json:"name"`
	Strategy     string `json:"strategy"`
	MagicNumber  int64  `json:"magic_number"`
	RegisteredAt int64  `json:"registered_at"`
}

// -----------------------------------------------------------------------------
// Closed Trades
// -----------------------------------------------------------------------------

// MClosedTrade is a position joined with its closing deal, or an estimate of it.
type MClosedTrade struct {
	Ticket        int64            `json:"ticket"`
	Symbol        string           `json:"symbol"`
	Side          string           `json:"type"`
	Volume        float64          `json:"volume"`
	EntryPrice    float64          `json:"entry_price"`
	ExitPrice     float64          `json:"exit_price"`
	StopLoss      float64          `json:"sl"`
	TakeProfit    float64          `json:"tp"`
	EntryTime     int64            `json:"time"`
	ExitTime      int64            `json:"close_time"`
	RawProfit     float64          `json:"raw_profit"`
	Commission    float64          `json:"commission"`
	Swap          float64          `json:"swap"`
	Profit        float64          `json:"profit"`
	ChangePercent float64          `json:"change_percent"`
	Magic         int64            `json:"magic"`
	Comment       string           `json:"comment"`
	DealTicket    int64            `json:"deal_ticket,omitempty"`
	Estimated     bool             `json:"estimated"`
	Bot           *MBotAttribution `json:"bot,omitempty"`
}

// -----------------------------------------------------------------------------

// MTradeRecord is the persisted row for one closed ticket.
type MTradeRecord struct {
	Ticket        int64   `json:"ticket"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"type"`
	Volume        float64 `json:"volume"`
	EntryPrice    float64 `json:"entry_price"`
	StopLoss      float64 `json:"sl"`
	TakeProfit    float64 `json:"tp"`
	EntryTime     int64   `json:"entry_time"`
	ExitPrice     float64 `json:"exit_price"`
	ExitTime      int64   `json:"exit_time"`
	ProfitLoss    float64 `json:"profit_loss"`
	ChangePercent float64 `json:"change_percent"`
	BotID         string  `json:"bot_id,omitempty"`
	BotName       string  `json:"bot_name,omitempty"`
	Estimated     bool    `json:"estimated"`
}

// NewTradeRecord flattens a closed trade into its persisted form.
func NewTradeRecord(t MClosedTrade) MTradeRecord {
	rec := MTradeRecord{
		Ticket:        t.Ticket,
		Symbol:        t.Symbol,
		Side:          t.Side,
		Volume:        t.Volume,
		EntryPrice:    t.EntryPrice,
		StopLoss:      t.StopLoss,
		TakeProfit:    t.TakeProfit,
		EntryTime:     t.EntryTime,
		ExitPrice:     t.ExitPrice,
		ExitTime:      t.ExitTime,
		ProfitLoss:    t.Profit,
		ChangePercent: t.ChangePercent,
		Estimated:     t.Estimated,
	}
	if t.Bot != nil {
		rec.BotID = t.Bot.BotID
		rec.BotName = t.Bot.BotName
	}
	return rec
}

// -----------------------------------------------------------------------------
// Configuration Snapshots
// -----------------------------------------------------------------------------

// MBotMeta identifies the bot behind a ticket.
type MBotMeta struct {
	UserID      string `json:"user_id"`
	BotID       string `json:"bot_id"`
	BotName     string `json:"bot_name"`
	Strategy    string `json:"strategy"`
	MagicNumber int64  `json:"magic_number"`
	EntryTime   int64  `json:"entry_time"`
}

// MTradeConfigSnapshot holds the bot settings in force when a ticket was opened.
// Nil fields are unknown; outcome fields are nil until the trade closes.
type MTradeConfigSnapshot struct {
	MaxRiskPerTrade      *float64 `json:"max_risk_per_trade,omitempty"`
	TradeSizeUSD         *float64 `json:"trade_size_usd,omitempty"`
	Leverage             *float64 `json:"leverage,omitempty"`
	AssetType            *string  `json:"asset_type,omitempty"`
	RiskRewardRatio      *float64 `json:"risk_reward_ratio,omitempty"`
	StopLossPips         *float64 `json:"stop_loss_pips,omitempty"`
	TakeProfitPips       *float64 `json:"take_profit_pips,omitempty"`
	MaxLossThreshold     *float64 `json:"max_loss_threshold,omitempty"`
	EntryTrigger         *string  `json:"entry_trigger,omitempty"`
	ExitTrigger          *string  `json:"exit_trigger,omitempty"`
	MaxDailyTrades       *int64   `json:"max_daily_trades,omitempty"`
	TimeWindow           *string  `json:"time_window,omitempty"`
	RsiPeriod            *int64   `json:"rsi_period,omitempty"`
	MovingAveragePeriod  *int64   `json:"moving_average_period,omitempty"`
	BollingerBandsPeriod *int64   `json:"bollinger_bands_period,omitempty"`
	BBDeviation          *float64 `json:"bb_deviation,omitempty"`
	AutoStopEnabled      *bool    `json:"auto_stop_enabled,omitempty"`
	MaxConsecutiveLosses *int64   `json:"max_consecutive_losses,omitempty"`
	AutoTradingEnabled   *bool    `json:"auto_trading_enabled,omitempty"`

	ProfitLoss    *float64 `json:"profit_loss,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
}

// MTradeConfigRecord is a stored snapshot row.
type MTradeConfigRecord struct {
	Ticket int64 `json:"ticket"`
	MBotMeta
	MTradeConfigSnapshot
}

// MExecutionReport is posted by a bot after it places an order.
type MExecutionReport struct {
	Ticket int64                `json:"ticket" binding:"required"`
	Bot    MBotMeta             `json:"bot"`
	Config MTradeConfigSnapshot `json:"config"`
}
