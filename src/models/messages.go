package models

// -----------------------------------------------------------------------------
// Push Channel Events
// -----------------------------------------------------------------------------

const (
	EventPriceUpdate         = "price_update"
	EventTradeUpdate         = "trade_update"
	EventAccountUpdate       = "account_update"
	EventConnectionStatus    = "connection_status"
	EventRefreshTradeHistory = "refresh_trade_history"
	EventConnectionAck       = "connection_ack"
	EventTimeframeSet        = "timeframe_set"
	EventUpdateRequested     = "update_requested"
	EventPong                = "pong_client"
)

// Client to server commands.
const (
	CommandSetTimeframe    = "set_timeframe"
	CommandRequestUpdate   = "request_update"
	CommandCheckConnection = "check_connection"
	CommandPing            = "ping"
)

const (
	TradePositionOpened  = "position_opened"
	TradePositionUpdated = "position_updated"
	TradePositionClosed  = "position_closed"
)

const (
	StatusConnected    = "connected"
	StatusDisconnected = "disconnected"
	StatusMarketClosed = "market_closed"
)

// MEnvelope is the wire frame for every websocket message in both directions.
type MEnvelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data,omitempty"`
}

// MClientCommand is an inbound frame before its data is decoded.
type MClientCommand struct {
	Event string `json:"event"`
	Data  struct {
		Timeframe string `json:"timeframe"`
	} `json:"data"`
}

// -----------------------------------------------------------------------------

// MTradeData is the trade_update payload for one position.
type MTradeData struct {
	ID            int64   `json:"id"`
	Ticket        int64   `json:"ticket"`
	Time          int64   `json:"time"`
	CloseTime     int64   `json:"close_time,omitempty"`
	Symbol        string  `json:"symbol"`
	Side          string  `json:"type"`
	Volume        float64 `json:"volume"`
	EntryPrice    float64 `json:"entry_price"`
	ExitPrice     float64 `json:"exit_price,omitempty"`
	CurrentPrice  float64 `json:"current_price"`
	StopLoss      float64 `json:"sl"`
	TakeProfit    float64 `json:"tp"`
	Profit        float64 `json:"profit"`
	RawProfit     float64 `json:"raw_profit"`
	Commission    float64 `json:"commission"`
	Swap          float64 `json:"swap"`
	ChangePercent float64 `json:"change_percent"`
	Comment       string  `json:"comment"`
	Magic         int64   `json:"magic"`
	IsOpen        bool    `json:"is_open"`
	JustClosed    bool    `json:"just_closed,omitempty"`
	Estimated     bool    `json:"estimated,omitempty"`
	BotID         string  `json:"bot_id,omitempty"`
	BotName       string  `json:"bot_name,omitempty"`
	IsBotTrade    bool    `json:"is_bot_trade"`
}

type MTradeUpdate struct {
	Type      string     `json:"type"`
	Data      MTradeData `json:"data"`
	Timestamp int64      `json:"timestamp"`
}

type MAccountUpdate struct {
	Balance          float64 `json:"balance"`
	Equity           float64 `json:"equity"`
	Margin           float64 `json:"margin"`
	MarginFree       float64 `json:"margin_free"`
	TotalProfit      float64 `json:"total_profit"`
	UnrealizedProfit float64 `json:"unrealized_profit"`
	OpenPositions    int     `json:"open_positions"`
	Timestamp        int64   `json:"timestamp"`
}

type MConnectionStatus struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

type MRefreshTradeHistory struct {
	Reason     string `json:"reason"`
	DealTicket int64  `json:"deal_ticket"`
	Timestamp  int64  `json:"timestamp"`
}

type MConnectionAck struct {
	Status            string `json:"status"`
	ClientID          string `json:"client_id"`
	Symbol            string `json:"symbol"`
	Timeframe         string `json:"timeframe"`
	TerminalConnected bool   `json:"terminal_connected"`
}

type MTimeframeAck struct {
	Status    string `json:"status"`
	Timeframe string `json:"timeframe"`
}

type MPong struct {
	Timestamp int64 `json:"timestamp"`
}
