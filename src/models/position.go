package models

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)

// OppositeSide returns the closing side for a position side.
func OppositeSide(side string) string {
	if side == SideBuy {
		return SideSell
	}
	return SideBuy
}

// -----------------------------------------------------------------------------

// MPosition is one open position as reported by the terminal.
type MPosition struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Side         string  `json:"type"`
	Volume       float64 `json:"volume"`
	OpenPrice    float64 `json:"price_open"`
	CurrentPrice float64 `json:"price_current"`
	StopLoss     float64 `json:"sl"`
	TakeProfit   float64 `json:"tp"`
	Profit       float64 `json:"profit"`
	Swap         float64 `json:"swap"`
	Commission   float64 `json:"commission"`
	OpenTime     int64   `json:"time"`
	Magic        int64   `json:"magic"`
	Comment      string  `json:"comment"`
}

// -----------------------------------------------------------------------------

const (
	DealEntryIn    = "IN"
	DealEntryOut   = "OUT"
	DealEntryInOut = "INOUT"
)

// MDeal is one executed fill. PositionID links it to MPosition.Ticket.
type MDeal struct {
	Ticket     int64   `json:"ticket"`
	PositionID int64   `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"type"`
	Entry      string  `json:"entry"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Time       int64   `json:"time"`
	Magic      int64   `json:"magic"`
	Comment    string  `json:"comment"`
}

// -----------------------------------------------------------------------------

// MAccount is the terminal's account summary.
type MAccount struct {
	Login      int64   `json:"login"`
	Balance    float64 `json:"balance"`
	Equity     float64 `json:"equity"`
	Margin     float64 `json:"margin"`
	MarginFree float64 `json:"margin_free"`
	Profit     float64 `json:"profit"`
	Currency   string  `json:"currency"`
}
