package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"
)

// Terminal order and deal type codes.
const (
	orderTypeBuy  = 0
	orderTypeSell = 1

	dealEntryIn    = 0
	dealEntryOut   = 1
	dealEntryInOut = 2
	dealEntryOutBy = 3
)

// Timestamps above this are milliseconds.
const maxSecondsTimestamp = 9999999999

// TerminalSource polls the HTTP bridge that fronts the trading terminal.
type TerminalSource struct {
	BaseURL string
	Network interfaces.INetworkManager
	Logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewTerminalSource(cfg *models.MConfig, netMgr interfaces.INetworkManager, log *logger.Logger) *TerminalSource {
	return &TerminalSource{
		BaseURL: strings.TrimRight(cfg.Terminal.BaseURL, "/"),
		Network: netMgr,
		Logger:  log,
	}
}

// -----------------------------------------------------------------------------
// Wire structures
// -----------------------------------------------------------------------------

type terminalInfo struct {
	Connected bool `json:"connected"`
}

type ratesResponse struct {
	Rates []json.RawMessage `json:"rates"`
}

type terminalPosition struct {
	Ticket       int64   `json:"ticket"`
	Symbol       string  `json:"symbol"`
	Type         int     `json:"type"`
	Volume       float64 `json:"volume"`
	PriceOpen    float64 `json:"price_open"`
	PriceCurrent float64 `json:"price_current"`
	SL           float64 `json:"sl"`
	TP           float64 `json:"tp"`
	Profit       float64 `json:"profit"`
	Swap         float64 `json:"swap"`
	Commission   float64 `json:"commission"`
	Time         int64   `json:"time"`
	Magic        int64   `json:"magic"`
	Comment      string  `json:"comment"`
}

type positionsResponse struct {
	Positions []terminalPosition `json:"positions"`
}

type terminalDeal struct {
	Ticket     int64   `json:"ticket"`
	PositionID int64   `json:"position_id"`
	Symbol     string  `json:"symbol"`
	Type       int     `json:"type"`
	Entry      int     `json:"entry"`
	Volume     float64 `json:"volume"`
	Price      float64 `json:"price"`
	Profit     float64 `json:"profit"`
	Commission float64 `json:"commission"`
	Swap       float64 `json:"swap"`
	Time       int64   `json:"time"`
	Magic      int64   `json:"magic"`
	Comment    string  `json:"comment"`
}

type dealsResponse struct {
	Deals []terminalDeal `json:"deals"`
}

// -----------------------------------------------------------------------------
// IMarketSource
// -----------------------------------------------------------------------------

func (s *TerminalSource) IsConnected(ctx context.Context) bool {
	var info terminalInfo
	if err := s.getJSON(ctx, "/terminal", nil, &info); err != nil {
		return false
	}
	return info.Connected
}

// -----------------------------------------------------------------------------

// GetLatestBars fetches rates as [time, open, high, low, close, tick_volume]
// arrays. Rows with fewer than five fields are dropped.
func (s *TerminalSource) GetLatestBars(ctx context.Context, symbol, timeframe string, count int) ([]models.MCandle, error) {
	var resp ratesResponse
	params := map[string]string{
		"symbol":    symbol,
		"timeframe": timeframe,
		"count":     strconv.Itoa(count),
	}
	if err := s.getJSON(ctx, "/rates", params, &resp); err != nil {
		return nil, err
	}
	if resp.Rates == nil {
		return nil, helpers.NewSourceUnavailable(fmt.Sprintf("rates %s %s", symbol, timeframe), nil)
	}

	candles := make([]models.MCandle, 0, len(resp.Rates))
	for i, raw := range resp.Rates {
		c, err := ParseBar(raw)
		if err != nil {
			s.Logger.Debug("Dropping %s %s bar %d: %v", symbol, timeframe, i, err)
			continue
		}
		c.Timeframe = timeframe
		candles = append(candles, c)
	}
	if len(candles) == 0 {
		return nil, helpers.NewMalformedBar("no valid %s %s bars in response", symbol, timeframe)
	}
	return candles, nil
}

// -----------------------------------------------------------------------------

func (s *TerminalSource) GetOpenPositions(ctx context.Context) ([]models.MPosition, error) {
	var resp positionsResponse
	if err := s.getJSON(ctx, "/positions", nil, &resp); err != nil {
		return nil, err
	}
	if resp.Positions == nil {
		return nil, helpers.NewSourceUnavailable("positions", nil)
	}

	out := make([]models.MPosition, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		out = append(out, models.MPosition{
			Ticket:       p.Ticket,
			Symbol:       p.Symbol,
			Side:         sideFromType(p.Type),
			Volume:       p.Volume,
			OpenPrice:    p.PriceOpen,
			CurrentPrice: p.PriceCurrent,
			StopLoss:     p.SL,
			TakeProfit:   p.TP,
			Profit:       p.Profit,
			Swap:         p.Swap,
			Commission:   p.Commission,
			OpenTime:     normalizeTimestamp(p.Time),
			Magic:        p.Magic,
			Comment:      p.Comment,
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

// GetDealsInRange returns buy and sell deals only; balance and credit
// operations are skipped.
func (s *TerminalSource) GetDealsInRange(ctx context.Context, from, to time.Time) ([]models.MDeal, error) {
	var resp dealsResponse
	params := map[string]string{
		"from": strconv.FormatInt(from.Unix(), 10),
		"to":   strconv.FormatInt(to.Unix(), 10),
	}
	if err := s.getJSON(ctx, "/deals", params, &resp); err != nil {
		return nil, err
	}
	if resp.Deals == nil {
		return nil, helpers.NewSourceUnavailable("deals", nil)
	}

	out := make([]models.MDeal, 0, len(resp.Deals))
	for _, d := range resp.Deals {
		if d.Type != orderTypeBuy && d.Type != orderTypeSell {
			continue
		}
		out = append(out, models.MDeal{
			Ticket:     d.Ticket,
			PositionID: d.PositionID,
			Symbol:     d.Symbol,
			Side:       sideFromType(d.Type),
			Entry:      entryFromCode(d.Entry),
			Volume:     d.Volume,
			Price:      d.Price,
			Profit:     d.Profit,
			Commission: d.Commission,
			Swap:       d.Swap,
			Time:       normalizeTimestamp(d.Time),
			Magic:      d.Magic,
			Comment:    d.Comment,
		})
	}
	return out, nil
}

// -----------------------------------------------------------------------------

func (s *TerminalSource) GetAccountInfo(ctx context.Context) (*models.MAccount, error) {
	var acc models.MAccount
	if err := s.getJSON(ctx, "/account", nil, &acc); err != nil {
		return nil, err
	}
	return &acc, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func (s *TerminalSource) getJSON(ctx context.Context, path string, params map[string]string, out interface{}) error {
	body, err := s.Network.Get(ctx, s.BaseURL+path, params)
	if err != nil {
		return helpers.NewSourceUnavailable(path, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return helpers.NewSourceUnavailable(path, fmt.Errorf("decode: %w", err))
	}
	return nil
}

// -----------------------------------------------------------------------------

// ParseBar decodes one rates row. It fails with a MalformedBarError when the
// row has fewer than five fields or non-numeric values.
func ParseBar(raw json.RawMessage) (models.MCandle, error) {
	var fields []json.Number
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return models.MCandle{}, helpers.NewMalformedBar("bar is not a numeric array: %v", err)
	}
	if len(fields) < 5 {
		return models.MCandle{}, helpers.NewMalformedBar("bar has %d fields, need at least 5", len(fields))
	}

	ts, err := fields[0].Float64()
	if err != nil {
		return models.MCandle{}, helpers.NewMalformedBar("bad bar time %q", fields[0])
	}
	values := make([]float64, 4)
	for i := range values {
		if values[i], err = fields[i+1].Float64(); err != nil {
			return models.MCandle{}, helpers.NewMalformedBar("bad bar field %d %q", i+1, fields[i+1])
		}
	}

	c := models.MCandle{
		Time:  normalizeTimestamp(int64(ts)),
		Open:  values[0],
		High:  values[1],
		Low:   values[2],
		Close: values[3],
	}
	if len(fields) > 5 {
		c.Volume, _ = fields[5].Float64()
	}
	return c, nil
}

// -----------------------------------------------------------------------------

func normalizeTimestamp(ts int64) int64 {
	if ts > maxSecondsTimestamp {
		return ts / 1000
	}
	return ts
}

func sideFromType(t int) string {
	if t == orderTypeSell {
		return models.SideSell
	}
	return models.SideBuy
}

func entryFromCode(code int) string {
	switch code {
	case dealEntryIn:
		return models.DealEntryIn
	case dealEntryOut, dealEntryOutBy:
		return models.DealEntryOut
	case dealEntryInOut:
		return models.DealEntryInOut
	}
	return ""
}
