package server

import (
	"errors"
	"net/http"
	"strconv"

	"terminal-bridge/src/helpers"
	"terminal-bridge/src/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultTradeLimit = 100
	maxTradeLimit     = 1000
)

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

func (s *FastAPIServer) getHealth(c *gin.Context) {
	var latest int64
	if t := s.Bridge.LastPriceUpdate(); !t.IsZero() {
		latest = t.Unix()
	}

	c.JSON(http.StatusOK, gin.H{
		"status":             "ok",
		"connections":        s.ClientCount(),
		"terminal_connected": s.Bridge.Connected(c.Request.Context()),
		"latest_update":      latest,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"symbol":     s.Config.Symbol,
		"timeframes": s.Config.Timeframes,
	})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getAccount(c *gin.Context) {
	acc, err := s.Bridge.Account(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, acc)
}

// -----------------------------------------------------------------------------
// Trades
// -----------------------------------------------------------------------------

func (s *FastAPIServer) listTrades(c *gin.Context) {
	limit := queryInt(c, "limit", defaultTradeLimit)
	if limit <= 0 || limit > maxTradeLimit {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return
	}

	records, err := s.Store.ListTradeRecords(c.Request.Context(), limit)
	if err != nil {
		s.Logger.Error("List trades failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trades"})
		return
	}
	if records == nil {
		records = []models.MTradeRecord{}
	}
	c.JSON(http.StatusOK, gin.H{"trades": records, "count": len(records)})
}

// -----------------------------------------------------------------------------

func (s *FastAPIServer) getTrade(c *gin.Context) {
	ticket, err := strconv.ParseInt(c.Param("ticket"), 10, 64)
	if err != nil || ticket <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticket"})
		return
	}

	ctx := c.Request.Context()
	record, err := s.Store.GetTradeRecord(ctx, ticket)
	if err != nil {
		s.Logger.Error("Get trade %d failed: %v", ticket, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load trade"})
		return
	}
	if record == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "trade not found"})
		return
	}

	snapshot, err := s.Store.GetTradeConfigSnapshot(ctx, ticket)
	if err != nil {
		s.Logger.Warning("Configuration snapshot for %d unavailable: %v", ticket, err)
	}
	c.JSON(http.StatusOK, gin.H{"trade": record, "configuration": snapshot})
}

// -----------------------------------------------------------------------------
// Bots
// -----------------------------------------------------------------------------

type registerBotRequest struct {
	BotID       string `json:"bot_id" binding:"required"`
	Name        string `json:"name"`
	Strategy    string `json:"strategy"`
	MagicNumber int64  `json:"magic_number"`
}

func (s *FastAPIServer) listBots(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"bots": s.Bots.List()})
}

func (s *FastAPIServer) registerBot(c *gin.Context) {
	var req registerBotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	info, err := s.Bots.Register(req.BotID, req.Name, req.Strategy, req.MagicNumber)
	if err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	s.Logger.Info("Registered bot %s with magic %d", info.BotID, info.MagicNumber)
	c.JSON(http.StatusCreated, info)
}

func (s *FastAPIServer) unregisterBot(c *gin.Context) {
	id := c.Param("id")
	if !s.Bots.Unregister(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "bot not registered"})
		return
	}
	s.Logger.Info("Unregistered bot %s", id)
	c.JSON(http.StatusOK, gin.H{"status": "unregistered", "bot_id": id})
}

// -----------------------------------------------------------------------------
// Executions
// -----------------------------------------------------------------------------

func (s *FastAPIServer) postExecution(c *gin.Context) {
	var report models.MExecutionReport
	if err := c.ShouldBindJSON(&report); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := s.Bridge.RecordExecution(c.Request.Context(), report)
	var invalid *helpers.ValidationError
	switch {
	case errors.As(err, &invalid):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case err != nil:
		s.Logger.Error("Recording execution of %d failed: %v", report.Ticket, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to record execution"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "recorded", "ticket": report.Ticket})
	}
}

// -----------------------------------------------------------------------------

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}
