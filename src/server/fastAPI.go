package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/metrics"
	"terminal-bridge/src/models"
	"terminal-bridge/src/reconcile"

	"github.com/gin-gonic/gin"
)

// BridgeAPI is what the HTTP layer needs from the engine.
type BridgeAPI interface {
	interfaces.IClientHandler
	Connected(ctx context.Context) bool
	LastPriceUpdate() time.Time
	Account(ctx context.Context) (models.MAccountUpdate, error)
	RecordExecution(ctx context.Context, report models.MExecutionReport) error
}

// -----------------------------------------------------------------------------
// FastAPIServer
// -----------------------------------------------------------------------------

type FastAPIServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Bridge  BridgeAPI
	Store   interfaces.ITradeStore
	Bots    *reconcile.BotRegistry
	Metrics *metrics.Metrics

	router *gin.Engine

	// WebSocket clients
	clientsMu  sync.RWMutex
	clients    map[string]*Client
	broadcast  chan []byte
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewFastAPIServer(cfg *models.MConfig, bridge BridgeAPI, store interfaces.ITradeStore, bots *reconcile.BotRegistry, m *metrics.Metrics, logger *logger.Logger) *FastAPIServer {
	if strings.ToUpper(cfg.LogLevel) != "DEBUG" {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &FastAPIServer{
		Config:     cfg,
		Logger:     logger,
		Bridge:     bridge,
		Store:      store,
		Bots:       bots,
		Metrics:    m,
		router:     gin.Default(),
		clients:    make(map[string]*Client),
		broadcast:  make(chan []byte, 256),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}

	// CORS for local dashboards
	s.router.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	go s.handleWebsockets()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *FastAPIServer) setupRoutes() {
	api := s.router.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/config", s.getConfig)
	api.GET("/account", s.getAccount)
	api.GET("/trades", s.listTrades)
	api.GET("/trades/:ticket", s.getTrade)
	api.GET("/bots", s.listBots)
	api.POST("/bots", s.registerBot)
	api.DELETE("/bots/:id", s.unregisterBot)
	api.POST("/executions", s.postExecution)

	if s.Config.MetricsEnabled && s.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.Metrics.Handler()))
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *FastAPIServer) Handler() http.Handler {
	return s.router
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start serves HTTP until ctx is cancelled, then shuts down gracefully.
func (s *FastAPIServer) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("Starting server on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		s.Stop()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Stop()
	s.Logger.Info("Server stopped")
	return err
}

// -----------------------------------------------------------------------------

// Stop disconnects every client and ends the hub loop.
func (s *FastAPIServer) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)
		s.clientsMu.Lock()
		for id, c := range s.clients {
			delete(s.clients, id)
			close(c.send)
		}
		s.clientsMu.Unlock()
	})
}
