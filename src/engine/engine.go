package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"terminal-bridge/src/analysis"
	"terminal-bridge/src/config"
	"terminal-bridge/src/helpers"
	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/metrics"
	"terminal-bridge/src/models"
	"terminal-bridge/src/reconcile"
	"terminal-bridge/src/subscription"
	"terminal-bridge/src/utils"

	"golang.org/x/sync/errgroup"
)

const (
	loopPrice    = "price_loop"
	loopTrade    = "trade_loop"
	loopDealScan = "deal_scan_loop"
)

// errDisconnected ends a cycle early while the terminal is unreachable.
var errDisconnected = errors.New("terminal disconnected")

// Engine owns every piece of mutable bridge state for one symbol and runs the
// polling loops over it.
type Engine struct {
	Config *models.MConfig
	Logger *logger.Logger

	Source  interfaces.IMarketSource
	Store   interfaces.ITradeStore
	Bots    *reconcile.BotRegistry
	Gate    *utils.MarketGate
	Metrics *metrics.Metrics

	Registry   *subscription.Registry
	Throttle   *subscription.Throttle
	Aggregator *analysis.CandleAggregator
	Reconciler *reconcile.PositionReconciler
	Attributor *reconcile.DealAttributor
	Processed  *reconcile.ProcessedDealSet
	Errors     *helpers.ErrorHandler

	Now func() time.Time

	distMu      sync.RWMutex
	distributor interfaces.IDistributor

	stateMu         sync.Mutex
	baseCtx         context.Context
	lastPriceUpdate time.Time
	lastFullScan    time.Time
	dealsSeeded     bool
	activity        activityCounters
	lastActivityLog time.Time

	// Closes waiting on deal history, and closed trades the store rejected.
	pendingMu      sync.Mutex
	pendingClose   map[int64]models.MPosition
	pendingPersist map[int64]models.MClosedTrade

	// Closing deals of positions still open at scan time. Kept apart from
	// Processed so the snapshot path can still attribute them.
	partialDeals *reconcile.BoundedSet[int64]
}

type activityCounters struct {
	cycles    int
	emissions int
}

// -----------------------------------------------------------------------------

// NewEngine wires the reconciliation components from configuration.
func NewEngine(cfg *models.MConfig, source interfaces.IMarketSource, store interfaces.ITradeStore, bots *reconcile.BotRegistry, gate *utils.MarketGate, m *metrics.Metrics, log *logger.Logger) *Engine {
	processed := reconcile.NewProcessedDealSet(cfg.Deals.MaxProcessed, cfg.Deals.TrimTo)
	rules := reconcile.AttributionRules{
		CommentPrefix: cfg.Bots.CommentPrefix,
		MagicMin:      cfg.Bots.MagicMin,
		MagicMax:      cfg.Bots.MagicMax,
	}

	var directory interfaces.IBotDirectory
	if bots != nil {
		directory = bots
	}

	return &Engine{
		Config:  cfg,
		Logger:  log,
		Source:  source,
		Store:   store,
		Bots:    bots,
		Gate:    gate,
		Metrics: m,

		Registry: subscription.NewRegistry(),
		Throttle: subscription.NewThrottle(map[subscription.Kind]time.Duration{
			subscription.KindPrice:   config.Millis(cfg.Throttle.PriceMs),
			subscription.KindRefresh: config.Millis(cfg.Throttle.RefreshMs),
			subscription.KindStatus:  config.Millis(cfg.Throttle.StatusMs),
		}),
		Aggregator: analysis.NewCandleAggregator(source, cfg.Symbol, cfg.Timeframes, log.Named("CandleAggregator")),
		Reconciler: reconcile.NewPositionReconciler(cfg.Deals.MaxProcessed, cfg.Deals.TrimTo),
		Attributor: reconcile.NewDealAttributor(source, processed, directory, rules, cfg.Deals.EstimateContractSize),
		Processed:  processed,
		Errors:     helpers.NewErrorHandler(log),
		Now:        time.Now,
		baseCtx:    context.Background(),

		pendingClose:   make(map[int64]models.MPosition),
		pendingPersist: make(map[int64]models.MClosedTrade),
		partialDeals:   reconcile.NewBoundedSet[int64](cfg.Deals.MaxProcessed, cfg.Deals.TrimTo),
	}
}

// -----------------------------------------------------------------------------

// SetDistributor attaches the push transport. Emissions before this are dropped.
func (e *Engine) SetDistributor(d interfaces.IDistributor) {
	e.distMu.Lock()
	defer e.distMu.Unlock()
	e.distributor = d
}

func (e *Engine) emitTo(clientID, event string, payload interface{}) bool {
	e.distMu.RLock()
	d := e.distributor
	e.distMu.RUnlock()
	if d == nil {
		return false
	}
	return d.EmitTo(clientID, event, payload)
}

func (e *Engine) broadcast(event string, payload interface{}) {
	e.distMu.RLock()
	d := e.distributor
	e.distMu.RUnlock()
	if d != nil {
		d.Broadcast(event, payload)
	}
}

// -----------------------------------------------------------------------------

// Run starts the price, trade and deal-scan loops and blocks until ctx ends.
func (e *Engine) Run(ctx context.Context) error {
	e.stateMu.Lock()
	e.baseCtx = ctx
	e.stateMu.Unlock()

	e.Logger.Info("Starting engine for %s (timeframes %v)", e.Config.Symbol, e.Config.Timeframes)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return e.runLoop(gctx, loopPrice, config.Millis(e.Config.Intervals.PricePollMs), e.PriceCycle)
	})
	g.Go(func() error {
		return e.runLoop(gctx, loopTrade, config.Millis(e.Config.Intervals.TradePollMs), e.TradeCycle)
	})
	g.Go(func() error {
		return e.runLoop(gctx, loopDealScan, config.Millis(e.Config.Intervals.DealScanMs), e.DealScanCycle)
	})
	return g.Wait()
}

// -----------------------------------------------------------------------------

// runLoop calls cycle until ctx is cancelled. A failing or panicking cycle is
// logged and followed by the error sleep; the loop itself never exits early.
func (e *Engine) runLoop(ctx context.Context, name string, interval time.Duration, cycle func(context.Context) error) error {
	for {
		err := e.Errors.RunCycle(name, func() error {
			err := cycle(ctx)
			if errors.Is(err, errDisconnected) {
				return nil
			}
			return err
		})

		wait := interval
		switch {
		case ctx.Err() != nil:
			e.Logger.Info("%s stopped", name)
			return nil
		case err != nil:
			e.Metrics.LoopError(name)
			wait = config.Millis(e.Config.Intervals.ErrorSleepMs)
		case !e.connectedHint():
			wait = config.Millis(e.Config.Intervals.DisconnectedSleepMs)
		}

		select {
		case <-ctx.Done():
			e.Logger.Info("%s stopped", name)
			return nil
		case <-time.After(wait):
		}
	}
}

// connectedHint returns the last observed connection state when the source
// tracks it, true otherwise.
func (e *Engine) connectedHint() bool {
	if m, ok := e.Source.(interface{ Connected() bool }); ok {
		return m.Connected()
	}
	return true
}

// -----------------------------------------------------------------------------

// requestContext bounds work started from client callbacks.
func (e *Engine) requestContext() (context.Context, context.CancelFunc) {
	e.stateMu.Lock()
	base := e.baseCtx
	e.stateMu.Unlock()
	return context.WithTimeout(base, time.Duration(e.Config.Network.RequestTimeout)*time.Second)
}

// -----------------------------------------------------------------------------

// LastPriceUpdate returns when a price update was last emitted to any client.
func (e *Engine) LastPriceUpdate() time.Time {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.lastPriceUpdate
}

// Connected polls the terminal connection.
func (e *Engine) Connected(ctx context.Context) bool {
	return e.Source.IsConnected(ctx)
}

// Account returns the current account summary with unrealized profit.
func (e *Engine) Account(ctx context.Context) (models.MAccountUpdate, error) {
	acc, err := e.Source.GetAccountInfo(ctx)
	if err != nil {
		return models.MAccountUpdate{}, err
	}
	return e.accountUpdate(acc, e.Reconciler.Open()), nil
}
