package main

import (
	datasource "terminal-bridge/src/data_source"
	"terminal-bridge/src/data_source/terminal"
	"terminal-bridge/src/engine"
	"terminal-bridge/src/grpc_control"
	"terminal-bridge/src/interfaces"
	"terminal-bridge/src/logger"
	"terminal-bridge/src/metrics"
	"terminal-bridge/src/models"
	"terminal-bridge/src/network"
	"terminal-bridge/src/reconcile"
	"terminal-bridge/src/server"
	"terminal-bridge/src/storage"
	"terminal-bridge/src/utils"
)

// bridge holds the wired components started by runServers.
type bridge struct {
	Engine  *engine.Engine
	Server  *server.FastAPIServer
	Control *grpc_control.ControlService
}

// -----------------------------------------------------------------------------

// setupDatabase initializes the trade store based on config
func setupDatabase(config *models.MConfig, appLogger *logger.Logger) (interfaces.ITradeStore, error) {
	var store interfaces.ITradeStore
	var err error

	switch config.Storage.DBType {
	case "postgres":
		store, err = storage.NewPostgresDB(config, appLogger.Named("PostgresDB"))
	default:
		store, err = storage.NewAsyncSQLiteDB(config, appLogger.Named("SQLiteDB"))
	}

	if err != nil {
		appLogger.Error("Failed to init db: %v", err)
		return nil, err
	}
	if err := store.Initialize(); err != nil {
		appLogger.Error("Failed to migrate db: %v", err)
		return nil, err
	}
	return store, nil
}

// -----------------------------------------------------------------------------

// setupSource builds the terminal client and wraps it with connection tracking
func setupSource(config *models.MConfig, appLogger *logger.Logger) *datasource.MonitoredSource {
	netMgr := network.NewAsyncNetworkManager(config, appLogger.Named("NetworkManager"))
	src := terminal.NewTerminalSource(config, netMgr, appLogger.Named("TerminalSource"))
	return datasource.NewMonitoredSource(src, appLogger.Named("TerminalLink"))
}

// -----------------------------------------------------------------------------

// setupBots loads the statically configured bots into a fresh registry
func setupBots(config *models.MConfig, appLogger *logger.Logger) *reconcile.BotRegistry {
	bots := reconcile.NewBotRegistry(config.Bots.MagicMin, config.Bots.MagicMax)
	for _, def := range config.Bots.Definitions {
		info, err := bots.Register(def.BotID, def.Name, def.Strategy, def.Magic)
		if err != nil {
			appLogger.Warning("Skipping bot definition %s: %v", def.BotID, err)
			continue
		}
		appLogger.Info("Pre-registered bot %s with magic %d", info.BotID, info.MagicNumber)
	}
	return bots
}

// -----------------------------------------------------------------------------

// setupBridge wires the source, engine and both servers together
func setupBridge(config *models.MConfig, store interfaces.ITradeStore, appLogger *logger.Logger) *bridge {
	m := metrics.NewMetrics()
	source := setupSource(config, appLogger)
	bots := setupBots(config, appLogger)
	gate := utils.NewMarketGate(config.MarketCalendar, appLogger.Named("MarketGate"))

	control := grpc_control.NewControlService(config, appLogger.Named("ControlService"))
	source.OnConnectionChange(m.SetConnected)
	source.OnConnectionChange(control.SetTerminalConnected)

	eng := engine.NewEngine(config, source, store, bots, gate, m, appLogger.Named("Engine"))
	srv := server.NewFastAPIServer(config, eng, store, bots, m, appLogger.Named("FastAPIServer"))
	eng.SetDistributor(srv)

	return &bridge{Engine: eng, Server: srv, Control: control}
}
