package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"terminal-bridge/src/config"
	"terminal-bridge/src/logger"
)

func main() {
	// 1. Parse command line flags
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	flag.Parse()

	// 2. Load config
	conf, err := config.NewConfig(*configPath)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	// 3. Setup Logger
	appLogger := logger.NewLogger(conf, conf.Name)

	// 4. Setup Components
	store, err := setupDatabase(conf.MConfig, appLogger)
	if err != nil {
		os.Exit(1)
	}
	defer store.Close()

	app := setupBridge(conf.MConfig, store, appLogger)

	// 5. Lifecycle Management
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 6. Run until a signal arrives or a server fails
	if err := runServers(ctx, app, appLogger); err != nil {
		appLogger.Error("Bridge stopped with error: %v", err)
		store.Close()
		os.Exit(1)
	}
	appLogger.Info("Shutdown complete.")
}
