package main

import (
	"context"

	"terminal-bridge/src/logger"

	"golang.org/x/sync/errgroup"
)

// runServers runs the engine, the HTTP server and the gRPC control server
// until ctx is cancelled or one of them fails.
func runServers(ctx context.Context, app *bridge, appLogger *logger.Logger) error {
	g, gctx := errgroup.WithContext(ctx)

	// 1. Polling engine
	g.Go(func() error {
		return app.Engine.Run(gctx)
	})

	// 2. FastAPIServer (REST + websocket)
	g.Go(func() error {
		return app.Server.Start(gctx)
	})

	// 3. gRPC Control Server
	g.Go(func() error {
		return app.Control.Start(gctx)
	})

	appLogger.Info("Bridge running")
	return g.Wait()
}
