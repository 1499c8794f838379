package grpc_control

import (
	"context"
	"fmt"
	"net"

	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

// TerminalService is the health service name orchestrators probe for terminal readiness.
const TerminalService = "terminal_bridge.Terminal"

// ControlService exposes the standard gRPC health protocol. The overall
// status tracks process liveness; TerminalService tracks the terminal link.
type ControlService struct {
	Config *models.MConfig
	Logger *logger.Logger
	Health *health.Server

	server *grpc.Server
}

// NewControlService creates a new instance of ControlService
func NewControlService(cfg *models.MConfig, log *logger.Logger) *ControlService {
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(TerminalService, healthpb.HealthCheckResponse_NOT_SERVING)

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	return &ControlService{
		Config: cfg,
		Logger: log,
		Health: hs,
		server: srv,
	}
}

// -----------------------------------------------------------------------------

// SetTerminalConnected is registered as a connection listener on the terminal source.
func (s *ControlService) SetTerminalConnected(connected bool) {
	st := healthpb.HealthCheckResponse_NOT_SERVING
	if connected {
		st = healthpb.HealthCheckResponse_SERVING
	}
	s.Health.SetServingStatus(TerminalService, st)
	s.Logger.Debug("gRPC: %s is now %s", TerminalService, st)
}

// -----------------------------------------------------------------------------

// Start listens on the configured gRPC address until ctx is done.
func (s *ControlService) Start(ctx context.Context) error {
	port := s.Config.GrpcPort
	if port == 0 {
		port = 50051
	}
	addr := fmt.Sprintf("%s:%d", s.Config.GrpcHost, port)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for gRPC on %s: %w", addr, err)
	}

	s.Logger.Info("Starting gRPC Control Server on %s", addr)
	return s.Serve(ctx, lis)
}

// Serve blocks on lis and stops gracefully when ctx is done.
func (s *ControlService) Serve(ctx context.Context, lis net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(lis)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		s.Health.Shutdown()
		s.server.GracefulStop()
		<-errCh
		return nil
	}
}
