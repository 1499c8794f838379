package grpc_control

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"terminal-bridge/src/logger"
	"terminal-bridge/src/models"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func newTestService() *ControlService {
	return NewControlService(&models.MConfig{}, logger.NewLoggerTo(io.Discard, nil, "grpc"))
}

func check(t *testing.T, s *ControlService, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := s.Health.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("check %q: %v", service, err)
	}
	return resp.Status
}

func TestTerminalStatusFollowsConnection(t *testing.T) {
	s := newTestService()

	if st := check(t, s, ""); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected overall SERVING, got %v", st)
	}
	if st := check(t, s, TerminalService); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected terminal NOT_SERVING before first poll, got %v", st)
	}

	s.SetTerminalConnected(true)
	if st := check(t, s, TerminalService); st != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected terminal SERVING, got %v", st)
	}

	s.SetTerminalConnected(false)
	if st := check(t, s, TerminalService); st != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Fatalf("expected terminal NOT_SERVING, got %v", st)
	}
}

func TestServeOverBufconn(t *testing.T) {
	s := newTestService()
	s.SetTerminalConnected(true)

	lis := bufconn.Listen(1 << 20)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	defer conn.Close()

	callCtx, callCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer callCancel()
	resp, err := healthpb.NewHealthClient(conn).Check(callCtx, &healthpb.HealthCheckRequest{Service: TerminalService})
	if err != nil {
		t.Fatalf("remote check: %v", err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("expected SERVING, got %v", resp.Status)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("expected Serve to return after cancel")
	}
}
