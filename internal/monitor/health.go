package monitor

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/monitoring"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

// Health service names.
const (
	RunnerService   = "gesturelife.Runner"
	DetectorService = "gesturelife.Detector"
)

// HealthConfig contains configuration for a HealthServer.
type HealthConfig struct {
	Address string
	// StaleAfter marks the runner NOT_SERVING when no snapshot has been
	// observed for this long (default 2s).
	StaleAfter time.Duration
	// CheckInterval is how often liveness is re-evaluated (default 1s).
	CheckInterval time.Duration
	// DetectorCheck, when set, is probed every CheckInterval and drives
	// the DetectorService status.
	DetectorCheck func(context.Context) error
	Clock         timeutil.Clock
}

// HealthServer exposes grpc.health.v1 for the runner and, optionally, the
// hand detector. It implements control.Observer to track runner liveness.
type HealthServer struct {
	cfg      HealthConfig
	listener net.Listener
	grpc     *grpc.Server
	health   *health.Server

	mu       sync.Mutex
	lastSeen time.Time
}

// NewHealthServer listens on cfg.Address and registers the health service.
// Every service starts NOT_SERVING except the overall "" status.
func NewHealthServer(cfg HealthConfig) (*HealthServer, error) {
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 2 * time.Second
	}
	if cfg.CheckInterval <= 0 {
		cfg.CheckInterval = time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = timeutil.RealClock{}
	}

	listener, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", cfg.Address, err)
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(RunnerService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	if cfg.DetectorCheck != nil {
		healthServer.SetServingStatus(DetectorService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
	}

	return &HealthServer{
		cfg:      cfg,
		listener: listener,
		grpc:     grpcServer,
		health:   healthServer,
	}, nil
}

// Addr returns the listener address.
func (s *HealthServer) Addr() string {
	return s.listener.Addr().String()
}

// Observe records that the runner is publishing.
func (s *HealthServer) Observe(control.Snapshot) {
	now := s.cfg.Clock.Now()
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

// check re-evaluates every service status.
func (s *HealthServer) check(ctx context.Context) {
	s.mu.Lock()
	last := s.lastSeen
	s.mu.Unlock()

	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if !last.IsZero() && s.cfg.Clock.Since(last) <= s.cfg.StaleAfter {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus(RunnerService, status)

	if s.cfg.DetectorCheck == nil {
		return
	}
	checkCtx, cancel := context.WithTimeout(ctx, s.cfg.CheckInterval)
	defer cancel()
	if err := s.cfg.DetectorCheck(checkCtx); err != nil {
		monitoring.Logf("detector health: %v", err)
		s.health.SetServingStatus(DetectorService, grpc_health_v1.HealthCheckResponse_NOT_SERVING)
		return
	}
	s.health.SetServingStatus(DetectorService, grpc_health_v1.HealthCheckResponse_SERVING)
}

// Serve runs the gRPC server and the liveness checks until ctx is
// cancelled.
func (s *HealthServer) Serve(ctx context.Context) error {
	monitoring.Logf("gRPC health server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpc.Serve(s.listener)
	}()

	ticker := s.cfg.Clock.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()
	s.check(ctx)

	for {
		select {
		case <-ctx.Done():
			s.health.Shutdown()
			s.grpc.GracefulStop()
			err := <-serveErr
			if err == nil || errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serve gRPC: %w", err)
		case err := <-serveErr:
			if err == nil || errors.Is(err, grpc.ErrServerStopped) {
				return nil
			}
			return fmt.Errorf("serve gRPC: %w", err)
		case <-ticker.C():
			s.check(ctx)
		}
	}
}

// Close stops a server that was never served.
func (s *HealthServer) Close() {
	s.grpc.Stop()
	_ = s.listener.Close()
}
