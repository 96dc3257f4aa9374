package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/banshee-data/gesturelife/internal/control"
	"github.com/banshee-data/gesturelife/internal/timeutil"
)

func startHealth(t *testing.T, cfg HealthConfig) (*HealthServer, grpc_health_v1.HealthClient) {
	t.Helper()
	cfg.Address = "127.0.0.1:0"
	hs, err := NewHealthServer(cfg)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hs.Serve(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(3 * time.Second):
			t.Error("health server did not stop")
		}
	})

	conn, err := grpc.NewClient(hs.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return hs, grpc_health_v1.NewHealthClient(conn)
}

func status(t *testing.T, client grpc_health_v1.HealthClient, service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestHealthServer_RunnerLiveness(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	hs, client := startHealth(t, HealthConfig{Clock: clock, StaleAfter: 2 * time.Second, CheckInterval: time.Second})

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, client, ""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, client, RunnerService))

	hs.Observe(control.Snapshot{})
	hs.check(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, client, RunnerService))

	clock.Advance(5 * time.Second)
	hs.check(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, client, RunnerService))
}

func TestHealthServer_DetectorCheck(t *testing.T) {
	clock := timeutil.NewMockClock(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	var healthy atomic.Bool
	hs, client := startHealth(t, HealthConfig{
		Clock: clock,
		DetectorCheck: func(context.Context) error {
			if healthy.Load() {
				return nil
			}
			return errors.New("inference service down")
		},
	})

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, status(t, client, DetectorService))

	healthy.Store(true)
	hs.check(context.Background())
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, status(t, client, DetectorService))
}

func TestHealthServer_UnknownService(t *testing.T) {
	_, client := startHealth(t, HealthConfig{Clock: timeutil.NewMockClock(time.Now())})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: "nope"})
	require.Error(t, err)
}
