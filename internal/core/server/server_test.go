package server

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/windowkeeper/internal/core/config"
)

func TestNewGRPCServer_NilConfig(t *testing.T) {
	_, err := NewGRPCServer(nil)
	assert.Error(t, err)
}

func TestGRPCServer_Health(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0

	s, err := NewGRPCServer(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Listen())

	served := make(chan error, 1)
	go func() { served <- s.Start(context.Background()) }()

	conn, err := grpc.NewClient(s.Addr(), grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	defer conn.Close()
	client := grpc_health_v1.NewHealthClient(conn)

	check := func(service string) grpc_health_v1.HealthCheckResponse_ServingStatus {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		resp, err := client.Check(ctx, &grpc_health_v1.HealthCheckRequest{Service: service})
		require.NoError(t, err)
		return resp.GetStatus()
	}

	assert.Equal(t, grpc_health_v1.HealthCheckResponse_NOT_SERVING, check(""))
	s.SetServing(true)
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(""))
	assert.Equal(t, grpc_health_v1.HealthCheckResponse_SERVING, check(ServiceName))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Shutdown(ctx))
	<-served
}

func TestMetricsServer(t *testing.T) {
	m := NewMetricsServer("127.0.0.1:0")
	shutdown, err := m.Start(context.Background())
	require.NoError(t, err)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}()

	resp, err := http.Get("http://" + m.Addr() + "/livez")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get("http://" + m.Addr() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetricsServer_BindError(t *testing.T) {
	m := NewMetricsServer("127.0.0.1:0")
	shutdown, err := m.Start(context.Background())
	require.NoError(t, err)
	defer func() { _ = shutdown(context.Background()) }()

	_, err = NewMetricsServer(m.Addr()).Start(context.Background())
	assert.Error(t, err)
}
