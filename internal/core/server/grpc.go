// Package server runs the operational endpoints of a processing run: gRPC
// health checks and the Prometheus metrics handler.
package server

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"

	"github.com/solatis/windowkeeper/internal/core/config"
)

// ServiceName is the health service name reported alongside the overall status.
const ServiceName = "windowkeeper.Engine"

const shutdownTimeout = 30 * time.Second

// GRPCServer serves the standard gRPC health service.
// It reports NOT_SERVING until SetServing(true) is called.
type GRPCServer struct {
	server *grpc.Server
	health *health.Server
	addr   string

	mu       sync.Mutex
	listener net.Listener
}

// NewGRPCServer creates the health server bound to cfg.Host:cfg.Port.
func NewGRPCServer(cfg *config.Config) (*GRPCServer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cfg cannot be nil")
	}

	server := grpc.NewServer()
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(server, healthServer)

	s := &GRPCServer{
		server: server,
		health: healthServer,
		addr:   net.JoinHostPort(cfg.Host, fmt.Sprint(cfg.Port)),
	}
	s.SetServing(false)
	return s, nil
}

// SetServing flips the reported status of the engine.
func (s *GRPCServer) SetServing(serving bool) {
	status := grpc_health_v1.HealthCheckResponse_NOT_SERVING
	if serving {
		status = grpc_health_v1.HealthCheckResponse_SERVING
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(ServiceName, status)
}

// Listen binds the listener. Start calls it when it was not called before.
func (s *GRPCServer) Listen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.addr, err)
	}
	s.listener = listener
	return nil
}

// Addr returns the bound address, or the configured one before Listen.
func (s *GRPCServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return s.addr
	}
	return s.listener.Addr().String()
}

// Start serves health requests until Shutdown is called.
func (s *GRPCServer) Start(_ context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	s.mu.Lock()
	listener := s.listener
	s.mu.Unlock()
	return s.server.Serve(listener)
}

// Shutdown marks the engine NOT_SERVING and stops the server gracefully,
// forcing a stop after 30 seconds or when ctx is done.
func (s *GRPCServer) Shutdown(ctx context.Context) error {
	s.health.Shutdown()

	stopped := make(chan struct{})
	go func() {
		s.server.GracefulStop()
		close(stopped)
	}()

	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		s.server.Stop()
		return fmt.Errorf("shutdown cancelled by context: %w", ctx.Err())
	case <-time.After(shutdownTimeout):
		s.server.Stop()
		return fmt.Errorf("graceful shutdown timeout, forced stop")
	}
}
