package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/solatis/windowkeeper/internal/core/logging"
)

// MetricsServer exposes /metrics and /livez over plain HTTP.
type MetricsServer struct {
	addr     string
	listener net.Listener
	server   *http.Server
}

// NewMetricsServer creates a metrics server for addr (host:port).
func NewMetricsServer(addr string) *MetricsServer {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return &MetricsServer{
		addr: addr,
		server: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Start binds the listener and serves in the background. It returns the
// function that shuts the server down.
func (m *MetricsServer) Start(ctx context.Context) (func(context.Context) error, error) {
	log := logging.FromContext(ctx)
	listener, err := net.Listen("tcp", m.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to bind %s: %w", m.addr, err)
	}
	m.listener = listener

	go func() {
		log.Infow("Starting metrics server", "addr", listener.Addr().String())
		if err := m.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorw("Metrics server failed", "error", err)
		}
		log.Info("Metrics server shutdown")
	}()
	return m.server.Shutdown, nil
}

// Addr returns the bound address once started.
func (m *MetricsServer) Addr() string {
	if m.listener == nil {
		return m.addr
	}
	return m.listener.Addr().String()
}
