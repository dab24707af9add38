// Package api exposes sweeps, classification and edit leases over HTTP.
//
// Routes:
//   - POST   /api/v1/sweep                              run a sweep (?dry_run=true previews)
//   - GET    /api/v1/classification                     current classification report
//   - GET    /api/v1/leases                             lease table with activity
//   - POST   /api/v1/leases/{scope}/{holder}            acquire or renew (?ttl=90s)
//   - PUT    /api/v1/leases/{scope}/{holder}/heartbeat  heartbeat
//   - DELETE /api/v1/leases/{scope}/{holder}            release
//   - GET    /healthz                                   liveness and catalog health
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/marmos91/mediagc/internal/logger"
)

// ServerConfig configures the API HTTP server.
type ServerConfig struct {
	// Port to listen on. Default: 8080
	Port int

	// SweepInterval is the minimum spacing between manually triggered
	// sweeps. Zero disables the limit.
	SweepInterval time.Duration

	// SweepBurst is how many manual sweeps may run back to back. Default: 1
	SweepBurst int

	// SweepTimeout bounds a manually triggered sweep. Default: 10m
	SweepTimeout time.Duration
}

func (c *ServerConfig) applyDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.SweepBurst <= 0 {
		c.SweepBurst = 1
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = DefaultSweepTimeout
	}
}

// Server is the admin API HTTP server.
type Server struct {
	server       *http.Server
	port         int
	shutdownOnce sync.Once
}

// NewServer creates an API server in a stopped state. Call Start to serve.
func NewServer(config ServerConfig, sweeper Sweeper, leases Leases, health HealthFunc) *Server {
	config.applyDefaults()

	handler := NewHandler(sweeper, leases, health, HandlerOptions{
		SweepInterval: config.SweepInterval,
		SweepBurst:    config.SweepBurst,
		SweepTimeout:  config.SweepTimeout,
	})

	return &Server{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", config.Port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       10 * time.Second,
			// Sweeps are synchronous; leave room for a long one.
			WriteTimeout: config.SweepTimeout + time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		port: config.Port,
	}
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

// Start serves requests and blocks until ctx is cancelled or the listener
// fails. Cancellation triggers a graceful shutdown.
func (s *Server) Start(ctx context.Context) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info("API server listening on port %d", s.port)

		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.Stop(shutdownCtx)
	case err := <-errChan:
		return fmt.Errorf("api server failed: %w", err)
	}
}

// Stop gracefully shuts the server down. Safe to call multiple times.
func (s *Server) Stop(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if err := s.server.Shutdown(ctx); err != nil {
			shutdownErr = fmt.Errorf("api server shutdown error: %w", err)
			logger.Error("API server shutdown error: %v", err)
		} else {
			logger.Info("API server stopped gracefully")
		}
	})
	return shutdownErr
}

// Port returns the configured TCP port.
func (s *Server) Port() int {
	return s.port
}
