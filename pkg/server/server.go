// Package server runs the long-lived parts of mediagc (the admin API, the
// metrics endpoint and the periodic collector) under one lifecycle.
package server

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/mediagc/internal/logger"
)

// DefaultStopTimeout bounds the shutdown of all services.
const DefaultStopTimeout = 30 * time.Second

// Service is a long-running component managed by Server.
type Service interface {
	// Serve runs until ctx is cancelled or the service fails.
	Serve(ctx context.Context) error

	// Stop signals the service to shut down. It may be called while Serve
	// is still running.
	Stop(ctx context.Context) error

	// Name identifies the service in logs and errors.
	Name() string
}

// Server manages the lifecycle of a set of services.
//
// Lifecycle:
//  1. Creation: New()
//  2. Registration: AddService() for each component
//  3. Startup: Serve() starts all services concurrently
//  4. Shutdown: context cancellation or a failing service stops all
//     services in reverse registration order
//
// Thread safety:
// AddService may be called concurrently before Serve. Serve may only be
// called once.
type Server struct {
	services    []Service
	stopTimeout time.Duration

	mu     sync.Mutex
	served bool
}

// New creates a server. A zero stopTimeout uses DefaultStopTimeout.
func New(stopTimeout time.Duration) *Server {
	if stopTimeout <= 0 {
		stopTimeout = DefaultStopTimeout
	}
	return &Server{
		services:    make([]Service, 0, 3),
		stopTimeout: stopTimeout,
	}
}

// AddService registers a service. Names must be unique.
func (s *Server) AddService(svc Service) error {
	if svc == nil {
		return fmt.Errorf("service cannot be nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.served {
		return fmt.Errorf("cannot add service %s after Serve has been called", svc.Name())
	}
	for _, existing := range s.services {
		if existing.Name() == svc.Name() {
			return fmt.Errorf("service %s already registered", svc.Name())
		}
	}

	s.services = append(s.services, svc)
	logger.Debug("Registered %s service", svc.Name())
	return nil
}

// Services returns a snapshot of the registered services.
func (s *Server) Services() []Service {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Service, len(s.services))
	copy(out, s.services)
	return out
}

// Serve starts every service and blocks until ctx is cancelled or one of
// them fails. All services are then stopped and awaited.
//
// Returns nil after a shutdown triggered by ctx, or the first service error.
func (s *Server) Serve(ctx context.Context) error {
	s.mu.Lock()
	if s.served {
		s.mu.Unlock()
		return fmt.Errorf("serve has already been called")
	}
	s.served = true
	if len(s.services) == 0 {
		s.mu.Unlock()
		return fmt.Errorf("no services registered")
	}
	services := make([]Service, len(s.services))
	copy(services, s.services)
	s.mu.Unlock()

	// Services are cancelled together when one fails.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errChan := make(chan serviceError, len(services))
	var wg sync.WaitGroup

	for _, svc := range services {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()

			logger.Info("Starting %s service", svc.Name())

			err := svc.Serve(runCtx)
			switch {
			case err != nil && runCtx.Err() == nil:
				logger.Error("%s service failed: %v", svc.Name(), err)
				errChan <- serviceError{name: svc.Name(), err: err}
			case err != nil && !errors.Is(err, context.Canceled):
				logger.Warn("%s service stopped with error: %v", svc.Name(), err)
			default:
				logger.Debug("%s service stopped", svc.Name())
			}
		}(svc)
	}

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received (reason: %v)", ctx.Err())
	case failed := <-errChan:
		serveErr = fmt.Errorf("%s service error: %w", failed.name, failed.err)
	}

	cancel()
	s.stopAll(services)

	wg.Wait()
	logger.Info("All services stopped")

	return serveErr
}

type serviceError struct {
	name string
	err  error
}

// stopAll stops services in reverse registration order under one timeout.
func (s *Server) stopAll(services []Service) {
	ctx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		svc := services[i]
		if err := svc.Stop(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Error stopping %s service: %v", svc.Name(), err)
		}
	}
}

// funcService adapts a pair of functions to Service.
type funcService struct {
	name  string
	serve func(ctx context.Context) error
	stop  func(ctx context.Context) error
}

// NewService returns a Service backed by serve and stop. A nil stop is a
// no-op.
func NewService(name string, serve, stop func(ctx context.Context) error) Service {
	return &funcService{name: name, serve: serve, stop: stop}
}

func (f *funcService) Name() string                    { return f.name }
func (f *funcService) Serve(ctx context.Context) error { return f.serve(ctx) }

func (f *funcService) Stop(ctx context.Context) error {
	if f.stop == nil {
		return nil
	}
	return f.stop(ctx)
}
