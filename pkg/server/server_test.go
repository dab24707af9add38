package server

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder tracks stop order across services.
type recorder struct {
	mu      sync.Mutex
	stopped []string
}

func (r *recorder) service(name string, serveErr error) Service {
	return NewService(name,
		func(ctx context.Context) error {
			if serveErr != nil {
				return serveErr
			}
			<-ctx.Done()
			return nil
		},
		func(ctx context.Context) error {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.stopped = append(r.stopped, name)
			return nil
		})
}

func (r *recorder) order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.stopped...)
}

func TestServer_StopsInReverseOrderOnCancel(t *testing.T) {
	rec := &recorder{}
	srv := New(time.Second)
	require.NoError(t, srv.AddService(rec.service("metrics", nil)))
	require.NoError(t, srv.AddService(rec.service("api", nil)))
	require.NoError(t, srv.AddService(rec.service("collector", nil)))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancellation")
	}
	assert.Equal(t, []string{"collector", "api", "metrics"}, rec.order())
}

func TestServer_FailingServiceStopsOthers(t *testing.T) {
	rec := &recorder{}
	srv := New(time.Second)
	boom := errors.New("address already in use")
	require.NoError(t, srv.AddService(rec.service("collector", nil)))
	require.NoError(t, srv.AddService(rec.service("api", boom)))

	err := srv.Serve(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "api service error")
	assert.ElementsMatch(t, []string{"api", "collector"}, rec.order())
}

func TestServer_Registration(t *testing.T) {
	rec := &recorder{}
	srv := New(0)
	assert.Equal(t, DefaultStopTimeout, srv.stopTimeout)

	require.NoError(t, srv.AddService(rec.service("api", nil)))
	assert.Error(t, srv.AddService(rec.service("api", nil)), "duplicate names are rejected")
	assert.Error(t, srv.AddService(nil))
	assert.Len(t, srv.Services(), 1)
}

func TestServer_ServeRequiresServices(t *testing.T) {
	assert.Error(t, New(time.Second).Serve(context.Background()))
}

func TestServer_ServeOnce(t *testing.T) {
	rec := &recorder{}
	srv := New(time.Second)
	require.NoError(t, srv.AddService(rec.service("api", nil)))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, srv.Serve(ctx))

	assert.Error(t, srv.Serve(context.Background()))
	assert.Error(t, srv.AddService(rec.service("late", nil)))
}

func TestNewService_NilStop(t *testing.T) {
	svc := NewService("noop", func(ctx context.Context) error { return nil }, nil)
	assert.Equal(t, "noop", svc.Name())
	assert.NoError(t, svc.Stop(context.Background()))
}
