// Package storetest holds a reusable contract test suite for lease.Store
// implementations.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/mediagc/pkg/lease"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the lease.Store contract.
//
// Usage:
//
//	func TestMyLeaseStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) lease.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each subtest. The suite
	// closes it.
	NewStore func(t *testing.T) lease.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("AcquireAndList", suite.testAcquireAndList)
	t.Run("RenewKeepsAcquiredAt", suite.testRenewKeepsAcquiredAt)
	t.Run("ReacquireAfterExpiry", suite.testReacquireAfterExpiry)
	t.Run("Heartbeat", suite.testHeartbeat)
	t.Run("HeartbeatExpired", suite.testHeartbeatExpired)
	t.Run("ReleaseIdempotent", suite.testReleaseIdempotent)
	t.Run("ConcurrentHeartbeats", suite.testConcurrentHeartbeats)
}

var t0 = time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

func newLease(scope, holder string, at time.Time, ttl time.Duration) lease.Lease {
	return lease.Lease{ScopeID: scope, HolderID: holder, AcquiredAt: at, LastHeartbeatAt: at, TTL: ttl}
}

func (suite *StoreTestSuite) store(t *testing.T) lease.Store {
	t.Helper()
	s := suite.NewStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func (suite *StoreTestSuite) testAcquireAndList(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	l, err := s.Acquire(ctx, newLease("project-5", "alice", t0, 90*time.Second), t0)
	require.NoError(t, err)
	assert.True(t, l.AcquiredAt.Equal(t0))
	assert.Equal(t, 90*time.Second, l.TTL)

	_, err = s.Acquire(ctx, newLease("project-6", "bob", t0, time.Minute), t0)
	require.NoError(t, err)

	leases, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, leases, 2)

	byScope := map[string]lease.Lease{}
	for _, l := range leases {
		byScope[l.ScopeID] = l
	}
	assert.Equal(t, "alice", byScope["project-5"].HolderID)
	assert.True(t, byScope["project-5"].LastHeartbeatAt.Equal(t0))
	assert.Equal(t, time.Minute, byScope["project-6"].TTL)
}

func (suite *StoreTestSuite) testRenewKeepsAcquiredAt(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	_, err := s.Acquire(ctx, newLease("p", "h", t0, time.Minute), t0)
	require.NoError(t, err)

	later := t0.Add(30 * time.Second)
	l, err := s.Acquire(ctx, newLease("p", "h", later, 2*time.Minute), later)
	require.NoError(t, err)
	assert.True(t, l.AcquiredAt.Equal(t0), "active lease keeps its acquisition time")
	assert.True(t, l.LastHeartbeatAt.Equal(later))
	assert.Equal(t, 2*time.Minute, l.TTL)

	leases, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, leases, 1)
}

func (suite *StoreTestSuite) testReacquireAfterExpiry(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	_, err := s.Acquire(ctx, newLease("p", "h", t0, time.Minute), t0)
	require.NoError(t, err)

	later := t0.Add(5 * time.Minute)
	l, err := s.Acquire(ctx, newLease("p", "h", later, time.Minute), later)
	require.NoError(t, err)
	assert.True(t, l.AcquiredAt.Equal(later), "expired lease is replaced")
}

func (suite *StoreTestSuite) testHeartbeat(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	_, err := s.Acquire(ctx, newLease("p", "h", t0, time.Minute), t0)
	require.NoError(t, err)

	beat := t0.Add(45 * time.Second)
	l, err := s.Heartbeat(ctx, "p", "h", beat)
	require.NoError(t, err)
	assert.True(t, l.LastHeartbeatAt.Equal(beat))
	assert.True(t, l.AcquiredAt.Equal(t0))

	// Still active 90s after acquisition because of the heartbeat.
	assert.True(t, l.Active(t0.Add(90*time.Second)))

	_, err = s.Heartbeat(ctx, "p", "someone-else", beat)
	assert.ErrorIs(t, err, lease.ErrNoSuchLease)
}

func (suite *StoreTestSuite) testHeartbeatExpired(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	_, err := s.Acquire(ctx, newLease("p", "h", t0, 90*time.Second), t0)
	require.NoError(t, err)

	_, err = s.Heartbeat(ctx, "p", "h", t0.Add(2*time.Minute))
	assert.ErrorIs(t, err, lease.ErrNoSuchLease)

	// Exactly at expiry the lease is no longer active.
	_, err = s.Heartbeat(ctx, "p", "h", t0.Add(90*time.Second))
	assert.ErrorIs(t, err, lease.ErrNoSuchLease)
}

func (suite *StoreTestSuite) testReleaseIdempotent(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	_, err := s.Acquire(ctx, newLease("p", "h", t0, time.Minute), t0)
	require.NoError(t, err)

	require.NoError(t, s.Release(ctx, "p", "h"))
	require.NoError(t, s.Release(ctx, "p", "h"))
	require.NoError(t, s.Release(ctx, "never", "existed"))

	leases, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, leases)

	_, err = s.Heartbeat(ctx, "p", "h", t0)
	assert.ErrorIs(t, err, lease.ErrNoSuchLease)
}

func (suite *StoreTestSuite) testConcurrentHeartbeats(t *testing.T) {
	ctx := context.Background()
	s := suite.store(t)

	_, err := s.Acquire(ctx, newLease("p", "h", t0, time.Hour), t0)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Heartbeat(ctx, "p", "h", t0.Add(time.Duration(i+1)*time.Second))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	leases, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.True(t, leases[0].LastHeartbeatAt.After(t0))
}
