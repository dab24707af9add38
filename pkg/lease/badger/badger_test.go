package badger

import (
	"context"
	"testing"
	"time"

	"github.com/marmos91/mediagc/pkg/lease"
	"github.com/marmos91/mediagc/pkg/lease/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBadgerLeaseStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) lease.Store {
			store, err := NewStore(context.Background(), Config{InMemory: true})
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestBadgerLeaseStore_Persists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Now().UTC()

	store, err := NewStore(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	_, err = store.Acquire(ctx, lease.Lease{
		ScopeID: "project-5", HolderID: "alice",
		AcquiredAt: now, LastHeartbeatAt: now, TTL: time.Minute,
	}, now)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(ctx, Config{DBPath: dir})
	require.NoError(t, err)
	defer store.Close()

	leases, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, leases, 1)
	assert.Equal(t, "alice", leases[0].HolderID)
	assert.True(t, leases[0].LastHeartbeatAt.Equal(now))
}

func TestNewStore_RequiresPath(t *testing.T) {
	_, err := NewStore(context.Background(), Config{})
	assert.Error(t, err)
}
