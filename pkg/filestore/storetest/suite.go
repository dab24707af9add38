// Package storetest holds a reusable contract test suite for
// filestore.WritableStore implementations.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the filestore contract, not implementation details,
// so it runs unchanged against filesystem, memory and S3 backends.
//
// Usage:
//
//	func TestMyFileStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) filestore.WritableStore { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each subtest.
	NewStore func(t *testing.T) filestore.WritableStore

	// IdempotentDelete is set for backends that report success when deleting
	// a missing file instead of ErrFileNotFound.
	IdempotentDelete bool
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("ExistsAndDelete", suite.testExistsAndDelete)
	t.Run("DeleteMissing", suite.testDeleteMissing)
	t.Run("ListNested", suite.testListNested)
	t.Run("PathNormalization", suite.testPathNormalization)
	t.Run("DeleteBatch", suite.testDeleteBatch)
	t.Run("DeleteBatchCancelled", suite.testDeleteBatchCancelled)
	t.Run("InvalidPath", suite.testInvalidPath)
}

func mustWrite(t *testing.T, store filestore.WritableStore, path string, data []byte) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), path, data), "Write should succeed")
}

func (suite *StoreTestSuite) testExistsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	ok, err := store.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.False(t, ok)

	mustWrite(t, store, "a.png", []byte("png"))

	ok, err = store.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.Delete(ctx, "a.png"))

	ok, err = store.Exists(ctx, "a.png")
	require.NoError(t, err)
	assert.False(t, ok)
}

func (suite *StoreTestSuite) testDeleteMissing(t *testing.T) {
	store := suite.NewStore(t)

	err := store.Delete(context.Background(), "never-written.png")
	if suite.IdempotentDelete {
		assert.NoError(t, err)
		return
	}
	assert.True(t, errors.Is(err, filestore.ErrFileNotFound), "expected ErrFileNotFound, got %v", err)
}

func (suite *StoreTestSuite) testListNested(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	mustWrite(t, store, "top.png", []byte("1"))
	mustWrite(t, store, "users/7/cover.png", []byte("22"))
	mustWrite(t, store, "users/8/card.jpg", []byte("333"))

	files, err := store.List(ctx)
	require.NoError(t, err)

	sizes := make(map[string]int64, len(files))
	for _, f := range files {
		sizes[f.Path] = f.Size
		assert.False(t, f.ModTime.IsZero(), "mod time for %s", f.Path)
	}
	assert.Equal(t, map[string]int64{
		"top.png":           1,
		"users/7/cover.png": 2,
		"users/8/card.jpg":  3,
	}, sizes)
}

func (suite *StoreTestSuite) testPathNormalization(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	mustWrite(t, store, "/uploads/x.png", []byte("x"))

	ok, err := store.Exists(ctx, "uploads/x.png")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, "uploads/./sub/../x.png")
	require.NoError(t, err)
	assert.True(t, ok)
}

func (suite *StoreTestSuite) testDeleteBatch(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	mustWrite(t, store, "a.png", []byte("a"))
	mustWrite(t, store, "b.png", []byte("b"))

	failures, err := store.DeleteBatch(ctx, []string{"a.png", "b.png"})
	require.NoError(t, err)
	assert.Empty(t, failures)

	files, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func (suite *StoreTestSuite) testDeleteBatchCancelled(t *testing.T) {
	store := suite.NewStore(t)
	mustWrite(t, store, "a.png", []byte("a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	failures, err := store.DeleteBatch(ctx, []string{"a.png", "b.png"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, failures, 2)
	for _, ferr := range failures {
		assert.ErrorIs(t, ferr, context.Canceled)
	}

	ok, err := store.Exists(context.Background(), "a.png")
	require.NoError(t, err)
	assert.True(t, ok, "nothing is deleted after cancellation")
}

func (suite *StoreTestSuite) testInvalidPath(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	_, err := store.Exists(ctx, "")
	assert.ErrorIs(t, err, filestore.ErrInvalidPath)

	err = store.Delete(ctx, "/")
	assert.ErrorIs(t, err, filestore.ErrInvalidPath)
}
