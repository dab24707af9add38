// Package storetest holds a reusable contract test suite for asset.Store
// implementations.
package storetest

import (
	"context"
	"testing"

	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// StoreTestSuite tests the asset.Store contract.
//
// Usage:
//
//	func TestMyStore(t *testing.T) {
//	    suite := &storetest.StoreTestSuite{
//	        NewStore: func(t *testing.T) asset.Store { return mystore.New() },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore returns a fresh, empty store for each subtest.
	NewStore func(t *testing.T) asset.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("CreateAndGet", suite.testCreateAndGet)
	t.Run("ListOrdered", suite.testListOrdered)
	t.Run("UpdatePreservesID", suite.testUpdatePreservesID)
	t.Run("PathConflict", suite.testPathConflict)
	t.Run("Delete", suite.testDelete)
	t.Run("Validation", suite.testValidation)
}

func sample(path string) asset.Asset {
	return asset.Asset{
		OwnerUserID:  1,
		StoredName:   "stored-" + path,
		OriginalName: "original.png",
		RelativePath: path,
		PublicURL:    "/uploads/" + path,
		MimeType:     "image/png",
		SizeBytes:    128,
	}
}

func (suite *StoreTestSuite) testCreateAndGet(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	created, err := store.CreateAsset(ctx, sample("/a/b.png"))
	require.NoError(t, err)
	assert.True(t, created.ID.Valid())
	assert.Equal(t, "a/b.png", created.RelativePath, "path is stored cleaned")
	assert.False(t, created.CreatedAt.IsZero())

	got, err := store.GetAsset(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "a/b.png", got.RelativePath)
	assert.Equal(t, "image/png", got.MimeType)
	assert.Equal(t, int64(128), got.SizeBytes)
	assert.Empty(t, got.DisplayName)

	_, err = store.GetAsset(ctx, created.ID+100)
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)
}

func (suite *StoreTestSuite) testListOrdered(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	for _, p := range []string{"one.png", "two.png", "three.png"} {
		_, err := store.CreateAsset(ctx, sample(p))
		require.NoError(t, err)
	}

	assets, err := store.ListAssets(ctx)
	require.NoError(t, err)
	require.Len(t, assets, 3)
	for i := 1; i < len(assets); i++ {
		assert.Less(t, assets[i-1].ID, assets[i].ID)
	}
}

func (suite *StoreTestSuite) testUpdatePreservesID(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	created, err := store.CreateAsset(ctx, sample("old.png"))
	require.NoError(t, err)

	replaced := *created
	replaced.StoredName = "new-stored"
	replaced.RelativePath = "new.png"
	replaced.DisplayName = "Cover"
	replaced.SizeBytes = 4096

	updated, err := store.UpdateAsset(ctx, replaced)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "new.png", updated.RelativePath)
	assert.Equal(t, "Cover", updated.DisplayName)
	assert.Equal(t, int64(4096), updated.SizeBytes)

	missing := replaced
	missing.ID = created.ID + 50
	missing.RelativePath = "other.png"
	_, err = store.UpdateAsset(ctx, missing)
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)
}

func (suite *StoreTestSuite) testPathConflict(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	_, err := store.CreateAsset(ctx, sample("dup.png"))
	require.NoError(t, err)

	_, err = store.CreateAsset(ctx, sample("/dup.png"))
	assert.ErrorIs(t, err, asset.ErrPathConflict)

	other, err := store.CreateAsset(ctx, sample("other.png"))
	require.NoError(t, err)
	other.RelativePath = "dup.png"
	_, err = store.UpdateAsset(ctx, *other)
	assert.ErrorIs(t, err, asset.ErrPathConflict)
}

func (suite *StoreTestSuite) testDelete(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	created, err := store.CreateAsset(ctx, sample("gone.png"))
	require.NoError(t, err)

	require.NoError(t, store.DeleteAsset(ctx, created.ID))

	_, err = store.GetAsset(ctx, created.ID)
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)

	err = store.DeleteAsset(ctx, created.ID)
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)
}

func (suite *StoreTestSuite) testValidation(t *testing.T) {
	ctx := context.Background()
	store := suite.NewStore(t)

	bad := sample("")
	_, err := store.CreateAsset(ctx, bad)
	assert.ErrorIs(t, err, asset.ErrInvalidAsset)

	bad = sample("x.png")
	bad.SizeBytes = -1
	_, err = store.CreateAsset(ctx, bad)
	assert.ErrorIs(t, err, asset.ErrInvalidAsset)
}
