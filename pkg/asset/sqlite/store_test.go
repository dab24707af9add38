package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/asset/storetest"
	"github.com/marmos91/mediagc/pkg/catalog"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) asset.Store {
	t.Helper()
	db, err := catalog.Open(context.Background(), catalog.Config{
		Path: filepath.Join(t.TempDir(), "catalog.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db.SQL())
}

func TestSQLiteAssetStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{NewStore: newTestStore}
	suite.Run(t)
}
