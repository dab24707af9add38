package fs

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/marmos91/mediagc/pkg/filestore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFSFileStore(t *testing.T) {
	suite := &storetest.StoreTestSuite{
		NewStore: func(t *testing.T) filestore.WritableStore {
			store, err := NewStore(context.Background(), t.TempDir())
			require.NoError(t, err)
			return store
		},
	}
	suite.Run(t)
}

func TestResolve_StaysUnderRoot(t *testing.T) {
	root := t.TempDir()
	store, err := NewStore(context.Background(), root)
	require.NoError(t, err)

	full, err := store.resolve("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.BasePath(), "etc", "passwd"), full)
}

func TestList_SkipsDirectoriesAndTempFiles(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewStore(ctx, root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty", "dir"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".x.png.tmp-123"), []byte("partial"), 0644))
	require.NoError(t, store.Write(ctx, "real.png", []byte("ok")))

	files, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "real.png", files[0].Path)
}

func TestExists_DirectoryIsNotAFile(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	store, err := NewStore(ctx, root)
	require.NoError(t, err)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "users"), 0755))

	ok, err := store.Exists(ctx, "users")
	require.NoError(t, err)
	assert.False(t, ok)
}
