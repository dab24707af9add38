package gc

import (
	"context"
	"errors"
	"testing"

	"github.com/marmos91/mediagc/pkg/asset"
	assetmem "github.com/marmos91/mediagc/pkg/asset/memory"
	filemem "github.com/marmos91/mediagc/pkg/filestore/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAsset(t *testing.T, assets *assetmem.Store, files *filemem.Store, id asset.ID, path string, data []byte) *asset.Asset {
	t.Helper()
	ctx := context.Background()
	a, err := assets.CreateAsset(ctx, asset.Asset{
		ID:           id,
		StoredName:   path,
		OriginalName: path,
		RelativePath: path,
		SizeBytes:    int64(len(data)),
	})
	require.NoError(t, err)
	if files != nil {
		require.NoError(t, files.Write(ctx, path, data))
	}
	return a
}

func assetCandidate(a *asset.Asset) Candidate {
	return Candidate{Asset: a, Path: a.RelativePath, Size: a.SizeBytes}
}

func TestExecutor_DeletesFileThenRow(t *testing.T) {
	ctx := context.Background()
	assets, files := assetmem.NewStore(), filemem.NewStore()
	a := seedAsset(t, assets, files, 42, "uploads/42.png", []byte("12345"))

	out := NewExecutor(assets, files, 10).Execute(ctx, []Candidate{assetCandidate(a)})

	assert.Equal(t, []asset.ID{42}, out.DeletedIDs)
	assert.Equal(t, []string{"uploads/42.png"}, out.DeletedFiles)
	assert.Equal(t, int64(5), out.FreedBytes)
	assert.Empty(t, out.Failures)

	ok, err := files.Exists(ctx, "uploads/42.png")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = assets.GetAsset(ctx, 42)
	assert.ErrorIs(t, err, asset.ErrAssetNotFound)
}

func TestExecutor_AbsentFileStillDeletesRow(t *testing.T) {
	ctx := context.Background()
	assets, files := assetmem.NewStore(), filemem.NewStore()
	a := seedAsset(t, assets, nil, 8, "uploads/gone.png", []byte("xx"))

	out := NewExecutor(assets, files, 10).Execute(ctx, []Candidate{assetCandidate(a)})

	assert.Equal(t, []asset.ID{8}, out.DeletedIDs)
	assert.Empty(t, out.DeletedFiles)
	assert.Zero(t, out.FreedBytes, "bytes only count for files actually removed")
	assert.Empty(t, out.Failures)
}

func TestExecutor_FileMissingSkipsFileStep(t *testing.T) {
	ctx := context.Background()
	assets, files := assetmem.NewStore(), filemem.NewStore()
	a := seedAsset(t, assets, nil, 9, "uploads/stale.png", nil)

	files.FailDelete = func(string) error {
		t.Fatal("file store must not be called for a known-missing file")
		return nil
	}

	c := assetCandidate(a)
	c.FileMissing = true
	out := NewExecutor(assets, files, 10).Execute(ctx, []Candidate{c})

	assert.Equal(t, []asset.ID{9}, out.DeletedIDs)
	assert.Empty(t, out.Failures)
}

func TestExecutor_PartialFailureContainment(t *testing.T) {
	ctx := context.Background()
	assets, files := assetmem.NewStore(), filemem.NewStore()

	var candidates []Candidate
	for i := 1; i <= 6; i++ {
		a := seedAsset(t, assets, files, asset.ID(i), "uploads/"+asset.ID(i).String()+".png", []byte("x"))
		candidates = append(candidates, assetCandidate(a))
	}

	files.FailDelete = func(path string) error {
		if path == "uploads/2.png" {
			return errors.New("permission denied")
		}
		return nil
	}
	assets.FailDelete = func(id asset.ID) error {
		if id == 4 {
			return errors.New("database is locked")
		}
		return nil
	}

	// Batch size 2 spreads failures across batches.
	out := NewExecutor(assets, files, 2).Execute(ctx, candidates)

	assert.Equal(t, []asset.ID{1, 3, 5, 6}, out.DeletedIDs)
	require.Len(t, out.Failures, 2)
	assert.Equal(t, Failure{AssetID: 2, Path: "uploads/2.png", Stage: StageFile, Reason: "permission denied"}, out.Failures[0])
	assert.Equal(t, asset.ID(4), out.Failures[1].AssetID)
	assert.Equal(t, StageRow, out.Failures[1].Stage)

	// A failed file delete keeps the row so the next sweep retries.
	_, err := assets.GetAsset(ctx, 2)
	require.NoError(t, err)

	// Row 4 failed after its file was removed: the next sweep sees it stale.
	ok, err := files.Exists(ctx, "uploads/4.png")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, map[string]int{StageFile: 1, StageRow: 1}, out.FailureCounts())
}

func TestExecutor_RowAlreadyGoneIsSkipped(t *testing.T) {
	ctx := context.Background()
	assets, files := assetmem.NewStore(), filemem.NewStore()
	a := seedAsset(t, assets, files, 5, "uploads/5.png", []byte("x"))
	require.NoError(t, assets.DeleteAsset(ctx, 5))

	out := NewExecutor(assets, files, 10).Execute(ctx, []Candidate{assetCandidate(a)})

	assert.Empty(t, out.DeletedIDs)
	assert.Equal(t, []asset.ID{5}, out.Skipped)
	assert.Empty(t, out.Failures)
}

func TestExecutor_UntrackedFileOnly(t *testing.T) {
	ctx := context.Background()
	assets, files := assetmem.NewStore(), filemem.NewStore()
	require.NoError(t, files.Write(ctx, "uploads/stray.bin", []byte("abc")))

	out := NewExecutor(assets, files, 10).Execute(ctx, []Candidate{{Path: "uploads/stray.bin", Size: 3}})

	assert.Empty(t, out.DeletedIDs)
	assert.Equal(t, []string{"uploads/stray.bin"}, out.DeletedFiles)
	assert.Equal(t, int64(3), out.FreedBytes)
}

func TestExecutor_CancelledMarksRemaining(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assets, files := assetmem.NewStore(), filemem.NewStore()
	var candidates []Candidate
	for i := 1; i <= 3; i++ {
		a := seedAsset(t, assets, files, asset.ID(i), "uploads/"+asset.ID(i).String()+".png", []byte("x"))
		candidates = append(candidates, assetCandidate(a))
	}

	out := NewExecutor(assets, files, 2).Execute(ctx, candidates)

	assert.Empty(t, out.DeletedIDs)
	require.Len(t, out.Failures, 3)
	for _, f := range out.Failures {
		assert.Equal(t, StageCancelled, f.Stage)
	}

	all, err := assets.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestNewExecutor_DefaultBatchSize(t *testing.T) {
	e := NewExecutor(assetmem.NewStore(), filemem.NewStore(), 0)
	assert.Equal(t, DefaultBatchSize, e.batchSize)
}
