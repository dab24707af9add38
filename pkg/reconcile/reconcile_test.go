package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/marmos91/mediagc/pkg/filestore/memory"
	"github.com/marmos91/mediagc/pkg/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return now }

func writeFile(t *testing.T, store *memory.Store, path string, age time.Duration) {
	t.Helper()
	require.NoError(t, store.Write(context.Background(), path, []byte(path)))
	require.NoError(t, store.SetModTime(path, now.Add(-age)))
}

func row(id asset.ID, path string) asset.Asset {
	return asset.Asset{ID: id, StoredName: path, RelativePath: path}
}

func filePaths(files []filestore.FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.Path
	}
	return out
}

func TestReconcile_StaleRecords(t *testing.T) {
	files := memory.NewStore()
	writeFile(t, files, "a.png", time.Hour)

	r := New(files, Config{Now: fixedClock})
	report, err := r.Reconcile(context.Background(), []asset.Asset{row(1, "a.png"), row(3, "b.png")}, nil)
	require.NoError(t, err)

	require.Len(t, report.StaleRecords, 1)
	assert.Equal(t, asset.ID(3), report.StaleRecords[0].ID)
	assert.True(t, report.IsStale(3))
	assert.False(t, report.IsStale(1))
	assert.Empty(t, report.UntrackedFiles)
}

func TestReconcile_UntrackedFiles(t *testing.T) {
	files := memory.NewStore()
	writeFile(t, files, "tracked.png", time.Hour)
	writeFile(t, files, "stray.png", time.Hour)
	writeFile(t, files, "legacy/old.png", time.Hour)
	writeFile(t, files, "fresh.png", time.Minute)

	r := New(files, Config{GracePeriod: 10 * time.Minute, Now: fixedClock})
	report, err := r.Reconcile(context.Background(),
		[]asset.Asset{row(1, "/tracked.png")},
		[]string{"uploads/legacy/old.png"})
	require.NoError(t, err)

	assert.Equal(t, []string{"stray.png"}, filePaths(report.UntrackedFiles))
	assert.Equal(t, []string{"legacy/old.png"}, filePaths(report.ProtectedFiles))
	assert.Equal(t, []string{"fresh.png"}, filePaths(report.PendingFiles))
	assert.Empty(t, report.StaleRecords)
}

func TestReconcile_NoGracePeriod(t *testing.T) {
	files := memory.NewStore()
	writeFile(t, files, "fresh.png", 0)

	report, err := New(files, Config{Now: fixedClock}).Reconcile(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"fresh.png"}, filePaths(report.UntrackedFiles))
}

func TestReconcile_ExistenceErrorIsFatal(t *testing.T) {
	files := memory.NewStore()
	writeFile(t, files, "a.png", time.Hour)
	files.FailExists = func(string) error { return errors.New("connection refused") }

	_, err := New(files, Config{Concurrency: 2}).Reconcile(context.Background(),
		[]asset.Asset{row(1, "a.png"), row(2, "b.png"), row(3, "c.png")}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestReconcile_ManyRowsConcurrently(t *testing.T) {
	files := memory.NewStore()
	var assets []asset.Asset
	for i := asset.ID(1); i <= 50; i++ {
		p := "f/" + i.String() + ".png"
		assets = append(assets, row(i, p))
		if i%2 == 0 {
			writeFile(t, files, p, time.Hour)
		}
	}

	report, err := New(files, Config{Concurrency: 4}).Reconcile(context.Background(), assets, nil)
	require.NoError(t, err)
	require.Len(t, report.StaleRecords, 25)
	for i, a := range report.StaleRecords {
		assert.Equal(t, asset.ID(2*i+1), a.ID, "stale records keep row order")
	}
}

func TestReconcile_RawPathProtects(t *testing.T) {
	files := memory.NewStore()
	writeFile(t, files, "uploads/my photo.png", time.Hour)
	writeFile(t, files, "uploads/cover.png", time.Hour)
	writeFile(t, files, "uploads/other.png", time.Hour)

	refs := []reference.Reference{
		{OwnerKind: "artwork", OwnerID: "1", Pointer: reference.Pointer{Kind: reference.KindInvalid}, Raw: "uploads/my photo.png"},
		{OwnerKind: "project", OwnerID: "2", Pointer: reference.Pointer{Kind: reference.KindInvalid}, Raw: "/uploads/cover.png"},
	}

	report, err := New(files, Config{Now: fixedClock}).Reconcile(context.Background(), nil, reference.ProtectedPaths(refs))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"uploads/my photo.png", "uploads/cover.png"}, filePaths(report.ProtectedFiles))
	assert.Equal(t, []string{"uploads/other.png"}, filePaths(report.UntrackedFiles))
}
