// Package filestore defines the physical file store the collector reconciles
// asset rows against.
//
// Paths are storage-relative, slash separated and cleaned with
// asset.CleanPath; a Store never resolves a path outside its root.
package filestore

import (
	"context"
	"time"
)

// FileInfo describes one file under the storage root.
type FileInfo struct {
	// Path is the storage-relative path (same form as Asset.RelativePath).
	Path string `json:"path"`

	// Size is the file size in bytes.
	Size int64 `json:"size"`

	// ModTime is the last modification time. The reconciler uses it to skip
	// files that may belong to an upload still between its file write and
	// its row write.
	ModTime time.Time `json:"mod_time"`
}

// Store is the file-store interface consumed by the reconciler and the
// cleanup executor.
type Store interface {
	// Exists reports whether a file exists at path. A missing file is not an
	// error; only an unreachable store is.
	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes the file at path. Returns an error wrapping
	// ErrFileNotFound when the file is already absent. Backends whose delete
	// is idempotent by nature (S3) report success instead.
	Delete(ctx context.Context, path string) error

	// DeleteBatch removes several files. The operation is best effort:
	// per-path failures are returned in the map (empty = all succeeded) and
	// the error is only set when ctx is cancelled, in which case every path
	// not yet attempted is marked failed with ctx.Err().
	DeleteBatch(ctx context.Context, paths []string) (map[string]error, error)

	// List returns every regular file under the storage root.
	List(ctx context.Context) ([]FileInfo, error)
}

// WritableStore is a Store that can also create files. Used by tests and by
// the seed tooling; the collector itself never writes.
type WritableStore interface {
	Store
	Write(ctx context.Context, path string, data []byte) error
}
