// Package memory implements filestore.Store in process memory.
//
// Intended for tests and development. Files are lost when the process exits.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
)

type file struct {
	data    []byte
	modTime time.Time
}

// Store is an in-memory file store. Safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	files map[string]file

	// FailDelete and FailExists, when set, are consulted before the
	// corresponding operation and a non-nil result is returned as its error.
	// Used to simulate unreachable storage and permission errors in tests.
	FailDelete func(path string) error
	FailExists func(path string) error

	// Now is the clock used to stamp writes. Default: time.Now
	Now func() time.Time
}

// NewStore creates an empty in-memory file store.
func NewStore() *Store {
	return &Store{
		files: make(map[string]file),
		Now:   time.Now,
	}
}

func key(path string) (string, error) {
	k := asset.CleanPath(path)
	if k == "" {
		return "", fmt.Errorf("%w: %q", filestore.ErrInvalidPath, path)
	}
	return k, nil
}

func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k, err := key(path)
	if err != nil {
		return false, err
	}
	if s.FailExists != nil {
		if err := s.FailExists(k); err != nil {
			return false, err
		}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.files[k]
	return ok, nil
}

func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := key(path)
	if err != nil {
		return err
	}
	if s.FailDelete != nil {
		if err := s.FailDelete(k); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[k]; !ok {
		return fmt.Errorf("file %s: %w", k, filestore.ErrFileNotFound)
	}
	delete(s.files, k)
	return nil
}

func (s *Store) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			for j := i; j < len(paths); j++ {
				failures[paths[j]] = err
			}
			return failures, err
		}
		if err := s.Delete(ctx, p); err != nil {
			failures[p] = err
		}
	}

	return failures, nil
}

// List returns all files sorted by path.
func (s *Store) List(ctx context.Context) ([]filestore.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]filestore.FileInfo, 0, len(s.files))
	for p, f := range s.files {
		out = append(out, filestore.FileInfo{
			Path:    p,
			Size:    int64(len(f.data)),
			ModTime: f.modTime,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	k, err := key(path)
	if err != nil {
		return err
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.files[k] = file{data: buf, modTime: s.Now()}
	return nil
}

// SetModTime overrides the modification time of an existing file.
func (s *Store) SetModTime(path string, t time.Time) error {
	k, err := key(path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.files[k]
	if !ok {
		return fmt.Errorf("file %s: %w", k, filestore.ErrFileNotFound)
	}
	f.modTime = t
	s.files[k] = f
	return nil
}
