// Package fs implements filestore.Store on the local filesystem.
package fs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
)

// Store serves files from a directory tree rooted at basePath.
//
// Thread Safety:
// Filesystem operations are safe at the OS level. Concurrent deletes of the
// same path resolve to one success and one ErrFileNotFound.
type Store struct {
	basePath string
}

// NewStore creates a filesystem store, creating basePath if needed.
//
// Context Cancellation:
// This operation checks the context before creating the directory.
func NewStore(ctx context.Context, basePath string) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if basePath == "" {
		return nil, fmt.Errorf("base path is required")
	}

	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve base path: %w", err)
	}

	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &Store{basePath: abs}, nil
}

// BasePath returns the absolute storage root.
func (s *Store) BasePath() string {
	return s.basePath
}

// resolve maps a storage-relative path onto the filesystem. Cleaning drops
// ".." segments, so the result always stays under basePath.
func (s *Store) resolve(path string) (string, error) {
	rel := asset.CleanPath(path)
	if rel == "" {
		return "", fmt.Errorf("%w: %q", filestore.ErrInvalidPath, path)
	}
	return filepath.Join(s.basePath, filepath.FromSlash(rel)), nil
}

// Exists reports whether a regular file exists at path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	full, err := s.resolve(path)
	if err != nil {
		return false, err
	}

	info, err := os.Stat(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return !info.IsDir(), nil
}

// Delete removes the file at path.
func (s *Store) Delete(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("file %s: %w", path, filestore.ErrFileNotFound)
		}
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// DeleteBatch removes files sequentially, best effort.
//
// Context Cancellation:
// The context is checked every 10 deletions; on cancellation the remaining
// paths are marked failed.
func (s *Store) DeleteBatch(ctx context.Context, paths []string) (map[string]error, error) {
	failures := make(map[string]error)

	for i, p := range paths {
		if i%10 == 0 {
			if err := ctx.Err(); err != nil {
				for j := i; j < len(paths); j++ {
					failures[paths[j]] = err
				}
				return failures, err
			}
		}

		if err := s.Delete(ctx, p); err != nil {
			failures[p] = err
		}
	}

	return failures, nil
}

// List walks the storage root and returns every regular file.
//
// Context Cancellation:
// The context is checked every 100 entries during the walk.
func (s *Store) List(ctx context.Context) ([]filestore.FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		files   []filestore.FileInfo
		visited int
	)

	err := filepath.WalkDir(s.basePath, func(full string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		visited++
		if visited%100 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		if !d.Type().IsRegular() || isTempName(d.Name()) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				// Removed between readdir and stat.
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(s.basePath, full)
		if err != nil {
			return err
		}

		files = append(files, filestore.FileInfo{
			Path:    filepath.ToSlash(rel),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to list %s: %w", s.basePath, err)
	}

	return files, nil
}

// Write creates or replaces the file at path, creating parent directories.
func (s *Store) Write(ctx context.Context, path string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	full, err := s.resolve(path)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return fmt.Errorf("failed to create parent directory: %w", err)
	}

	// Write to a temp file and rename so List never observes a partial file.
	tmp, err := os.CreateTemp(filepath.Dir(full), "."+filepath.Base(full)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := os.Rename(tmpName, full); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// isTempName reports whether name is an in-flight Write temp file.
func isTempName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.Contains(name, ".tmp-")
}
