// Package memory implements asset.Store in process memory.
//
// Used by tests and by the collector when the catalog is not needed for
// asset rows (owner tables still live in SQL).
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/marmos91/mediagc/pkg/asset"
)

// Store is an in-memory asset store. Safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	assets map[asset.ID]asset.Asset
	nextID asset.ID

	// FailDelete, when set, is consulted before each delete and its error
	// returned. Lets tests inject row-level failures.
	FailDelete func(id asset.ID) error
}

func NewStore() *Store {
	return &Store{
		assets: make(map[asset.ID]asset.Asset),
		nextID: 1,
	}
}

func (s *Store) ListAssets(ctx context.Context) ([]asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]asset.Asset, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetAsset(ctx context.Context, id asset.ID) (*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.assets[id]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", id, asset.ErrAssetNotFound)
	}
	return &a, nil
}

func (s *Store) pathInUse(path string, except asset.ID) bool {
	for id, a := range s.assets {
		if id != except && a.RelativePath == path {
			return true
		}
	}
	return false
}

func (s *Store) CreateAsset(ctx context.Context, a asset.Asset) (*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.RelativePath = asset.CleanPath(a.RelativePath)
	if err := asset.Validate(&a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pathInUse(a.RelativePath, 0) {
		return nil, fmt.Errorf("%s: %w", a.RelativePath, asset.ErrPathConflict)
	}

	// Explicit ids let tests reproduce fixed scenarios ("asset 42").
	if !a.ID.Valid() {
		a.ID = s.nextID
	} else if _, exists := s.assets[a.ID]; exists {
		return nil, fmt.Errorf("%w: id %s already exists", asset.ErrInvalidAsset, a.ID)
	}
	if a.ID >= s.nextID {
		s.nextID = a.ID + 1
	}

	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	s.assets[a.ID] = a
	return &a, nil
}

func (s *Store) UpdateAsset(ctx context.Context, a asset.Asset) (*asset.Asset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	a.RelativePath = asset.CleanPath(a.RelativePath)
	if err := asset.Validate(&a); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.assets[a.ID]
	if !ok {
		return nil, fmt.Errorf("asset %s: %w", a.ID, asset.ErrAssetNotFound)
	}
	if s.pathInUse(a.RelativePath, a.ID) {
		return nil, fmt.Errorf("%s: %w", a.RelativePath, asset.ErrPathConflict)
	}

	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()
	s.assets[a.ID] = a
	return &a, nil
}

func (s *Store) DeleteAsset(ctx context.Context, id asset.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.FailDelete != nil {
		if err := s.FailDelete(id); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.assets[id]; !ok {
		return fmt.Errorf("asset %s: %w", id, asset.ErrAssetNotFound)
	}
	delete(s.assets, id)
	return nil
}
