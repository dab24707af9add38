// Package memory implements lease.Store in process memory.
//
// State is process-local: use it for tests and single-process development
// only. Multiple service instances must share the sqlite store.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/mediagc/pkg/lease"
)

type key struct {
	scope  string
	holder string
}

// Store is an in-memory lease store. Safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	leases map[key]lease.Lease
}

func NewStore() *Store {
	return &Store{leases: make(map[key]lease.Lease)}
}

func (s *Store) Acquire(ctx context.Context, l lease.Lease, now time.Time) (*lease.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{l.ScopeID, l.HolderID}
	if existing, ok := s.leases[k]; ok && existing.Active(now) {
		l.AcquiredAt = existing.AcquiredAt
	}
	s.leases[k] = l
	return &l, nil
}

func (s *Store) Heartbeat(ctx context.Context, scopeID, holderID string, now time.Time) (*lease.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	k := key{scopeID, holderID}
	l, ok := s.leases[k]
	if !ok || !l.Active(now) {
		return nil, fmt.Errorf("lease %s/%s: %w", scopeID, holderID, lease.ErrNoSuchLease)
	}
	l.LastHeartbeatAt = now
	s.leases[k] = l
	return &l, nil
}

func (s *Store) Release(ctx context.Context, scopeID, holderID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.leases, key{scopeID, holderID})
	return nil
}

func (s *Store) List(ctx context.Context) ([]lease.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]lease.Lease, 0, len(s.leases))
	for _, l := range s.leases {
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
