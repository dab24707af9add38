// Package badger implements lease.Store on an embedded BadgerDB.
//
// Suitable for a single-node deployment that wants leases to survive a
// restart without sharing the relational catalog. Leases are JSON values
// under the "lease:" key prefix:
//
//	lease:<scope>\x00<holder> -> {"scope_id":..., "holder_id":..., ...}
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/lease"
)

const (
	prefixLease = "lease:"

	// Optimistic transactions conflict when two writers touch the same
	// lease; the loser retries.
	maxConflictRetries = 16
)

// Config configures the badger lease store.
type Config struct {
	// DBPath is the directory holding the badger files. Required unless
	// InMemory is set.
	DBPath string

	// InMemory runs badger without touching disk (tests).
	InMemory bool
}

// Store is a badger-backed lease store. Safe for concurrent use.
type Store struct {
	db *badger.DB
}

// NewStore opens (creating if needed) the badger database.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, fmt.Errorf("badger lease store: db_path is required")
		}
		opts = badger.DefaultOptions(cfg.DBPath)
	}

	// Lease records are tiny and few.
	opts = opts.WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithBlockCacheSize(8 << 20).
		WithIndexCacheSize(4 << 20)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	logger.Debug("Badger lease store opened: path=%s in_memory=%v", cfg.DBPath, cfg.InMemory)

	return &Store{db: db}, nil
}

func leaseKey(scopeID, holderID string) []byte {
	return []byte(prefixLease + scopeID + "\x00" + holderID)
}

func getLease(txn *badger.Txn, k []byte) (*lease.Lease, error) {
	item, err := txn.Get(k)
	if err != nil {
		return nil, err
	}
	var l lease.Lease
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &l)
	}); err != nil {
		return nil, fmt.Errorf("decode lease: %w", err)
	}
	return &l, nil
}

func putLease(txn *badger.Txn, l lease.Lease) error {
	data, err := json.Marshal(l)
	if err != nil {
		return fmt.Errorf("encode lease: %w", err)
	}
	return txn.Set(leaseKey(l.ScopeID, l.HolderID), data)
}

// update runs fn in a read-write transaction, retrying on conflicts.
func (s *Store) update(ctx context.Context, fn func(txn *badger.Txn) error) error {
	var err error
	for range maxConflictRetries {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = s.db.Update(fn)
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
	}
	return err
}

func (s *Store) Acquire(ctx context.Context, l lease.Lease, now time.Time) (*lease.Lease, error) {
	stored := l
	err := s.update(ctx, func(txn *badger.Txn) error {
		stored = l
		existing, err := getLease(txn, leaseKey(l.ScopeID, l.HolderID))
		switch {
		case err == nil:
			if existing.Active(now) {
				stored.AcquiredAt = existing.AcquiredAt
			}
		case errors.Is(err, badger.ErrKeyNotFound):
		default:
			return err
		}
		return putLease(txn, stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) Heartbeat(ctx context.Context, scopeID, holderID string, now time.Time) (*lease.Lease, error) {
	var stored lease.Lease
	err := s.update(ctx, func(txn *badger.Txn) error {
		existing, err := getLease(txn, leaseKey(scopeID, holderID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("lease %s/%s: %w", scopeID, holderID, lease.ErrNoSuchLease)
		}
		if err != nil {
			return err
		}
		if !existing.Active(now) {
			return fmt.Errorf("lease %s/%s expired: %w", scopeID, holderID, lease.ErrNoSuchLease)
		}
		existing.LastHeartbeatAt = now
		stored = *existing
		return putLease(txn, stored)
	})
	if err != nil {
		return nil, err
	}
	return &stored, nil
}

func (s *Store) Release(ctx context.Context, scopeID, holderID string) error {
	return s.update(ctx, func(txn *badger.Txn) error {
		err := txn.Delete(leaseKey(scopeID, holderID))
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
}

func (s *Store) List(ctx context.Context) ([]lease.Lease, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []lease.Lease
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixLease)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var l lease.Lease
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &l)
			}); err != nil {
				return fmt.Errorf("decode lease %q: %w", it.Item().Key(), err)
			}
			out = append(out, l)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
