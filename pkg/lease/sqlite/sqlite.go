// Package sqlite implements lease.Store on the catalog's edit_leases table.
//
// This is the default lease store: request handlers and sweeps on every
// service instance share one table, so all of them observe the same lease
// state. Activity is evaluated inside each statement against the caller's
// clock; no row is ever locked across statements.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/marmos91/mediagc/pkg/lease"
)

// Timestamps are unix nanoseconds; ttl is milliseconds. A lease is active
// while now - last_heartbeat_at < ttl_ms * 1e6.
const (
	acquireSQL = `
INSERT INTO edit_leases (scope_id, holder_id, acquired_at, last_heartbeat_at, ttl_ms)
VALUES (?1, ?2, ?3, ?3, ?4)
ON CONFLICT (scope_id, holder_id) DO UPDATE SET
	acquired_at = CASE
		WHEN ?3 - edit_leases.last_heartbeat_at < edit_leases.ttl_ms * 1000000
		THEN edit_leases.acquired_at
		ELSE excluded.acquired_at
	END,
	last_heartbeat_at = excluded.last_heartbeat_at,
	ttl_ms = excluded.ttl_ms
RETURNING acquired_at, last_heartbeat_at, ttl_ms`

	heartbeatSQL = `
UPDATE edit_leases SET last_heartbeat_at = ?3
WHERE scope_id = ?1 AND holder_id = ?2 AND ?3 - last_heartbeat_at < ttl_ms * 1000000
RETURNING acquired_at, last_heartbeat_at, ttl_ms`

	releaseSQL = `DELETE FROM edit_leases WHERE scope_id = ? AND holder_id = ?`

	listSQL = `SELECT scope_id, holder_id, acquired_at, last_heartbeat_at, ttl_ms FROM edit_leases`
)

// Store is a SQL lease store over an open catalog connection pool. It does
// not own the pool; Close is a no-op.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func toLease(scopeID, holderID string, acquired, heartbeat, ttlMs int64) lease.Lease {
	return lease.Lease{
		ScopeID:         scopeID,
		HolderID:        holderID,
		AcquiredAt:      time.Unix(0, acquired).UTC(),
		LastHeartbeatAt: time.Unix(0, heartbeat).UTC(),
		TTL:             time.Duration(ttlMs) * time.Millisecond,
	}
}

func (s *Store) Acquire(ctx context.Context, l lease.Lease, now time.Time) (*lease.Lease, error) {
	var acquired, heartbeat, ttlMs int64
	err := s.db.QueryRowContext(ctx, acquireSQL,
		l.ScopeID, l.HolderID, now.UnixNano(), l.TTL.Milliseconds(),
	).Scan(&acquired, &heartbeat, &ttlMs)
	if err != nil {
		return nil, fmt.Errorf("upsert lease: %w", err)
	}

	out := toLease(l.ScopeID, l.HolderID, acquired, heartbeat, ttlMs)
	return &out, nil
}

func (s *Store) Heartbeat(ctx context.Context, scopeID, holderID string, now time.Time) (*lease.Lease, error) {
	var acquired, heartbeat, ttlMs int64
	err := s.db.QueryRowContext(ctx, heartbeatSQL, scopeID, holderID, now.UnixNano()).
		Scan(&acquired, &heartbeat, &ttlMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("lease %s/%s: %w", scopeID, holderID, lease.ErrNoSuchLease)
	}
	if err != nil {
		return nil, fmt.Errorf("update lease: %w", err)
	}

	out := toLease(scopeID, holderID, acquired, heartbeat, ttlMs)
	return &out, nil
}

func (s *Store) Release(ctx context.Context, scopeID, holderID string) error {
	if _, err := s.db.ExecContext(ctx, releaseSQL, scopeID, holderID); err != nil {
		return fmt.Errorf("delete lease: %w", err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]lease.Lease, error) {
	rows, err := s.db.QueryContext(ctx, listSQL)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	defer rows.Close()

	var out []lease.Lease
	for rows.Next() {
		var (
			scopeID, holderID          string
			acquired, heartbeat, ttlMs int64
		)
		if err := rows.Scan(&scopeID, &holderID, &acquired, &heartbeat, &ttlMs); err != nil {
			return nil, fmt.Errorf("scan lease: %w", err)
		}
		out = append(out, toLease(scopeID, holderID, acquired, heartbeat, ttlMs))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}
	return out, nil
}

func (s *Store) Close() error {
	return nil
}
