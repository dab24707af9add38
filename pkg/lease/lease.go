// Package lease implements the editing-session leases that gate destructive
// sweeps.
//
// A lease is keyed by (scope, holder): the scope is the project or editing
// context being modified, the holder is the editing party. A lease is active
// while now - LastHeartbeatAt < TTL. Expiry is evaluated when a lease is read,
// never by a timer, so a crashed holder stops blocking collection once its
// TTL has elapsed without anyone releasing it.
//
// The protection is global: while any lease anywhere is active, sweeps are
// deferred. An in-flight edit may be about to link an asset that currently
// looks orphaned (upload, then link, are separate requests).
package lease

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoSuchLease indicates the lease does not exist or has expired.
	ErrNoSuchLease = errors.New("no such lease")

	// ErrInvalidLease indicates an empty scope or holder id, or a negative ttl.
	ErrInvalidLease = errors.New("invalid lease")
)

// Lease is a time-bounded claim that defers sweeps.
type Lease struct {
	ScopeID         string        `json:"scope_id"`
	HolderID        string        `json:"holder_id"`
	AcquiredAt      time.Time     `json:"acquired_at"`
	LastHeartbeatAt time.Time     `json:"last_heartbeat_at"`
	TTL             time.Duration `json:"ttl"`
}

// Active reports whether the lease is active at now.
func (l Lease) Active(now time.Time) bool {
	return now.Sub(l.LastHeartbeatAt) < l.TTL
}

// ExpiresAt returns the instant the lease stops being active unless renewed.
func (l Lease) ExpiresAt() time.Time {
	return l.LastHeartbeatAt.Add(l.TTL)
}

// Store persists leases. Implementations make Acquire and Heartbeat atomic
// with respect to each other and to Release, so a heartbeat racing a release
// never resurrects a lease.
type Store interface {
	// Acquire inserts l, or renews the existing (scope, holder) lease. When
	// the existing lease is still active at now, its AcquiredAt is kept;
	// otherwise the stored lease is replaced by l. Returns the stored lease.
	Acquire(ctx context.Context, l Lease, now time.Time) (*Lease, error)

	// Heartbeat sets LastHeartbeatAt to now if the lease exists and is active
	// at now. Returns an error wrapping ErrNoSuchLease otherwise.
	Heartbeat(ctx context.Context, scopeID, holderID string, now time.Time) (*Lease, error)

	// Release removes the lease. Releasing a missing lease is not an error.
	Release(ctx context.Context, scopeID, holderID string) error

	// List returns every stored lease, active or not.
	List(ctx context.Context) ([]Lease, error)

	// Close releases store resources.
	Close() error
}
