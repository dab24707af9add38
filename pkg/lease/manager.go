package lease

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/marmos91/mediagc/internal/logger"
)

const (
	// DefaultTTL is used when Acquire is called with a zero ttl and the
	// manager has no configured default.
	DefaultTTL = 90 * time.Second

	// DefaultMaxTTL caps the ttl a holder may request.
	DefaultMaxTTL = 15 * time.Minute
)

// Config configures a Manager.
type Config struct {
	// DefaultTTL applies when Acquire is called with ttl == 0. Default: 90s
	DefaultTTL time.Duration

	// MaxTTL clamps requested ttls. Default: 15m
	MaxTTL time.Duration

	// Now is the clock. Default: time.Now
	Now func() time.Time
}

// Status is the operational view of the lease table.
type Status struct {
	Active bool          `json:"active"`
	Leases []LeaseStatus `json:"leases"`
}

// LeaseStatus is one lease with its evaluated activity.
type LeaseStatus struct {
	Lease
	Active    bool      `json:"active"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Manager is the lease API used by editing-session handlers and the sweep
// coordinator.
type Manager struct {
	store Store
	cfg   Config
}

// NewManager returns a Manager over store.
func NewManager(store Store, cfg Config) *Manager {
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = DefaultTTL
	}
	if cfg.MaxTTL <= 0 {
		cfg.MaxTTL = DefaultMaxTTL
	}
	if cfg.DefaultTTL > cfg.MaxTTL {
		cfg.DefaultTTL = cfg.MaxTTL
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Manager{store: store, cfg: cfg}
}

func (m *Manager) now() time.Time {
	return m.cfg.Now().UTC()
}

func validateKey(scopeID, holderID string) error {
	if scopeID == "" || holderID == "" {
		return fmt.Errorf("%w: scope and holder are required", ErrInvalidLease)
	}
	return nil
}

// Acquire creates or renews the (scope, holder) lease. A zero ttl selects
// the configured default; a ttl above the configured maximum is clamped.
// Sub-millisecond ttls are rounded up to the next millisecond.
func (m *Manager) Acquire(ctx context.Context, scopeID, holderID string, ttl time.Duration) (*Lease, error) {
	if err := validateKey(scopeID, holderID); err != nil {
		return nil, err
	}
	switch {
	case ttl < 0:
		return nil, fmt.Errorf("%w: negative ttl %s", ErrInvalidLease, ttl)
	case ttl == 0:
		ttl = m.cfg.DefaultTTL
	}
	// Stores persist whole milliseconds; never let a short ttl round to zero.
	if rem := ttl % time.Millisecond; rem != 0 {
		ttl += time.Millisecond - rem
	}
	if ttl > m.cfg.MaxTTL {
		ttl = m.cfg.MaxTTL
	}

	now := m.now()
	l, err := m.store.Acquire(ctx, Lease{
		ScopeID:         scopeID,
		HolderID:        holderID,
		AcquiredAt:      now,
		LastHeartbeatAt: now,
		TTL:             ttl,
	}, now)
	if err != nil {
		return nil, fmt.Errorf("acquire lease %s/%s: %w", scopeID, holderID, err)
	}

	logger.Debug("Lease acquired: scope=%s holder=%s ttl=%s", scopeID, holderID, ttl)
	return l, nil
}

// Heartbeat refreshes an active lease. Returns ErrNoSuchLease when the lease
// is absent or already expired; the holder must Acquire again.
func (m *Manager) Heartbeat(ctx context.Context, scopeID, holderID string) (*Lease, error) {
	if err := validateKey(scopeID, holderID); err != nil {
		return nil, err
	}
	l, err := m.store.Heartbeat(ctx, scopeID, holderID, m.now())
	if err != nil {
		return nil, fmt.Errorf("heartbeat lease %s/%s: %w", scopeID, holderID, err)
	}
	return l, nil
}

// Release removes the lease. Idempotent.
func (m *Manager) Release(ctx context.Context, scopeID, holderID string) error {
	if err := validateKey(scopeID, holderID); err != nil {
		return err
	}
	if err := m.store.Release(ctx, scopeID, holderID); err != nil {
		return fmt.Errorf("release lease %s/%s: %w", scopeID, holderID, err)
	}
	logger.Debug("Lease released: scope=%s holder=%s", scopeID, holderID)
	return nil
}

// AnyActive reports whether any lease, in any scope, is active now.
func (m *Manager) AnyActive(ctx context.Context) (bool, error) {
	leases, err := m.store.List(ctx)
	if err != nil {
		return false, fmt.Errorf("list leases: %w", err)
	}
	now := m.now()
	for _, l := range leases {
		if l.Active(now) {
			return true, nil
		}
	}
	return false, nil
}

// Status returns every stored lease with its activity evaluated now.
// Expired leases are listed (inactive) until their holder re-acquires or
// releases them.
func (m *Manager) Status(ctx context.Context) (*Status, error) {
	leases, err := m.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list leases: %w", err)
	}

	sort.Slice(leases, func(i, j int) bool {
		if leases[i].ScopeID != leases[j].ScopeID {
			return leases[i].ScopeID < leases[j].ScopeID
		}
		return leases[i].HolderID < leases[j].HolderID
	})

	now := m.now()
	status := &Status{Leases: make([]LeaseStatus, 0, len(leases))}
	for _, l := range leases {
		active := l.Active(now)
		status.Active = status.Active || active
		status.Leases = append(status.Leases, LeaseStatus{
			Lease:     l,
			Active:    active,
			ExpiresAt: l.ExpiresAt(),
		})
	}
	return status, nil
}

// Close closes the underlying store.
func (m *Manager) Close() error {
	return m.store.Close()
}
