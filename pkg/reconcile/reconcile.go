// Package reconcile cross-checks asset rows against the physical file store
// in both directions.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/marmos91/mediagc/pkg/reference"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds concurrent existence checks when unset.
const DefaultConcurrency = 8

// Config configures a Reconciler.
type Config struct {
	// GracePeriod is the minimum age of an untracked file before it is
	// reported as untracked. Younger files may belong to an upload that has
	// written its file but not yet its row. Zero disables the grace period.
	GracePeriod time.Duration

	// Concurrency bounds concurrent file existence checks. Default: 8
	Concurrency int

	// Now is the clock used for the grace period. Default: time.Now
	Now func() time.Time
}

// Report is the outcome of one reconciliation.
type Report struct {
	// StaleRecords are asset rows whose file is missing. Reported, never
	// deleted on that basis alone.
	StaleRecords []asset.Asset `json:"stale_records"`

	// UntrackedFiles are files with no asset row, not matched by any path
	// reference and older than the grace period.
	UntrackedFiles []filestore.FileInfo `json:"untracked_files"`

	// ProtectedFiles are files with no asset row that a legacy path
	// reference still points at.
	ProtectedFiles []filestore.FileInfo `json:"protected_files"`

	// PendingFiles are files with no asset row that are still inside the
	// grace period.
	PendingFiles []filestore.FileInfo `json:"pending_files"`
}

// IsStale reports whether the asset with id is in StaleRecords.
func (r *Report) IsStale(id asset.ID) bool {
	for _, a := range r.StaleRecords {
		if a.ID == id {
			return true
		}
	}
	return false
}

// Reconciler compares asset rows with a file store.
type Reconciler struct {
	files filestore.Store
	cfg   Config
}

// New returns a Reconciler over files.
func New(files filestore.Store, cfg Config) *Reconciler {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Reconciler{files: files, cfg: cfg}
}

// Reconcile checks every asset row for its file and every file for its row.
// Files matching any of the protected paths (see reference.ProtectedPaths)
// are never reported as untracked.
//
// Any failure to reach the file store (listing, or an existence check error
// other than "not found") fails the whole reconciliation.
func (r *Reconciler) Reconcile(ctx context.Context, assets []asset.Asset, protected []string) (*Report, error) {
	stale, err := r.findStale(ctx, assets)
	if err != nil {
		return nil, err
	}

	files, err := r.files.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list file store: %w", err)
	}

	tracked := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		tracked[asset.CleanPath(a.RelativePath)] = struct{}{}
	}

	protect := reference.NewPathIndex[struct{}]()
	for _, p := range protected {
		protect.Add(p, struct{}{})
	}
	now := r.cfg.Now()

	report := &Report{StaleRecords: stale}
	for _, f := range files {
		if _, ok := tracked[f.Path]; ok {
			continue
		}
		switch {
		case protect.Matches(f.Path):
			report.ProtectedFiles = append(report.ProtectedFiles, f)
		case r.cfg.GracePeriod > 0 && now.Sub(f.ModTime) < r.cfg.GracePeriod:
			report.PendingFiles = append(report.PendingFiles, f)
		default:
			report.UntrackedFiles = append(report.UntrackedFiles, f)
		}
	}

	logger.Debug("Reconcile: %d rows, %d files, %d stale, %d untracked, %d protected, %d pending",
		len(assets), len(files), len(report.StaleRecords), len(report.UntrackedFiles),
		len(report.ProtectedFiles), len(report.PendingFiles))

	return report, nil
}

func (r *Reconciler) findStale(ctx context.Context, assets []asset.Asset) ([]asset.Asset, error) {
	exists := make([]bool, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for i, a := range assets {
		g.Go(func() error {
			ok, err := r.files.Exists(gctx, a.RelativePath)
			if err != nil {
				return fmt.Errorf("check file for asset %s: %w", a.ID, err)
			}
			exists[i] = ok
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var stale []asset.Asset
	for i, a := range assets {
		if !exists[i] {
			stale = append(stale, a)
		}
	}
	return stale, nil
}
