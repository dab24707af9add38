// Package gc reclaims media assets that no owner record references.
//
// A sweep reads every owner reference, classifies the stored assets as
// reachable or orphaned, reconciles rows against the file store, and deletes
// the orphans. Assets may look orphaned between an upload and the request
// that links it, so a sweep is deferred entirely while any edit lease is
// active.
package gc

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/marmos91/mediagc/pkg/lease"
	"github.com/marmos91/mediagc/pkg/metrics"
	"github.com/marmos91/mediagc/pkg/reachability"
	"github.com/marmos91/mediagc/pkg/reconcile"
	"github.com/marmos91/mediagc/pkg/reference"
)

// ReferenceScanner extracts owner references. Implemented by
// *reference.Scanner.
type ReferenceScanner interface {
	Scan(ctx context.Context) ([]reference.Reference, error)
}

// LeaseGate reports edit lease state. Implemented by *lease.Manager.
type LeaseGate interface {
	Status(ctx context.Context) (*lease.Status, error)
}

// Config contains configuration for the collector.
type Config struct {
	// Enabled controls whether the background worker runs (default: true
	// via config defaults). Manual sweeps work regardless.
	Enabled bool

	// Interval is how often the background worker sweeps (default: 24h)
	Interval time.Duration

	// BatchSize is how many candidates are deleted per batch (default: 100)
	BatchSize int

	// DryRun reports candidates without deleting anything.
	DryRun bool

	// DeleteUntracked adds untracked files to the candidate set. When false
	// they are only reported.
	DeleteUntracked bool

	// UntrackedGracePeriod is the minimum age before a file without a row
	// counts as untracked.
	UntrackedGracePeriod time.Duration

	// CheckConcurrency bounds concurrent file existence checks (default: 8)
	CheckConcurrency int

	// SweepTimeout bounds each background sweep (default: 10m)
	SweepTimeout time.Duration

	// Now is the clock for grace period evaluation. Default: time.Now
	Now func() time.Time
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = 24 * time.Hour
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.CheckConcurrency <= 0 {
		c.CheckConcurrency = reconcile.DefaultConcurrency
	}
	if c.SweepTimeout <= 0 {
		c.SweepTimeout = 10 * time.Minute
	}
	if c.Now == nil {
		c.Now = time.Now
	}
}

// Collector coordinates sweeps.
//
// Thread Safety: Safe for concurrent use. Sweeps are serialized; a second
// RunSweep waits for the first and then observes its deletions.
type Collector struct {
	scanner    ReferenceScanner
	assets     asset.Store
	leases     LeaseGate
	reconciler *reconcile.Reconciler
	executor   *Executor
	metrics    metrics.GCMetrics
	config     Config

	sweepMu   sync.Mutex
	startOnce sync.Once
	stopOnce  sync.Once
	started   chan struct{}
	stopCh    chan struct{}
	doneCh    chan struct{}
}

// NewCollector creates a collector. It is not started; call Start for
// periodic sweeps or RunSweep for a single pass. A nil m disables metrics.
func NewCollector(
	scanner ReferenceScanner,
	assets asset.Store,
	files filestore.Store,
	leases LeaseGate,
	config Config,
	m metrics.GCMetrics,
) (*Collector, error) {
	if scanner == nil || assets == nil || files == nil || leases == nil {
		return nil, fmt.Errorf("collector requires a reference scanner, asset store, file store and lease gate")
	}

	config.applyDefaults()
	if m == nil {
		m = metrics.NewNoopGCMetrics()
	}

	return &Collector{
		scanner: scanner,
		assets:  assets,
		leases:  leases,
		reconciler: reconcile.New(files, reconcile.Config{
			GracePeriod: config.UntrackedGracePeriod,
			Concurrency: config.CheckConcurrency,
			Now:         config.Now,
		}),
		executor: NewExecutor(assets, files, config.BatchSize),
		metrics:  m,
		config:   config,
		started:  make(chan struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Config returns the effective configuration.
func (c *Collector) Config() Config {
	return c.config
}

// Start begins background sweeps on the configured interval. Safe to call
// multiple times; only the first call starts the worker.
func (c *Collector) Start() {
	if !c.config.Enabled {
		logger.Info("Garbage collection disabled")
		return
	}

	c.startOnce.Do(func() {
		logger.Info("Starting garbage collector: interval=%s batch_size=%d dry_run=%v delete_untracked=%v",
			c.config.Interval, c.config.BatchSize, c.config.DryRun, c.config.DeleteUntracked)
		close(c.started)
		go c.worker()
	})
}

// Stop signals the worker and waits for an in-progress sweep to finish.
// Returns immediately if the worker was never started. Safe to call multiple
// times.
func (c *Collector) Stop(ctx context.Context) error {
	select {
	case <-c.started:
	default:
		return nil
	}

	c.stopOnce.Do(func() {
		logger.Info("Stopping garbage collector...")
		close(c.stopCh)
	})

	select {
	case <-c.doneCh:
		logger.Info("Garbage collector stopped successfully")
		return nil
	case <-ctx.Done():
		logger.Warn("Garbage collector shutdown timeout")
		return ctx.Err()
	}
}

func (c *Collector) worker() {
	defer close(c.doneCh)

	ticker := time.NewTicker(c.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), c.config.SweepTimeout)
			result, err := c.RunSweep(ctx)
			cancel()

			if err != nil {
				logger.Error("Garbage collection failed: %v", err)
			} else {
				logger.Info("Garbage collection completed: %s", result.Summary())
			}

		case <-c.stopCh:
			return
		}
	}
}

// RunSweep runs one sweep using the configured dry-run mode.
func (c *Collector) RunSweep(ctx context.Context) (*SweepResult, error) {
	return c.sweep(ctx, c.config.DryRun)
}

// Preview runs a dry-run sweep regardless of configuration.
func (c *Collector) Preview(ctx context.Context) (*SweepResult, error) {
	return c.sweep(ctx, true)
}

// Classify returns the current classification and reconciliation without
// consulting leases or deleting anything.
func (c *Collector) Classify(ctx context.Context) (*Report, error) {
	report, _, err := c.classify(ctx, "classify")
	return report, err
}

// LeaseStatus returns the lease table with per-lease activity.
func (c *Collector) LeaseStatus(ctx context.Context) (*lease.Status, error) {
	status, err := c.leases.Status(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read leases: %w", err)
	}
	c.metrics.SetActiveLeases(countActive(status))
	return status, nil
}

// sweep performs a single collection pass:
//  1. Defer if any edit lease is active
//  2. Scan references, classify assets, reconcile against the file store
//  3. Build candidates: orphaned assets plus (optionally) untracked files
//  4. Delete candidates, unless dry run
//
// Only unreachable stores fail the sweep. Item failures are reported in the
// result.
func (c *Collector) sweep(ctx context.Context, dryRun bool) (*SweepResult, error) {
	c.sweepMu.Lock()
	defer c.sweepMu.Unlock()

	result := &SweepResult{
		ID:        uuid.NewString(),
		StartTime: time.Now(),
		DryRun:    dryRun,
		Outcome: Outcome{
			DeletedIDs:   []asset.ID{},
			DeletedFiles: []string{},
			Failures:     []Failure{},
		},
	}
	id := result.ID

	logger.Info("GC %s: Phase 1 - Checking edit leases...", id)

	status, err := c.leases.Status(ctx)
	if err != nil {
		return c.fail(result, fmt.Errorf("failed to check leases: %w", err))
	}
	active := countActive(status)
	c.metrics.SetActiveLeases(active)

	if status.Active {
		result.Deferred = true
		result.EndTime = time.Now()
		logger.Info("GC %s: Deferred, %d active edit lease(s)", id, active)
		c.metrics.ObserveSweep(metrics.OutcomeDeferred, result.Duration())
		return result, nil
	}

	report, classification, err := c.classify(ctx, id)
	if err != nil {
		return c.fail(result, err)
	}
	result.Counts = report.Counts

	logger.Info("GC %s: Phase 3 - Selecting candidates...", id)
	result.Candidates = c.candidates(classification, report)

	if len(result.Candidates) == 0 {
		logger.Info("GC %s: No deletion candidates found", id)
		return c.finish(result), nil
	}

	if dryRun {
		logger.Info("GC %s: DRY RUN - Would delete %d items:", id, len(result.Candidates))
		for i, cand := range result.Candidates {
			if i >= 10 {
				logger.Info("  ... and %d more", len(result.Candidates)-10)
				break
			}
			if cand.Asset != nil {
				logger.Info("  - asset %s (%s)", cand.Asset.ID, cand.Path)
			} else {
				logger.Info("  - untracked file %s", cand.Path)
			}
		}
		return c.finish(result), nil
	}

	logger.Info("GC %s: Phase 4 - Deleting %d candidates in batches of %d...",
		id, len(result.Candidates), c.config.BatchSize)

	result.Outcome = *c.executor.Execute(ctx, result.Candidates)

	c.metrics.RecordDeletions(len(result.DeletedIDs), len(result.DeletedFiles), result.FreedBytes)
	for stage, n := range result.FailureCounts() {
		c.metrics.RecordFailures(stage, n)
	}

	return c.finish(result), nil
}

// classify runs scan, classification and reconciliation. The tag prefixes
// log lines (a sweep id, or "classify").
func (c *Collector) classify(ctx context.Context, tag string) (*Report, *reachability.Classification, error) {
	logger.Info("GC %s: Phase 2 - Scanning owner references...", tag)

	refs, err := c.scanner.Scan(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to scan references: %w", err)
	}

	assets, err := c.assets.ListAssets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list assets: %w", err)
	}

	classification := reachability.Classify(refs, assets)

	logger.Info("GC %s: Found %d references, %d assets (%d reachable, %d orphaned, %d broken references)",
		tag, len(refs), len(assets), len(classification.Reachable), len(classification.Orphaned),
		len(classification.Broken))

	recon, err := c.reconciler.Reconcile(ctx, assets, reference.ProtectedPaths(refs))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to reconcile file store: %w", err)
	}

	report := &Report{
		Reachable: classification.Reachable,
		Orphaned:  classification.Orphaned,
		Broken:    classification.Broken,
		Stale:     recon.StaleRecords,
		Untracked: recon.UntrackedFiles,
		Protected: recon.ProtectedFiles,
		Pending:   recon.PendingFiles,
	}
	report.Counts = Counts{
		Reachable: len(report.Reachable),
		Orphaned:  len(report.Orphaned),
		Broken:    len(report.Broken),
		Stale:     len(report.Stale),
		Untracked: len(report.Untracked),
		Protected: len(report.Protected),
		Pending:   len(report.Pending),
	}

	for _, s := range report.Stale {
		if classification.IsReachable(s.ID) {
			logger.Warn("GC %s: Reachable asset %s has no file at %s", tag, s.ID, s.RelativePath)
		}
	}

	c.metrics.RecordClassification(report.Counts.Reachable, report.Counts.Orphaned,
		report.Counts.Broken, report.Counts.Stale, report.Counts.Untracked)

	return report, classification, nil
}

// candidates selects deletions. Reachable assets are never selected, even
// when their file is missing.
func (c *Collector) candidates(classification *reachability.Classification, report *Report) []Candidate {
	stale := make(map[asset.ID]struct{}, len(report.Stale))
	for _, a := range report.Stale {
		stale[a.ID] = struct{}{}
	}

	out := make([]Candidate, 0, len(classification.Orphaned))
	for i := range classification.Orphaned {
		a := classification.Orphaned[i]
		if classification.IsReachable(a.ID) {
			continue
		}
		_, missing := stale[a.ID]
		out = append(out, Candidate{
			Asset:       &a,
			Path:        asset.CleanPath(a.RelativePath),
			Size:        a.SizeBytes,
			FileMissing: missing,
		})
	}

	if c.config.DeleteUntracked {
		for _, f := range report.Untracked {
			out = append(out, Candidate{Path: f.Path, Size: f.Size})
		}
	}

	return out
}

func (c *Collector) finish(result *SweepResult) *SweepResult {
	result.EndTime = time.Now()

	outcome := metrics.OutcomeCompleted
	if result.DryRun {
		outcome = metrics.OutcomeDryRun
	}
	c.metrics.ObserveSweep(outcome, result.Duration())

	logger.Info("GC %s: Completed - %s", result.ID, result.Summary())
	return result
}

func (c *Collector) fail(result *SweepResult, err error) (*SweepResult, error) {
	result.EndTime = time.Now()
	c.metrics.ObserveSweep(metrics.OutcomeFailed, result.Duration())
	logger.Error("GC %s: Sweep failed: %v", result.ID, err)
	return nil, err
}

func countActive(status *lease.Status) int {
	n := 0
	for _, l := range status.Leases {
		if l.Active {
			n++
		}
	}
	return n
}
