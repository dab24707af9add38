package metrics

import "time"

// Sweep outcomes used as the "outcome" label.
const (
	OutcomeCompleted = "completed"
	OutcomeDeferred  = "deferred"
	OutcomeDryRun    = "dry_run"
	OutcomeFailed    = "failed"
)

// GCMetrics provides observability for sweeps.
//
// This interface is optional - a nil GCMetrics passed to the collector is
// replaced by the no-op implementation.
type GCMetrics interface {
	// ObserveSweep records one finished sweep with its outcome and duration.
	ObserveSweep(outcome string, duration time.Duration)

	// RecordClassification sets the gauges describing the latest
	// classification.
	RecordClassification(reachable, orphaned, broken, stale, untracked int)

	// RecordDeletions counts deleted asset rows, deleted files and freed bytes.
	RecordDeletions(assets, files int, freedBytes int64)

	// RecordFailures counts per-candidate deletion failures at a stage
	// ("file", "row", "cancelled").
	RecordFailures(stage string, count int)

	// SetActiveLeases sets the number of active edit leases seen by the
	// latest lease check.
	SetActiveLeases(count int)
}

// NewNoopGCMetrics returns a GCMetrics that records nothing.
func NewNoopGCMetrics() GCMetrics {
	return noopGCMetrics{}
}

// noopGCMetrics is a no-op implementation of GCMetrics with zero overhead.
type noopGCMetrics struct{}

func (noopGCMetrics) ObserveSweep(outcome string, duration time.Duration)                    {}
func (noopGCMetrics) RecordClassification(reachable, orphaned, broken, stale, untracked int) {}
func (noopGCMetrics) RecordDeletions(assets, files int, freedBytes int64)                    {}
func (noopGCMetrics) RecordFailures(stage string, count int)                                 {}
func (noopGCMetrics) SetActiveLeases(count int)                                              {}
