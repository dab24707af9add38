package gc

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/marmos91/mediagc/pkg/reachability"
)

// Failure stages.
const (
	StageFile      = "file"
	StageRow       = "row"
	StageCancelled = "cancelled"
)

// Counts summarizes one classification.
type Counts struct {
	Reachable int `json:"reachable"`
	Orphaned  int `json:"orphaned"`
	Broken    int `json:"broken"`
	Stale     int `json:"stale"`
	Untracked int `json:"untracked"`
	Protected int `json:"protected"`
	Pending   int `json:"pending"`
}

// Report is the read-only diagnostic view of the current store state:
// reachability classification plus physical reconciliation.
type Report struct {
	Counts    Counts                         `json:"counts"`
	Reachable []asset.Asset                  `json:"reachable"`
	Orphaned  []asset.Asset                  `json:"orphaned"`
	Broken    []reachability.BrokenReference `json:"broken"`
	Stale     []asset.Asset                  `json:"stale"`
	Untracked []filestore.FileInfo           `json:"untracked"`
	Protected []filestore.FileInfo           `json:"protected"`
	Pending   []filestore.FileInfo           `json:"pending"`
}

// Candidate is one approved deletion. Asset is nil for an untracked file.
type Candidate struct {
	Asset *asset.Asset `json:"asset,omitempty"`
	Path  string       `json:"path"`
	Size  int64        `json:"size"`

	// FileMissing marks a stale row: the file step is skipped.
	FileMissing bool `json:"file_missing,omitempty"`
}

// Failure is one candidate that could not be fully removed.
type Failure struct {
	AssetID asset.ID `json:"asset_id,omitempty"`
	Path    string   `json:"path"`
	Stage   string   `json:"stage"`
	Reason  string   `json:"reason"`
}

// Outcome is what the executor did with a candidate list.
type Outcome struct {
	DeletedIDs   []asset.ID `json:"deleted_ids"`
	DeletedFiles []string   `json:"deleted_files"`
	FreedBytes   int64      `json:"freed_bytes"`

	// Skipped are rows that were already gone when the executor reached
	// them (deleted concurrently). Not counted as deletions.
	Skipped []asset.ID `json:"skipped,omitempty"`

	Failures []Failure `json:"failures"`
}

// FailureCounts groups failures by stage.
func (o *Outcome) FailureCounts() map[string]int {
	counts := make(map[string]int)
	for _, f := range o.Failures {
		counts[f.Stage]++
	}
	return counts
}

// SweepResult is the record of one collection pass.
type SweepResult struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	// Deferred is set when an active lease prevented the sweep. Nothing else
	// is populated in that case.
	Deferred bool `json:"deferred"`
	DryRun   bool `json:"dry_run"`

	Counts     Counts      `json:"counts"`
	Candidates []Candidate `json:"candidates,omitempty"`

	Outcome
}

// Duration returns the total sweep duration.
func (r *SweepResult) Duration() time.Duration {
	if r.EndTime.IsZero() {
		return time.Since(r.StartTime)
	}
	return r.EndTime.Sub(r.StartTime)
}

// Summary returns a human-readable one-line summary.
func (r *SweepResult) Summary() string {
	if r.Deferred {
		return fmt.Sprintf("deferred (active edit lease) duration=%s", r.Duration())
	}
	if r.DryRun {
		return fmt.Sprintf("dry run: reachable=%d orphaned=%d broken=%d stale=%d untracked=%d candidates=%d duration=%s",
			r.Counts.Reachable, r.Counts.Orphaned, r.Counts.Broken, r.Counts.Stale, r.Counts.Untracked,
			len(r.Candidates), r.Duration())
	}
	freed := uint64(0)
	if r.FreedBytes > 0 {
		freed = uint64(r.FreedBytes)
	}
	return fmt.Sprintf("reachable=%d orphaned=%d broken=%d stale=%d untracked=%d deleted=%d files=%d freed=%s skipped=%d failed=%d duration=%s",
		r.Counts.Reachable, r.Counts.Orphaned, r.Counts.Broken, r.Counts.Stale, r.Counts.Untracked,
		len(r.DeletedIDs), len(r.DeletedFiles), humanize.Bytes(freed), len(r.Skipped), len(r.Failures),
		r.Duration())
}
