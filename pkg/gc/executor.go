package gc

import (
	"context"
	"errors"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/filestore"
)

// DefaultBatchSize is the number of candidates handed to the file store per
// DeleteBatch call.
const DefaultBatchSize = 100

// Executor deletes approved candidates: the file first, then the row.
//
// Item failures never abort the run. They are collected in the Outcome and
// the executor moves on to the next candidate.
type Executor struct {
	assets    asset.Store
	files     filestore.Store
	batchSize int
}

// NewExecutor returns an Executor. A non-positive batchSize selects
// DefaultBatchSize.
func NewExecutor(assets asset.Store, files filestore.Store, batchSize int) *Executor {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Executor{assets: assets, files: files, batchSize: batchSize}
}

// Execute deletes candidates in batches.
//
// Context Cancellation:
// The context is checked between batches. Once cancelled, every candidate not
// yet processed is reported as a failure at stage "cancelled".
func (e *Executor) Execute(ctx context.Context, candidates []Candidate) *Outcome {
	out := &Outcome{
		DeletedIDs:   []asset.ID{},
		DeletedFiles: []string{},
		Failures:     []Failure{},
	}

	for i := 0; i < len(candidates); i += e.batchSize {
		if err := ctx.Err(); err != nil {
			e.cancelRemaining(out, candidates[i:], err)
			break
		}

		end := min(i+e.batchSize, len(candidates))
		e.executeBatch(ctx, candidates[i:end], out)

		logger.Debug("GC: Processed batch %d-%d: %d rows deleted, %d failures so far",
			i, end, len(out.DeletedIDs), len(out.Failures))
	}

	return out
}

func (e *Executor) executeBatch(ctx context.Context, batch []Candidate, out *Outcome) {
	paths := make([]string, 0, len(batch))
	for _, c := range batch {
		if !c.FileMissing {
			paths = append(paths, c.Path)
		}
	}

	var fileErrs map[string]error
	if len(paths) > 0 {
		// A batch-level error is the context; per-path entries already
		// carry it for everything the store did not reach.
		fileErrs, _ = e.files.DeleteBatch(ctx, paths)
	}

	for _, c := range batch {
		if !c.FileMissing {
			if err := fileErrs[c.Path]; err != nil {
				if !errors.Is(err, filestore.ErrFileNotFound) {
					out.Failures = append(out.Failures, e.failure(ctx, c, StageFile, err))
					logger.Warn("GC: Failed to delete file %s (asset %s): %v", c.Path, assetID(c), err)
					continue
				}
				logger.Debug("GC: File %s already absent", c.Path)
			} else {
				out.DeletedFiles = append(out.DeletedFiles, c.Path)
				out.FreedBytes += c.Size
			}
		}

		if c.Asset == nil {
			continue
		}

		if err := e.assets.DeleteAsset(ctx, c.Asset.ID); err != nil {
			if errors.Is(err, asset.ErrAssetNotFound) {
				out.Skipped = append(out.Skipped, c.Asset.ID)
				continue
			}
			out.Failures = append(out.Failures, e.failure(ctx, c, StageRow, err))
			logger.Warn("GC: Failed to delete asset row %s: %v", c.Asset.ID, err)
			continue
		}
		out.DeletedIDs = append(out.DeletedIDs, c.Asset.ID)
	}
}

func (e *Executor) failure(ctx context.Context, c Candidate, stage string, err error) Failure {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		stage = StageCancelled
	}
	return Failure{AssetID: assetID(c), Path: c.Path, Stage: stage, Reason: err.Error()}
}

func (e *Executor) cancelRemaining(out *Outcome, remaining []Candidate, err error) {
	for _, c := range remaining {
		out.Failures = append(out.Failures, Failure{
			AssetID: assetID(c),
			Path:    c.Path,
			Stage:   StageCancelled,
			Reason:  err.Error(),
		})
	}
	logger.Warn("GC: Sweep cancelled with %d candidates remaining", len(remaining))
}

func assetID(c Candidate) asset.ID {
	if c.Asset == nil {
		return 0
	}
	return c.Asset.ID
}
