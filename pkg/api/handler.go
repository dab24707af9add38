package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/internal/ratelimiter"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/marmos91/mediagc/pkg/lease"
)

const (
	contentType     = "Content-Type"
	applicationJSON = "application/json"
)

// Sweeper is the collector surface used by the API. Implemented by
// *gc.Collector.
type Sweeper interface {
	RunSweep(ctx context.Context) (*gc.SweepResult, error)
	Preview(ctx context.Context) (*gc.SweepResult, error)
	Classify(ctx context.Context) (*gc.Report, error)
	LeaseStatus(ctx context.Context) (*lease.Status, error)
}

// Leases is the lease surface used by editing sessions. Implemented by
// *lease.Manager.
type Leases interface {
	Acquire(ctx context.Context, scopeID, holderID string, ttl time.Duration) (*lease.Lease, error)
	Heartbeat(ctx context.Context, scopeID, holderID string) (*lease.Lease, error)
	Release(ctx context.Context, scopeID, holderID string) error
}

// HealthFunc reports backing store health. May be nil.
type HealthFunc func(ctx context.Context) error

// HandlerOptions tunes NewHandler.
type HandlerOptions struct {
	SweepInterval time.Duration
	SweepBurst    int

	// SweepTimeout bounds a manually triggered sweep. Default: 10m
	SweepTimeout time.Duration
}

// DefaultSweepTimeout bounds manual sweeps when HandlerOptions.SweepTimeout
// is unset.
const DefaultSweepTimeout = 10 * time.Minute

type handler struct {
	sweeper Sweeper
	leases  Leases
	health  HealthFunc
	limiter *ratelimiter.RateLimiter

	sweepTimeout time.Duration
}

// NewHandler builds the API route table.
func NewHandler(sweeper Sweeper, leases Leases, health HealthFunc, opts HandlerOptions) http.Handler {
	h := &handler{
		sweeper: sweeper,
		leases:  leases,
		health:  health,
		limiter: ratelimiter.New(opts.SweepInterval, opts.SweepBurst),

		sweepTimeout: opts.SweepTimeout,
	}
	if h.sweepTimeout <= 0 {
		h.sweepTimeout = DefaultSweepTimeout
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/sweep", h.sweep)
	mux.HandleFunc("GET /api/v1/classification", h.classification)
	mux.HandleFunc("GET /api/v1/leases", h.leaseStatus)
	mux.HandleFunc("POST /api/v1/leases/{scope}/{holder}", h.acquire)
	mux.HandleFunc("PUT /api/v1/leases/{scope}/{holder}/heartbeat", h.heartbeat)
	mux.HandleFunc("DELETE /api/v1/leases/{scope}/{holder}", h.release)
	mux.HandleFunc("GET /healthz", h.healthz)
	return mux
}

// jsonOutput is the envelope of every response.
type jsonOutput struct {
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func writeData(w http.ResponseWriter, status int, data any) {
	w.Header().Set(contentType, applicationJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(jsonOutput{Data: data}); err != nil {
		logger.Debug("API: failed to encode response: %v", err)
	}
}

// writeError writes a client-facing message. Internal error text never
// reaches the response; callers log it.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set(contentType, applicationJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(jsonOutput{Error: message}); err != nil {
		logger.Debug("API: failed to encode response: %v", err)
	}
}

// failureView is a deletion failure without the raw error text.
type failureView struct {
	AssetID asset.ID `json:"asset_id,omitempty"`
	Path    string   `json:"path"`
	Stage   string   `json:"stage"`
}

type sweepView struct {
	ID            string         `json:"id"`
	Deferred      bool           `json:"deferred"`
	DryRun        bool           `json:"dry_run"`
	Counts        gc.Counts      `json:"counts"`
	Candidates    int            `json:"candidates"`
	DeletedIDs    []asset.ID     `json:"deleted_ids"`
	DeletedFiles  int            `json:"deleted_files"`
	FreedBytes    int64          `json:"freed_bytes"`
	Skipped       int            `json:"skipped"`
	FailureCounts map[string]int `json:"failure_counts"`
	Failures      []failureView  `json:"failures"`
	DurationMs    int64          `json:"duration_ms"`
	Summary       string         `json:"summary"`
}

func newSweepView(r *gc.SweepResult) sweepView {
	v := sweepView{
		ID:            r.ID,
		Deferred:      r.Deferred,
		DryRun:        r.DryRun,
		Counts:        r.Counts,
		Candidates:    len(r.Candidates),
		DeletedIDs:    r.DeletedIDs,
		DeletedFiles:  len(r.DeletedFiles),
		FreedBytes:    r.FreedBytes,
		Skipped:       len(r.Skipped),
		FailureCounts: r.FailureCounts(),
		Failures:      make([]failureView, 0, len(r.Failures)),
		DurationMs:    r.Duration().Milliseconds(),
		Summary:       r.Summary(),
	}
	if v.DeletedIDs == nil {
		v.DeletedIDs = []asset.ID{}
	}
	for _, f := range r.Failures {
		v.Failures = append(v.Failures, failureView{AssetID: f.AssetID, Path: f.Path, Stage: f.Stage})
	}
	return v
}

func (h *handler) sweep(w http.ResponseWriter, r *http.Request) {
	dryRun, err := parseBool(r.URL.Query().Get("dry_run"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "dry_run must be a boolean")
		return
	}

	if !h.limiter.Allow() {
		retry := int(math.Ceil(h.limiter.RetryAfter().Seconds()))
		w.Header().Set("Retry-After", strconv.Itoa(max(retry, 1)))
		writeError(w, http.StatusTooManyRequests, "sweep rate limit exceeded")
		return
	}

	// A started sweep runs to completion even if the client goes away;
	// cancelling mid-batch can leave a file deleted under a surviving row.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.sweepTimeout)
	defer cancel()

	var result *gc.SweepResult
	if dryRun {
		result, err = h.sweeper.Preview(ctx)
	} else {
		result, err = h.sweeper.RunSweep(ctx)
	}
	if err != nil {
		logger.Error("API: sweep failed: %v", err)
		writeError(w, http.StatusInternalServerError, "sweep failed")
		return
	}

	writeData(w, http.StatusOK, newSweepView(result))
}

func (h *handler) classification(w http.ResponseWriter, r *http.Request) {
	report, err := h.sweeper.Classify(r.Context())
	if err != nil {
		logger.Error("API: classification failed: %v", err)
		writeError(w, http.StatusInternalServerError, "classification failed")
		return
	}
	writeData(w, http.StatusOK, report)
}

func (h *handler) leaseStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.sweeper.LeaseStatus(r.Context())
	if err != nil {
		logger.Error("API: lease status failed: %v", err)
		writeError(w, http.StatusInternalServerError, "lease status unavailable")
		return
	}
	writeData(w, http.StatusOK, status)
}

func (h *handler) acquire(w http.ResponseWriter, r *http.Request) {
	var ttl time.Duration
	if raw := r.URL.Query().Get("ttl"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "ttl must be a non-negative duration such as 90s")
			return
		}
		ttl = d
	}

	l, err := h.leases.Acquire(r.Context(), r.PathValue("scope"), r.PathValue("holder"), ttl)
	if err != nil {
		h.leaseError(w, "acquire", err)
		return
	}
	writeData(w, http.StatusOK, l)
}

func (h *handler) heartbeat(w http.ResponseWriter, r *http.Request) {
	l, err := h.leases.Heartbeat(r.Context(), r.PathValue("scope"), r.PathValue("holder"))
	if err != nil {
		h.leaseError(w, "heartbeat", err)
		return
	}
	writeData(w, http.StatusOK, l)
}

func (h *handler) release(w http.ResponseWriter, r *http.Request) {
	if err := h.leases.Release(r.Context(), r.PathValue("scope"), r.PathValue("holder")); err != nil {
		h.leaseError(w, "release", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) leaseError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, lease.ErrInvalidLease):
		writeError(w, http.StatusBadRequest, "invalid lease request")
	case errors.Is(err, lease.ErrNoSuchLease):
		writeError(w, http.StatusNotFound, "no active lease")
	default:
		logger.Error("API: lease %s failed: %v", op, err)
		writeError(w, http.StatusInternalServerError, "lease "+op+" failed")
	}
}

func (h *handler) healthz(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if err := h.health(ctx); err != nil {
			logger.Warn("API: health check failed: %v", err)
			writeError(w, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	writeData(w, http.StatusOK, map[string]string{"status": "ok"})
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}
