package config

import (
	"context"
	"errors"
	"fmt"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/api"
	assetSqlite "github.com/marmos91/mediagc/pkg/asset/sqlite"
	"github.com/marmos91/mediagc/pkg/catalog"
	"github.com/marmos91/mediagc/pkg/filestore"
	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/marmos91/mediagc/pkg/lease"
	"github.com/marmos91/mediagc/pkg/reference"
)

// Runtime holds every component built from a Config.
//
// Components are created in dependency order: metrics, catalog, file store,
// lease store, reference scanner, collector, API server. Close releases them
// in reverse.
type Runtime struct {
	Config    *Config
	Metrics   *MetricsResult
	Catalog   *catalog.DB
	Assets    *assetSqlite.Store
	Files     filestore.WritableStore
	Leases    *lease.Manager
	Scanner   *reference.Scanner
	Collector *gc.Collector

	// API is nil when server.api.enabled is false.
	API *api.Server
}

// Build creates all components described by cfg. On error, anything already
// opened is closed.
func Build(ctx context.Context, cfg *Config) (_ *Runtime, err error) {
	rt := &Runtime{Config: cfg}
	defer func() {
		if err != nil {
			_ = rt.Close()
		}
	}()

	rt.Metrics = InitializeMetrics(cfg)

	rt.Catalog, err = catalog.Open(ctx, catalog.Config{
		Path:         cfg.Catalog.Path,
		BusyTimeout:  cfg.Catalog.BusyTimeout,
		MaxOpenConns: cfg.Catalog.MaxOpenConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	rt.Assets = assetSqlite.NewStore(rt.Catalog.SQL())

	rt.Files, err = CreateFileStore(ctx, &cfg.Files, rt.Metrics.S3Metrics)
	if err != nil {
		return nil, err
	}

	var leaseStore lease.Store
	leaseStore, err = CreateLeaseStore(ctx, &cfg.Leases, rt.Catalog.SQL())
	if err != nil {
		return nil, err
	}
	rt.Leases = lease.NewManager(leaseStore, lease.Config{
		DefaultTTL: cfg.Leases.DefaultTTL,
		MaxTTL:     cfg.Leases.MaxTTL,
	})

	rt.Scanner, err = reference.NewScanner(rt.Catalog.SQL(), cfg.References)
	if err != nil {
		return nil, fmt.Errorf("failed to create reference scanner: %w", err)
	}

	rt.Collector, err = gc.NewCollector(rt.Scanner, rt.Assets, rt.Files, rt.Leases, gc.Config{
		Enabled:              cfg.GC.Enabled,
		Interval:             cfg.GC.Interval,
		BatchSize:            cfg.GC.BatchSize,
		DryRun:               cfg.GC.DryRun,
		DeleteUntracked:      cfg.GC.DeleteUntracked,
		UntrackedGracePeriod: cfg.GC.UntrackedGracePeriod,
		CheckConcurrency:     cfg.GC.CheckConcurrency,
		SweepTimeout:         cfg.GC.SweepTimeout,
	}, rt.Metrics.GCMetrics)
	if err != nil {
		return nil, fmt.Errorf("failed to create collector: %w", err)
	}

	if cfg.Server.API.Enabled {
		rt.API = api.NewServer(api.ServerConfig{
			Port:          cfg.Server.API.Port,
			SweepInterval: cfg.Server.API.SweepInterval,
			SweepBurst:    cfg.Server.API.SweepBurst,
			SweepTimeout:  cfg.GC.SweepTimeout,
		}, rt.Collector, rt.Leases, rt.Catalog.Healthcheck)
	}

	logger.Debug("Runtime built: files=%s leases=%s references=%d",
		cfg.Files.Type, cfg.Leases.Type, len(cfg.References))

	return rt, nil
}

// Close releases the lease store and the catalog. Servers and the collector
// are stopped by the caller, which owns their lifecycle.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Leases != nil {
		if err := rt.Leases.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close lease store: %w", err))
		}
	}
	if rt.Catalog != nil {
		if err := rt.Catalog.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close catalog: %w", err))
		}
	}
	return errors.Join(errs...)
}
