package config

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/marmos91/mediagc/internal/logger"
	"github.com/marmos91/mediagc/pkg/filestore"
	filestoreFs "github.com/marmos91/mediagc/pkg/filestore/fs"
	filestoreMemory "github.com/marmos91/mediagc/pkg/filestore/memory"
	filestoreS3 "github.com/marmos91/mediagc/pkg/filestore/s3"
	"github.com/marmos91/mediagc/pkg/lease"
	leaseBadger "github.com/marmos91/mediagc/pkg/lease/badger"
	leaseMemory "github.com/marmos91/mediagc/pkg/lease/memory"
	leaseSqlite "github.com/marmos91/mediagc/pkg/lease/sqlite"
	"github.com/mitchellh/mapstructure"
)

// CreateFileStore creates a file store based on configuration.
//
// The Type field selects the implementation; the matching options map is
// decoded with mapstructure and passed to the store's constructor.
//
// Supported types:
//   - "filesystem": pkg/filestore/fs (local directory tree)
//   - "memory": pkg/filestore/memory (process memory, lost on exit)
//   - "s3": pkg/filestore/s3 (Amazon S3 or compatible storage)
//
// s3Metrics may be nil.
func CreateFileStore(ctx context.Context, cfg *FilesConfig, s3Metrics filestoreS3.Metrics) (filestore.WritableStore, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemFileStore(ctx, cfg.Filesystem)
	case "memory":
		logger.Warn("Using in-memory file store: files are lost on exit")
		return filestoreMemory.NewStore(), nil
	case "s3":
		return createS3FileStore(ctx, cfg.S3, s3Metrics)
	default:
		return nil, fmt.Errorf("unknown file store type: %q", cfg.Type)
	}
}

// createFilesystemFileStore creates a filesystem-based file store.
func createFilesystemFileStore(ctx context.Context, options map[string]any) (filestore.WritableStore, error) {
	type FilesystemStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg FilesystemStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem file store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("filesystem file store: path is required")
	}

	store, err := filestoreFs.NewStore(ctx, storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem file store: %w", err)
	}

	return store, nil
}

// createS3FileStore creates an S3-based file store.
func createS3FileStore(ctx context.Context, options map[string]any, m filestoreS3.Metrics) (filestore.WritableStore, error) {
	type S3StoreConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		ForcePathStyle  bool   `mapstructure:"force_path_style"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var storeCfg S3StoreConfig
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 file store config: %w", err)
	}

	if storeCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 file store: bucket is required")
	}
	if storeCfg.Region == "" {
		return nil, fmt.Errorf("S3 file store: region is required")
	}

	client, err := filestoreS3.NewClient(ctx, filestoreS3.ClientConfig{
		Region:          storeCfg.Region,
		Endpoint:        storeCfg.Endpoint,
		AccessKeyID:     storeCfg.AccessKeyID,
		SecretAccessKey: storeCfg.SecretAccessKey,
		ForcePathStyle:  storeCfg.ForcePathStyle,
		MaxRetries:      storeCfg.MaxRetries,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 client: %w", err)
	}

	store, err := filestoreS3.NewStore(ctx, filestoreS3.Config{
		Client:    client,
		Bucket:    storeCfg.Bucket,
		KeyPrefix: storeCfg.KeyPrefix,
		Metrics:   m,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 file store: %w", err)
	}

	logger.Info("S3 file store: bucket=%s region=%s prefix=%q", storeCfg.Bucket, storeCfg.Region, storeCfg.KeyPrefix)

	return store, nil
}

// CreateLeaseStore creates an edit lease store based on configuration.
//
// Supported types:
//   - "sqlite": the edit_leases table of the catalog (db must be non-nil)
//   - "badger": pkg/lease/badger (embedded key-value store)
//   - "memory": pkg/lease/memory (single process only)
func CreateLeaseStore(ctx context.Context, cfg *LeasesConfig, db *sql.DB) (lease.Store, error) {
	switch cfg.Type {
	case "sqlite":
		if db == nil {
			return nil, fmt.Errorf("sqlite lease store: catalog connection is required")
		}
		return leaseSqlite.NewStore(db), nil
	case "badger":
		return createBadgerLeaseStore(ctx, cfg.Badger)
	case "memory":
		logger.Warn("Using in-memory lease store: leases are not shared between processes")
		return leaseMemory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown lease store type: %q", cfg.Type)
	}
}

// createBadgerLeaseStore creates a BadgerDB-backed lease store.
func createBadgerLeaseStore(ctx context.Context, options map[string]any) (lease.Store, error) {
	type BadgerLeaseStoreConfig struct {
		Path     string `mapstructure:"path"`
		InMemory bool   `mapstructure:"in_memory"`
	}

	var storeCfg BadgerLeaseStoreConfig
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger lease store config: %w", err)
	}

	if storeCfg.Path == "" && !storeCfg.InMemory {
		return nil, fmt.Errorf("badger lease store: path is required")
	}

	store, err := leaseBadger.NewStore(ctx, leaseBadger.Config{
		DBPath:   storeCfg.Path,
		InMemory: storeCfg.InMemory,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger lease store: %w", err)
	}

	return store, nil
}
