package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/marmos91/mediagc/pkg/lease"
	"github.com/marmos91/mediagc/pkg/reconcile"
	"github.com/marmos91/mediagc/pkg/reference"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// Default Strategy:
//   - Zero values (0, "", nil) are replaced with defaults
//   - Explicit values are preserved
//   - Booleans defaulting to true are seeded in viper, not here
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyServerDefaults(&cfg.Server)
	applyCatalogDefaults(&cfg.Catalog)
	applyFilesDefaults(&cfg.Files)
	applyLeasesDefaults(&cfg.Leases)
	applyGCDefaults(&cfg.GC)

	if len(cfg.References) == 0 {
		cfg.References = reference.DefaultSources()
	}
	for i := range cfg.References {
		if cfg.References[i].OwnerColumn == "" {
			cfg.References[i].OwnerColumn = "id"
		}
	}
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

func applyServerDefaults(cfg *ServerConfig) {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}

	if cfg.API.Port == 0 {
		cfg.API.Port = 8080
	}
	if cfg.API.SweepInterval == 0 {
		cfg.API.SweepInterval = time.Minute
	}
	if cfg.API.SweepBurst == 0 {
		cfg.API.SweepBurst = 1
	}

	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

func applyCatalogDefaults(cfg *CatalogConfig) {
	if cfg.Path == "" {
		cfg.Path = filepath.Join(getConfigDir(), "catalog.db")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
}

func applyFilesDefaults(cfg *FilesConfig) {
	if cfg.Type == "" {
		cfg.Type = "filesystem"
	}

	if cfg.Type == "filesystem" {
		if cfg.Filesystem == nil {
			cfg.Filesystem = make(map[string]any)
		}
		if _, ok := cfg.Filesystem["path"]; !ok {
			cfg.Filesystem["path"] = "/tmp/mediagc-files"
		}
	}

	if cfg.Type == "s3" {
		if cfg.S3 == nil {
			cfg.S3 = make(map[string]any)
		}
		if _, ok := cfg.S3["region"]; !ok {
			cfg.S3["region"] = "us-east-1"
		}
	}
}

func applyLeasesDefaults(cfg *LeasesConfig) {
	if cfg.Type == "" {
		cfg.Type = "sqlite"
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = lease.DefaultTTL
	}
	if cfg.MaxTTL == 0 {
		cfg.MaxTTL = lease.DefaultMaxTTL
	}
}

func applyGCDefaults(cfg *GCConfig) {
	if cfg.Interval == 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = gc.DefaultBatchSize
	}
	if cfg.CheckConcurrency == 0 {
		cfg.CheckConcurrency = reconcile.DefaultConcurrency
	}
	if cfg.SweepTimeout == 0 {
		cfg.SweepTimeout = 10 * time.Minute
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Server: ServerConfig{
			API: APIConfig{Enabled: true},
		},
		GC: GCConfig{Enabled: true},
	}
	ApplyDefaults(cfg)
	return cfg
}
