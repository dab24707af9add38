package config

import (
	"testing"
	"time"

	"github.com/marmos91/mediagc/pkg/gc"
	"github.com/marmos91/mediagc/pkg/lease"
)

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging: LoggingConfig{Level: "error", Format: "json", Output: "stderr"},
		Server: ServerConfig{
			ShutdownTimeout: time.Minute,
			API:             APIConfig{Port: 9000},
		},
		Files:  FilesConfig{Type: "filesystem", Filesystem: map[string]any{"path": "/srv/media"}},
		Leases: LeasesConfig{DefaultTTL: 10 * time.Second},
		GC:     GCConfig{BatchSize: 7},
	}

	ApplyDefaults(cfg)

	if cfg.Logging.Level != "ERROR" {
		t.Errorf("Expected level ERROR, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format json, got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != time.Minute {
		t.Errorf("Expected shutdown timeout 1m, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Server.API.Port != 9000 {
		t.Errorf("Expected API port 9000, got %d", cfg.Server.API.Port)
	}
	if cfg.Files.Filesystem["path"] != "/srv/media" {
		t.Errorf("Expected filesystem path to be preserved, got %v", cfg.Files.Filesystem["path"])
	}
	if cfg.Leases.DefaultTTL != 10*time.Second {
		t.Errorf("Expected default ttl 10s, got %v", cfg.Leases.DefaultTTL)
	}
	if cfg.GC.BatchSize != 7 {
		t.Errorf("Expected batch size 7, got %d", cfg.GC.BatchSize)
	}
}

func TestApplyDefaults_FillsZeroValues(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Server.API.Port != 8080 {
		t.Errorf("Expected API port 8080, got %d", cfg.Server.API.Port)
	}
	if cfg.Server.Metrics.Port != 9090 {
		t.Errorf("Expected metrics port 9090, got %d", cfg.Server.Metrics.Port)
	}
	if cfg.Server.API.SweepBurst != 1 {
		t.Errorf("Expected sweep burst 1, got %d", cfg.Server.API.SweepBurst)
	}
	if cfg.Catalog.Path == "" {
		t.Error("Expected a default catalog path")
	}
	if cfg.Leases.DefaultTTL != lease.DefaultTTL || cfg.Leases.MaxTTL != lease.DefaultMaxTTL {
		t.Errorf("Expected lease ttls %v/%v, got %v/%v",
			lease.DefaultTTL, lease.DefaultMaxTTL, cfg.Leases.DefaultTTL, cfg.Leases.MaxTTL)
	}
	if cfg.GC.BatchSize != gc.DefaultBatchSize {
		t.Errorf("Expected batch size %d, got %d", gc.DefaultBatchSize, cfg.GC.BatchSize)
	}
	if cfg.GC.SweepTimeout != 10*time.Minute {
		t.Errorf("Expected sweep timeout 10m, got %v", cfg.GC.SweepTimeout)
	}
	if _, ok := cfg.Files.Filesystem["path"]; !ok {
		t.Error("Expected a default filesystem path")
	}
}

func TestApplyDefaults_S3Region(t *testing.T) {
	cfg := &Config{Files: FilesConfig{Type: "s3", S3: map[string]any{"bucket": "media"}}}
	ApplyDefaults(cfg)

	if cfg.Files.S3["region"] != "us-east-1" {
		t.Errorf("Expected default region us-east-1, got %v", cfg.Files.S3["region"])
	}
	if cfg.Files.Filesystem != nil {
		t.Error("Expected no filesystem options for an s3 store")
	}
}

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if !cfg.GC.Enabled || !cfg.Server.API.Enabled {
		t.Error("Expected gc and api enabled in the default config")
	}
	if cfg.GC.DryRun {
		t.Error("Expected dry run off by default")
	}
	if len(cfg.References) == 0 {
		t.Error("Expected default references")
	}
}
