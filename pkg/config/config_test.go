package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/marmos91/mediagc/pkg/reference"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return path
}

func TestLoad_DefaultConfig(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "debug"

files:
  type: "memory"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level 'DEBUG', got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Server.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Server.ShutdownTimeout)
	}
	if !cfg.GC.Enabled {
		t.Error("Expected gc.enabled to default to true")
	}
	if !cfg.Server.API.Enabled {
		t.Error("Expected server.api.enabled to default to true")
	}
	if cfg.Server.Metrics.Enabled {
		t.Error("Expected metrics to be disabled by default")
	}
	if cfg.GC.Interval != 24*time.Hour {
		t.Errorf("Expected default interval 24h, got %v", cfg.GC.Interval)
	}
	if cfg.Leases.Type != "sqlite" {
		t.Errorf("Expected default lease store 'sqlite', got %q", cfg.Leases.Type)
	}
	if len(cfg.References) != len(reference.DefaultSources()) {
		t.Errorf("Expected default references, got %d", len(cfg.References))
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error with missing config file, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level 'INFO', got %q", cfg.Logging.Level)
	}
	if cfg.Files.Type != "filesystem" {
		t.Errorf("Expected default file store 'filesystem', got %q", cfg.Files.Type)
	}
}

func TestLoad_ExplicitFalseBooleans(t *testing.T) {
	configPath := writeConfig(t, `
server:
  api:
    enabled: false
gc:
  enabled: false
  dry_run: true
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.GC.Enabled {
		t.Error("Expected gc.enabled false to be preserved")
	}
	if cfg.Server.API.Enabled {
		t.Error("Expected server.api.enabled false to be preserved")
	}
	if !cfg.GC.DryRun {
		t.Error("Expected gc.dry_run true")
	}
}

func TestLoad_Durations(t *testing.T) {
	configPath := writeConfig(t, `
leases:
  default_ttl: 30s
  max_ttl: 5m
gc:
  interval: 1h
  untracked_grace_period: 48h
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Leases.DefaultTTL != 30*time.Second {
		t.Errorf("Expected default_ttl 30s, got %v", cfg.Leases.DefaultTTL)
	}
	if cfg.Leases.MaxTTL != 5*time.Minute {
		t.Errorf("Expected max_ttl 5m, got %v", cfg.Leases.MaxTTL)
	}
	if cfg.GC.Interval != time.Hour {
		t.Errorf("Expected interval 1h, got %v", cfg.GC.Interval)
	}
	if cfg.GC.UntrackedGracePeriod != 48*time.Hour {
		t.Errorf("Expected grace period 48h, got %v", cfg.GC.UntrackedGracePeriod)
	}
}

func TestLoad_References(t *testing.T) {
	configPath := writeConfig(t, `
references:
  - owner_kind: avatar
    table: users
    reference_column: avatar_asset_id
    encoding: integer
  - owner_kind: banner
    table: pages
    owner_column: slug
    reference_column: banner_path
    encoding: string
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if len(cfg.References) != 2 {
		t.Fatalf("Expected 2 references, got %d", len(cfg.References))
	}
	if cfg.References[0].OwnerColumn != "id" {
		t.Errorf("Expected owner_column default 'id', got %q", cfg.References[0].OwnerColumn)
	}
	if cfg.References[1].Encoding != reference.EncodingString {
		t.Errorf("Expected string encoding, got %q", cfg.References[1].Encoding)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	configPath := writeConfig(t, `
gc:
  dry_run: false
files:
  type: filesystem
`)
	filesDir := t.TempDir()

	t.Setenv("MEDIAGC_GC_DRY_RUN", "true")
	t.Setenv("MEDIAGC_GC_BATCH_SIZE", "25")
	t.Setenv("MEDIAGC_FILES_FILESYSTEM_PATH", filesDir)
	t.Setenv("MEDIAGC_LOGGING_LEVEL", "warn")

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if !cfg.GC.DryRun {
		t.Error("Expected MEDIAGC_GC_DRY_RUN to override file value")
	}
	if cfg.GC.BatchSize != 25 {
		t.Errorf("Expected batch size 25, got %d", cfg.GC.BatchSize)
	}
	if got := cfg.Files.Filesystem["path"]; got != filesDir {
		t.Errorf("Expected filesystem path %q, got %v", filesDir, got)
	}
	if cfg.Logging.Level != "WARN" {
		t.Errorf("Expected level WARN, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidConfig(t *testing.T) {
	configPath := writeConfig(t, `
files:
  type: "ftp"
`)

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected validation error for unknown file store type")
	}
}

func TestLoad_MalformedYAML(t *testing.T) {
	configPath := writeConfig(t, "gc: [unterminated")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for malformed YAML")
	}
}

func TestGetConfigDir_XDG(t *testing.T) {
	xdg := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", xdg)

	if got, want := GetConfigDir(), filepath.Join(xdg, "mediagc"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if got, want := GetDefaultConfigPath(), filepath.Join(xdg, "mediagc", "config.yaml"); got != want {
		t.Errorf("Expected %q, got %q", want, got)
	}
	if ConfigExists() {
		t.Error("Expected no config file in a fresh directory")
	}
}
