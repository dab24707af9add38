package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/marmos91/mediagc/pkg/reference"
	"github.com/spf13/viper"
)

// Config represents the complete mediagc configuration.
//
// Configuration sources (in order of precedence):
//  1. Environment variables (MEDIAGC_*)
//  2. Configuration file (YAML)
//  3. Default values
//
// Store Configuration Pattern:
// Each store section carries a Type plus one options map per implementation.
// Only the map matching Type is decoded, by the factory for that type.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`

	// Server contains the HTTP surfaces and shutdown settings
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Catalog is the relational store holding assets, owner tables and
	// (by default) edit leases
	Catalog CatalogConfig `mapstructure:"catalog" yaml:"catalog" json:"catalog"`

	// Files selects the physical file store
	Files FilesConfig `mapstructure:"files" yaml:"files" json:"files"`

	// Leases selects the edit lease store and TTL bounds
	Leases LeasesConfig `mapstructure:"leases" yaml:"leases" json:"leases"`

	// GC configures sweeps
	GC GCConfig `mapstructure:"gc" yaml:"gc" json:"gc"`

	// References lists the owner table columns that point at assets
	References []reference.Source `mapstructure:"references" yaml:"references" json:"references" validate:"required,min=1,dive"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" yaml:"level" json:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" yaml:"format" json:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" yaml:"output" json:"output" validate:"required"`
}

// ServerConfig contains server-wide settings.
type ServerConfig struct {
	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout" validate:"required,gt=0"`

	// API configures the admin HTTP API
	API APIConfig `mapstructure:"api" yaml:"api" json:"api"`

	// Metrics configures the Prometheus endpoint
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics" json:"metrics"`
}

// APIConfig configures the admin HTTP API.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`

	// SweepInterval is the minimum spacing between manual sweep triggers.
	// Zero disables the limit.
	SweepInterval time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval" json:"sweep_interval" validate:"gte=0"`

	// SweepBurst is how many manual sweeps may run back to back
	SweepBurst int `mapstructure:"sweep_burst" yaml:"sweep_burst" json:"sweep_burst" validate:"gte=0"`
}

// MetricsConfig configures the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	Port    int  `mapstructure:"port" yaml:"port" json:"port" validate:"omitempty,min=1,max=65535"`
}

// CatalogConfig configures the SQLite catalog.
type CatalogConfig struct {
	// Path is the database file
	Path string `mapstructure:"path" yaml:"path" json:"path" validate:"required"`

	// BusyTimeout is how long a connection waits on a locked database
	BusyTimeout time.Duration `mapstructure:"busy_timeout" yaml:"busy_timeout" json:"busy_timeout" validate:"gte=0"`

	// MaxOpenConns bounds the connection pool (0 = unlimited)
	MaxOpenConns int `mapstructure:"max_open_conns" yaml:"max_open_conns" json:"max_open_conns" validate:"gte=0"`
}

// FilesConfig specifies the physical file store.
type FilesConfig struct {
	// Type specifies which file store implementation to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" yaml:"type" json:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem options. Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem" yaml:"filesystem" json:"filesystem,omitempty"`

	// Memory options. Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory" yaml:"memory" json:"memory,omitempty"`

	// S3 options. Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3" yaml:"s3" json:"s3,omitempty"`
}

// LeasesConfig specifies the edit lease store.
type LeasesConfig struct {
	// Type specifies which lease store implementation to use
	// Valid values: sqlite (catalog table), badger, memory
	Type string `mapstructure:"type" yaml:"type" json:"type" validate:"required,oneof=sqlite badger memory"`

	// DefaultTTL applies when a lease is acquired without a TTL
	DefaultTTL time.Duration `mapstructure:"default_ttl" yaml:"default_ttl" json:"default_ttl" validate:"required,gt=0"`

	// MaxTTL caps requested TTLs
	MaxTTL time.Duration `mapstructure:"max_ttl" yaml:"max_ttl" json:"max_ttl" validate:"required,gt=0"`

	// Badger options. Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger" yaml:"badger" json:"badger,omitempty"`
}

// GCConfig configures sweeps.
type GCConfig struct {
	// Enabled runs sweeps periodically in the background
	Enabled bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`

	// Interval between background sweeps
	Interval time.Duration `mapstructure:"interval" yaml:"interval" json:"interval" validate:"required,gt=0"`

	// BatchSize is the number of candidates deleted per batch
	BatchSize int `mapstructure:"batch_size" yaml:"batch_size" json:"batch_size" validate:"required,min=1,max=1000"`

	// DryRun reports candidates without deleting
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run" json:"dry_run"`

	// DeleteUntracked also deletes files that have no asset row
	DeleteUntracked bool `mapstructure:"delete_untracked" yaml:"delete_untracked" json:"delete_untracked"`

	// UntrackedGracePeriod protects young files without a row
	UntrackedGracePeriod time.Duration `mapstructure:"untracked_grace_period" yaml:"untracked_grace_period" json:"untracked_grace_period" validate:"gte=0"`

	// CheckConcurrency bounds concurrent file existence checks
	CheckConcurrency int `mapstructure:"check_concurrency" yaml:"check_concurrency" json:"check_concurrency" validate:"required,min=1"`

	// SweepTimeout bounds each background sweep
	SweepTimeout time.Duration `mapstructure:"sweep_timeout" yaml:"sweep_timeout" json:"sweep_timeout" validate:"required,gt=0"`
}

// envKeys are bound explicitly so MEDIAGC_* variables apply even when no
// config file mentions the key.
var envKeys = []string{
	"logging.level",
	"logging.format",
	"logging.output",
	"server.shutdown_timeout",
	"server.api.enabled",
	"server.api.port",
	"server.api.sweep_interval",
	"server.metrics.enabled",
	"server.metrics.port",
	"catalog.path",
	"catalog.busy_timeout",
	"files.type",
	"files.filesystem.path",
	"files.s3.bucket",
	"files.s3.region",
	"files.s3.endpoint",
	"files.s3.access_key_id",
	"files.s3.secret_access_key",
	"leases.type",
	"leases.default_ttl",
	"leases.max_ttl",
	"leases.badger.path",
	"gc.enabled",
	"gc.interval",
	"gc.batch_size",
	"gc.dry_run",
	"gc.delete_untracked",
	"gc.untracked_grace_period",
	"gc.check_concurrency",
	"gc.sweep_timeout",
}

// Load loads configuration from file, environment, and defaults.
//
// An empty configPath searches the default location. A missing file is not
// an error; defaults and environment variables still apply.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures environment variables, boolean defaults and the
// config file search.
func setupViper(v *viper.Viper, configPath string) {
	// Example: MEDIAGC_GC_DRY_RUN=true
	v.SetEnvPrefix("MEDIAGC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Booleans that default to true cannot be told apart from an explicit
	// false after unmarshalling, so they are seeded here.
	v.SetDefault("gc.enabled", true)
	v.SetDefault("server.api.enabled", true)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/mediagc/config.yaml
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// A missing file, searched or explicit, means defaults only.
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

// getConfigDir returns $XDG_CONFIG_HOME/mediagc, ~/.config/mediagc, or "."
// when no home directory is known.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "mediagc")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "mediagc")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// ConfigExists checks if a config file exists at the default location.
func ConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory path.
func GetConfigDir() string {
	return getConfigDir()
}
