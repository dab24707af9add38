package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const configHeader = `# mediagc Configuration File
#
# Values here are overridden by MEDIAGC_* environment variables, for example
# MEDIAGC_GC_DRY_RUN=true or MEDIAGC_FILES_TYPE=s3.
`

// section pairs a top-level key with the comment written above it.
type section struct {
	key     string
	comment string
	value   any
}

// InitConfig writes a default configuration file to the default location and
// returns its path. An existing file is only replaced when force is set.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := InitConfigToPath(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes a default configuration file to path, creating
// parent directories.
func InitConfigToPath(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	content, err := generateYAMLWithComments(GetDefaultConfig())
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// generateYAMLWithComments renders cfg one section at a time so each gets a
// comment block.
func generateYAMLWithComments(cfg *Config) (string, error) {
	sections := []section{
		{"logging", "Log level (DEBUG, INFO, WARN, ERROR), format (text, json) and output (stdout, stderr, file path)", cfg.Logging},
		{"server", "Admin API, Prometheus metrics and shutdown settings", cfg.Server},
		{"catalog", "SQLite database holding assets, owner tables and edit leases", cfg.Catalog},
		{"files", "Physical file store: filesystem, memory or s3", cfg.Files},
		{"leases", "Edit lease store: sqlite (catalog table), badger or memory", cfg.Leases},
		{"gc", "Sweep schedule and deletion behavior. Set dry_run to report without deleting", cfg.GC},
		{"references", "Owner table columns that point at assets. encoding is integer, string or legacy", cfg.References},
	}

	var buf bytes.Buffer
	buf.WriteString(configHeader)

	for _, s := range sections {
		var out bytes.Buffer
		enc := yaml.NewEncoder(&out)
		enc.SetIndent(2)
		if err := enc.Encode(map[string]any{s.key: s.value}); err != nil {
			return "", fmt.Errorf("failed to encode %s section: %w", s.key, err)
		}
		if err := enc.Close(); err != nil {
			return "", fmt.Errorf("failed to encode %s section: %w", s.key, err)
		}

		buf.WriteString("\n# ")
		buf.WriteString(strings.ReplaceAll(s.comment, "\n", "\n# "))
		buf.WriteString("\n")
		buf.Write(out.Bytes())
	}

	return buf.String(), nil
}
