// Package catalog opens the relational store shared by the asset table, the
// owner tables that reference assets, and the edit-lease table.
//
// The catalog is SQLite (modernc.org/sqlite, pure Go). The owner tables belong
// to the surrounding content-management service; the schema here creates them
// only if they are missing so the collector can run standalone and in tests.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/marmos91/mediagc/internal/logger"
	_ "modernc.org/sqlite"
)

// Config configures the catalog connection.
type Config struct {
	// Path is the SQLite database file. ":memory:" opens a private in-memory
	// database (single connection).
	Path string `mapstructure:"path"`

	// BusyTimeout is how long a connection waits on a locked database before
	// failing. Request handlers and the sweep share the file. Default: 5s
	BusyTimeout time.Duration `mapstructure:"busy_timeout"`

	// MaxOpenConns bounds the connection pool (0 = database/sql default).
	MaxOpenConns int `mapstructure:"max_open_conns"`
}

// DB is an open catalog.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the catalog database and applies the schema.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	db, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Path, err)
	}

	if cfg.Path == ":memory:" {
		// Every connection to :memory: is a distinct database.
		db.SetMaxOpenConns(1)
	} else if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite %s: %w", cfg.Path, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	logger.Debug("Catalog opened: path=%s busy_timeout=%s", cfg.Path, cfg.BusyTimeout)

	return &DB{db: db, path: cfg.Path}, nil
}

func dsn(cfg Config) string {
	params := url.Values{}
	params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	params.Add("_pragma", "foreign_keys(1)")
	if cfg.Path != ":memory:" {
		params.Add("_pragma", "journal_mode(WAL)")
		params.Add("_pragma", "synchronous(NORMAL)")
	}

	path := cfg.Path
	if !strings.HasPrefix(path, "file:") {
		path = "file:" + path
	}
	return path + "?" + params.Encode()
}

// SQL returns the underlying connection pool.
func (c *DB) SQL() *sql.DB {
	return c.db
}

// Path returns the database path the catalog was opened with.
func (c *DB) Path() string {
	return c.path
}

// Healthcheck verifies the database is reachable.
func (c *DB) Healthcheck(ctx context.Context) error {
	return c.db.PingContext(ctx)
}

// Close closes the connection pool.
func (c *DB) Close() error {
	return c.db.Close()
}
