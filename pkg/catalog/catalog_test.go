package catalog

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_CreatesSchema(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, db.Healthcheck(ctx))
	assert.Equal(t, path, db.Path())

	for _, table := range []string{"assets", "artwork_info", "projects", "cards", "card_attachments", "edit_leases"} {
		var name string
		err := db.SQL().QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, "table %s should exist", table)
	}
}

func TestOpen_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "catalog.db")

	db, err := Open(ctx, Config{Path: path})
	require.NoError(t, err)
	_, err = db.SQL().ExecContext(ctx, `INSERT INTO projects (name, cover_image_id) VALUES ('p', 3)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(ctx, Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	var cover int64
	require.NoError(t, db.SQL().QueryRowContext(ctx, `SELECT cover_image_id FROM projects`).Scan(&cover))
	assert.Equal(t, int64(3), cover)
}

func TestOpen_Memory(t *testing.T) {
	db, err := Open(context.Background(), Config{Path: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	_, err = db.SQL().Exec(`INSERT INTO cards (title) VALUES ('c')`)
	require.NoError(t, err)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(context.Background(), Config{})
	require.Error(t, err)
}
