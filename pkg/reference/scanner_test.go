package reference

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/marmos91/mediagc/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openCatalog(t *testing.T) *catalog.DB {
	t.Helper()
	db, err := catalog.Open(context.Background(), catalog.Config{Path: filepath.Join(t.TempDir(), "catalog.db")})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func exec(t *testing.T, db *catalog.DB, query string, args ...any) {
	t.Helper()
	_, err := db.SQL().Exec(query, args...)
	require.NoError(t, err)
}

func TestScanner_Scan(t *testing.T) {
	db := openCatalog(t)
	exec(t, db, `INSERT INTO artwork_info (id, title, image_ref) VALUES (1, 'a', '999999'), (2, 'b', '/uploads/old.png'), (3, 'c', NULL), (4, 'd', '  ')`)
	exec(t, db, `INSERT INTO projects (id, name, cover_image_id) VALUES (10, 'p', 3), (11, 'q', NULL)`)
	exec(t, db, `INSERT INTO card_attachments (id, card_id, asset_id) VALUES (20, 1, 7), (21, 1, 7)`)

	scanner, err := NewScanner(db.SQL(), DefaultSources())
	require.NoError(t, err)

	refs, err := scanner.Scan(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []Reference{
		{OwnerKind: "artwork", OwnerID: "1", Pointer: Pointer{Kind: KindAssetID, AssetID: 999999}, Raw: "999999"},
		{OwnerKind: "artwork", OwnerID: "2", Pointer: Pointer{Kind: KindPath, Path: "uploads/old.png"}, Raw: "/uploads/old.png"},
		{OwnerKind: "project", OwnerID: "10", Pointer: Pointer{Kind: KindAssetID, AssetID: 3}, Raw: "3"},
		{OwnerKind: "card_attachment", OwnerID: "20", Pointer: Pointer{Kind: KindAssetID, AssetID: 7}, Raw: "7"},
		{OwnerKind: "card_attachment", OwnerID: "21", Pointer: Pointer{Kind: KindAssetID, AssetID: 7}, Raw: "7"},
	}, refs)

	assert.Equal(t, []string{"uploads/old.png"}, ProtectedPaths(refs))
}

func TestScanner_UnparseableNeverFails(t *testing.T) {
	db := openCatalog(t)
	// SQLite stores whatever it is given; the integer column holds text here.
	exec(t, db, `INSERT INTO projects (id, name, cover_image_id) VALUES (1, 'p', 'not-a-number')`)

	scanner, err := NewScanner(db.SQL(), DefaultSources())
	require.NoError(t, err)

	refs, err := scanner.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, KindInvalid, refs[0].Pointer.Kind)
	assert.Equal(t, "not-a-number", refs[0].Raw)
}

func TestScanner_MissingTableIsFatal(t *testing.T) {
	db := openCatalog(t)

	sources := append(DefaultSources(), Source{
		OwnerKind: "ghost", Table: "no_such_table", ReferenceColumn: "asset_id", Encoding: EncodingInteger,
	})
	scanner, err := NewScanner(db.SQL(), sources)
	require.NoError(t, err)

	_, err = scanner.Scan(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestScanner_CancelledContext(t *testing.T) {
	db := openCatalog(t)
	scanner, err := NewScanner(db.SQL(), DefaultSources())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = scanner.Scan(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewScanner_Validation(t *testing.T) {
	db := openCatalog(t)

	_, err := NewScanner(nil, DefaultSources())
	assert.Error(t, err)

	dup := append(DefaultSources(), DefaultSources()[0])
	_, err = NewScanner(db.SQL(), dup)
	assert.Error(t, err)

	scanner, err := NewScanner(db.SQL(), DefaultSources())
	require.NoError(t, err)
	for _, src := range scanner.Sources() {
		assert.Equal(t, "id", src.OwnerColumn)
	}
}

func TestReference_String(t *testing.T) {
	r := Reference{OwnerKind: "project", OwnerID: "5", Raw: "x", Pointer: Pointer{Kind: KindInvalid}}
	assert.Equal(t, `project:5 -> "x"`, r.String())
	assert.Equal(t, "asset_id", KindAssetID.String())
}
