// Package sqlite implements asset.Store on the catalog's assets table.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/marmos91/mediagc/pkg/asset"
)

const selectColumns = `id, owner_user_id, stored_name, original_name, display_name,
	relative_path, public_url, mime_type, size_bytes, created_at, updated_at`

// Store is a SQL-backed asset store. Safe for concurrent use.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore returns a store over an open catalog connection pool.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAsset(row rowScanner) (*asset.Asset, error) {
	var (
		a           asset.Asset
		displayName sql.NullString
		createdAt   int64
		updatedAt   int64
	)
	if err := row.Scan(&a.ID, &a.OwnerUserID, &a.StoredName, &a.OriginalName, &displayName,
		&a.RelativePath, &a.PublicURL, &a.MimeType, &a.SizeBytes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.DisplayName = displayName.String
	a.CreatedAt = time.Unix(0, createdAt).UTC()
	a.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return &a, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// ListAssets returns every asset ordered by id.
func (s *Store) ListAssets(ctx context.Context) ([]asset.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM assets ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var assets []asset.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		assets = append(assets, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	return assets, nil
}

// GetAsset returns one asset by id.
func (s *Store) GetAsset(ctx context.Context, id asset.ID) (*asset.Asset, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM assets WHERE id = ?`, int64(id))
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("asset %s: %w", id, asset.ErrAssetNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %s: %w", id, err)
	}
	return a, nil
}

// CreateAsset inserts a new asset row.
func (s *Store) CreateAsset(ctx context.Context, a asset.Asset) (*asset.Asset, error) {
	a.RelativePath = asset.CleanPath(a.RelativePath)
	if err := asset.Validate(&a); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	res, err := s.db.ExecContext(ctx, `INSERT INTO assets
		(owner_user_id, stored_name, original_name, display_name, relative_path, public_url,
		 mime_type, size_bytes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.OwnerUserID, a.StoredName, a.OriginalName, nullable(a.DisplayName), a.RelativePath,
		a.PublicURL, a.MimeType, a.SizeBytes, a.CreatedAt.UnixNano(), a.UpdatedAt.UnixNano())
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", a.RelativePath, asset.ErrPathConflict)
		}
		return nil, fmt.Errorf("insert asset: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("insert asset: %w", err)
	}
	a.ID = asset.ID(id)
	return &a, nil
}

// UpdateAsset rewrites the mutable fields of an existing asset.
func (s *Store) UpdateAsset(ctx context.Context, a asset.Asset) (*asset.Asset, error) {
	if !a.ID.Valid() {
		return nil, fmt.Errorf("%w: id %s", asset.ErrInvalidAsset, a.ID)
	}
	a.RelativePath = asset.CleanPath(a.RelativePath)
	if err := asset.Validate(&a); err != nil {
		return nil, err
	}

	a.UpdatedAt = s.now().UTC()

	res, err := s.db.ExecContext(ctx, `UPDATE assets SET
		owner_user_id = ?, stored_name = ?, original_name = ?, display_name = ?,
		relative_path = ?, public_url = ?, mime_type = ?, size_bytes = ?, updated_at = ?
		WHERE id = ?`,
		a.OwnerUserID, a.StoredName, a.OriginalName, nullable(a.DisplayName), a.RelativePath,
		a.PublicURL, a.MimeType, a.SizeBytes, a.UpdatedAt.UnixNano(), int64(a.ID))
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", a.RelativePath, asset.ErrPathConflict)
		}
		return nil, fmt.Errorf("update asset %s: %w", a.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, fmt.Errorf("asset %s: %w", a.ID, asset.ErrAssetNotFound)
	}

	return s.GetAsset(ctx, a.ID)
}

// DeleteAsset removes one asset row.
func (s *Store) DeleteAsset(ctx context.Context, id asset.ID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM assets WHERE id = ?`, int64(id))
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete asset %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("asset %s: %w", id, asset.ErrAssetNotFound)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
