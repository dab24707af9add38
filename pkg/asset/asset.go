// Package asset defines the stored-asset metadata model and the store
// interface used by the garbage collector and the request handlers.
//
// An Asset is one uploaded binary file plus its metadata row. The row is the
// identity: owner records point at an asset by its ID, and the ID is preserved
// across renames and replacements so that existing references stay valid.
package asset

import (
	"context"
	"strconv"
	"time"
)

// ID is the stable integer identity of an asset.
type ID int64

// String returns the decimal form of the id.
func (id ID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Valid reports whether the id can identify a stored asset.
// Asset ids are assigned by the catalog starting at 1.
func (id ID) Valid() bool {
	return id > 0
}

// Asset is the metadata row describing one stored binary file.
type Asset struct {
	ID           ID        `json:"id"`
	OwnerUserID  int64     `json:"owner_user_id"`
	StoredName   string    `json:"stored_name"`
	OriginalName string    `json:"original_name"`
	DisplayName  string    `json:"display_name,omitempty"`
	RelativePath string    `json:"relative_path"`
	PublicURL    string    `json:"public_url"`
	MimeType     string    `json:"mime_type"`
	SizeBytes    int64     `json:"size_bytes"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Name returns the display name when set, otherwise the original upload name.
func (a *Asset) Name() string {
	if a.DisplayName != "" {
		return a.DisplayName
	}
	return a.OriginalName
}

// Store provides access to asset metadata rows.
//
// Implementations must be safe for concurrent use: request handlers create and
// rename assets while a sweep lists and deletes them.
type Store interface {
	// ListAssets returns every asset row, ordered by id.
	ListAssets(ctx context.Context) ([]Asset, error)

	// GetAsset returns the asset with the given id or ErrAssetNotFound.
	GetAsset(ctx context.Context, id ID) (*Asset, error)

	// CreateAsset inserts a new row and returns it with ID and timestamps set.
	// Returns ErrPathConflict if another row already uses the same relative path.
	CreateAsset(ctx context.Context, a Asset) (*Asset, error)

	// UpdateAsset rewrites the mutable fields of an existing row (rename or
	// replace). The id and creation time are preserved.
	UpdateAsset(ctx context.Context, a Asset) (*Asset, error)

	// DeleteAsset removes the row. Returns ErrAssetNotFound if it does not exist.
	DeleteAsset(ctx context.Context, id ID) error
}
