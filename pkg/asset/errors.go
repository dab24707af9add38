package asset

import "errors"

var (
	// ErrAssetNotFound indicates no asset row exists for the requested id.
	//
	// The cleanup executor treats this as "already deleted" when removing rows,
	// so concurrent sweeps and explicit user deletes stay idempotent.
	ErrAssetNotFound = errors.New("asset not found")

	// ErrPathConflict indicates another asset row already owns the relative path.
	// A relative path must resolve to at most one physical file.
	ErrPathConflict = errors.New("asset path already in use")

	// ErrInvalidAsset indicates a row failed basic validation (empty path,
	// negative size, invalid id on update).
	ErrInvalidAsset = errors.New("invalid asset")
)
