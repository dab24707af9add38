package filestore

import "errors"

var (
	// ErrFileNotFound indicates no file exists at the requested path.
	//
	// The cleanup executor treats it as "already deleted" and proceeds to
	// remove the asset row.
	//
	// Implementations wrap it with the path:
	//
	//	return fmt.Errorf("file %s: %w", path, filestore.ErrFileNotFound)
	ErrFileNotFound = errors.New("file not found")

	// ErrInvalidPath indicates a path that is empty or names the storage
	// root itself.
	ErrInvalidPath = errors.New("invalid file path")
)
