package asset

import (
	"fmt"
	"path"
	"strings"
)

// CleanPath normalizes a storage-relative path: forward slashes, no leading
// slash, no "." or ".." segments. Leading ".." segments are dropped, so the
// result never points outside the storage root. Returns "" for the root itself.
func CleanPath(p string) string {
	p = strings.ReplaceAll(strings.TrimSpace(p), "\\", "/")
	if p == "" {
		return ""
	}
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}

// Validate checks the fields every stored row must carry.
func Validate(a *Asset) error {
	if CleanPath(a.RelativePath) == "" {
		return fmt.Errorf("%w: relative path is required", ErrInvalidAsset)
	}
	if a.SizeBytes < 0 {
		return fmt.Errorf("%w: negative size %d", ErrInvalidAsset, a.SizeBytes)
	}
	if a.StoredName == "" {
		return fmt.Errorf("%w: stored name is required", ErrInvalidAsset)
	}
	return nil
}
