package reference

import (
	"strconv"
	"strings"
)

// PathIndex maps storage paths to values and looks paths up by whole
// trailing segments in either direction. A legacy value may carry a URL
// prefix the storage root does not ("uploads/x.png" vs "x.png"), or be
// shorter than the stored path. "a.png.bak" never matches "a.png".
//
// Not safe for concurrent writes; build it once, then read.
type PathIndex[V any] struct {
	exact    map[string][]V
	suffixes map[string][]V
}

// NewPathIndex returns an empty index.
func NewPathIndex[V any]() *PathIndex[V] {
	return &PathIndex[V]{
		exact:    make(map[string][]V),
		suffixes: make(map[string][]V),
	}
}

// Add indexes v under the storage path p. Empty paths are ignored.
func (idx *PathIndex[V]) Add(p string, v V) {
	if p == "" {
		return
	}
	idx.exact[p] = append(idx.exact[p], v)
	for _, s := range Suffixes(p) {
		idx.suffixes[s] = append(idx.suffixes[s], v)
	}
}

// Len returns the number of distinct indexed paths.
func (idx *PathIndex[V]) Len() int {
	return len(idx.exact)
}

// Lookup returns the values whose path matches p. An exact match wins;
// otherwise every path that ends with p, and every path p ends with, is
// returned. The result may hold duplicates.
func (idx *PathIndex[V]) Lookup(p string) []V {
	if p == "" || len(idx.exact) == 0 {
		return nil
	}
	if vs, ok := idx.exact[p]; ok {
		return vs
	}

	out := append([]V(nil), idx.suffixes[p]...)
	for _, s := range Suffixes(p) {
		out = append(out, idx.exact[s]...)
	}
	return out
}

// Matches reports whether any indexed path matches p.
func (idx *PathIndex[V]) Matches(p string) bool {
	return len(idx.Lookup(p)) > 0
}

// Suffixes returns p and every trailing run of its segments:
// "a/b/c" yields "a/b/c", "b/c", "c".
func Suffixes(p string) []string {
	out := []string{p}
	for {
		i := strings.IndexByte(p, '/')
		if i < 0 {
			return out
		}
		p = p[i+1:]
		if p != "" {
			out = append(out, p)
		}
	}
}

// ProtectedPaths returns every storage path an owner row may still name.
// Path pointers contribute their decoded path. Any other value that is not
// an integer contributes its raw text, normalized with NormalizePath, so a
// path written into an id column or with spaces in it still names a file.
//
// These paths shield files from deletion only. They never make an asset
// reachable.
func ProtectedPaths(refs []Reference) []string {
	var out []string
	for _, r := range refs {
		switch r.Pointer.Kind {
		case KindAssetID:
			continue
		case KindPath:
			if r.Pointer.Path != "" {
				out = append(out, r.Pointer.Path)
			}
			continue
		}

		raw := strings.TrimSpace(r.Raw)
		if _, err := strconv.ParseInt(raw, 10, 64); err == nil {
			continue
		}
		if p := NormalizePath(raw); p != "" {
			out = append(out, p)
		}
	}
	return out
}
