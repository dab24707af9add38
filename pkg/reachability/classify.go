// Package reachability decides which stored assets are still referenced.
//
// Classification unions every owner table's pointers into one reachable set.
// An asset is reachable when at least one pointer resolves to it, whatever the
// owner kind; it is orphaned otherwise. Pointers that resolve to nothing are
// reported as broken against their owner row and never protect anything.
package reachability

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/roaring64"
	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/reference"
)

// Broken reference reasons.
const (
	ReasonUnparseable  = "unparseable reference value"
	ReasonMissingAsset = "no asset with this id"
	ReasonMissingPath  = "no asset at this path"
)

// BrokenReference is an owner row whose pointer does not resolve.
type BrokenReference struct {
	Reference reference.Reference `json:"reference"`
	Reason    string              `json:"reason"`
}

func (b BrokenReference) String() string {
	return fmt.Sprintf("%s (%s)", b.Reference, b.Reason)
}

// Classification partitions the stored assets into reachable and orphaned,
// and lists the broken owner references.
type Classification struct {
	Reachable []asset.Asset     `json:"reachable"`
	Orphaned  []asset.Asset     `json:"orphaned"`
	Broken    []BrokenReference `json:"broken"`

	reachable *roaring64.Bitmap
}

// IsReachable reports whether the asset with id was classified reachable.
func (c *Classification) IsReachable(id asset.ID) bool {
	return id.Valid() && c.reachable.Contains(uint64(id))
}

// ReachableCount returns the number of reachable assets.
func (c *Classification) ReachableCount() int {
	return int(c.reachable.GetCardinality())
}

// Classify resolves refs against assets.
//
// An AssetID pointer resolves when an asset with that id exists. A Path
// pointer resolves against an asset's relative path or the path of its public
// URL, matched by whole trailing segments (see reference.PathIndex): an exact
// match wins, otherwise every asset whose path ends with the pointer, or that
// the pointer ends with, is kept. The owner's intent is not re-validated: a
// pointer that happens to hold a valid id protects that asset.
func Classify(refs []reference.Reference, assets []asset.Asset) *Classification {
	known := roaring64.New()
	byPath := reference.NewPathIndex[asset.ID]()
	for _, a := range assets {
		known.Add(uint64(a.ID))
		rel := asset.CleanPath(a.RelativePath)
		byPath.Add(rel, a.ID)
		if p := reference.NormalizePath(a.PublicURL); p != rel {
			byPath.Add(p, a.ID)
		}
	}

	c := &Classification{reachable: roaring64.New()}

	for _, ref := range refs {
		switch ref.Pointer.Kind {
		case reference.KindAssetID:
			id := ref.Pointer.AssetID
			if id.Valid() && known.Contains(uint64(id)) {
				c.reachable.Add(uint64(id))
				continue
			}
			c.Broken = append(c.Broken, BrokenReference{Reference: ref, Reason: ReasonMissingAsset})

		case reference.KindPath:
			if ids := byPath.Lookup(ref.Pointer.Path); len(ids) > 0 {
				for _, id := range ids {
					c.reachable.Add(uint64(id))
				}
				continue
			}
			c.Broken = append(c.Broken, BrokenReference{Reference: ref, Reason: ReasonMissingPath})

		default:
			c.Broken = append(c.Broken, BrokenReference{Reference: ref, Reason: ReasonUnparseable})
		}
	}

	for _, a := range assets {
		if c.reachable.Contains(uint64(a.ID)) {
			c.Reachable = append(c.Reachable, a)
		} else {
			c.Orphaned = append(c.Orphaned, a)
		}
	}

	return c
}
