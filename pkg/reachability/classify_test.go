package reachability

import (
	"testing"

	"github.com/marmos91/mediagc/pkg/asset"
	"github.com/marmos91/mediagc/pkg/reference"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func assetsWithIDs(ids ...asset.ID) []asset.Asset {
	out := make([]asset.Asset, len(ids))
	for i, id := range ids {
		out[i] = asset.Asset{
			ID:           id,
			StoredName:   "s" + id.String(),
			RelativePath: "users/1/" + id.String() + ".png",
			PublicURL:    "/uploads/users/1/" + id.String() + ".png",
		}
	}
	return out
}

func idRef(kind, owner string, id asset.ID) reference.Reference {
	return reference.Reference{
		OwnerKind: kind,
		OwnerID:   owner,
		Pointer:   reference.Pointer{Kind: reference.KindAssetID, AssetID: id},
		Raw:       id.String(),
	}
}

func ids(assets []asset.Asset) []asset.ID {
	out := make([]asset.ID, len(assets))
	for i, a := range assets {
		out[i] = a.ID
	}
	return out
}

func TestClassify_CardAttachmentOnly(t *testing.T) {
	c := Classify([]reference.Reference{idRef("card_attachment", "20", 7)}, assetsWithIDs(7, 8))

	assert.Equal(t, []asset.ID{7}, ids(c.Reachable))
	assert.Equal(t, []asset.ID{8}, ids(c.Orphaned))
	assert.True(t, c.IsReachable(7))
	assert.False(t, c.IsReachable(8))
	assert.Empty(t, c.Broken)
}

func TestClassify_DanglingIDIsBroken(t *testing.T) {
	refs := []reference.Reference{
		idRef("artwork", "1", 999999),
		idRef("project", "10", 3),
	}
	c := Classify(refs, assetsWithIDs(3, 4))

	require.Len(t, c.Broken, 1)
	assert.Equal(t, "artwork", c.Broken[0].Reference.OwnerKind)
	assert.Equal(t, "1", c.Broken[0].Reference.OwnerID)
	assert.Equal(t, ReasonMissingAsset, c.Broken[0].Reason)

	assert.Equal(t, []asset.ID{3}, ids(c.Reachable))
	assert.Equal(t, []asset.ID{4}, ids(c.Orphaned))
	assert.False(t, c.IsReachable(999999))
}

func TestClassify_UnparseableProtectsNothing(t *testing.T) {
	refs := []reference.Reference{{
		OwnerKind: "artwork",
		OwnerID:   "2",
		Pointer:   reference.Pointer{Kind: reference.KindInvalid},
		Raw:       "see attachment",
	}}
	c := Classify(refs, assetsWithIDs(1))

	require.Len(t, c.Broken, 1)
	assert.Equal(t, ReasonUnparseable, c.Broken[0].Reason)
	assert.Equal(t, []asset.ID{1}, ids(c.Orphaned))
	assert.Empty(t, c.Reachable)
}

func TestClassify_PathPointers(t *testing.T) {
	path := func(p string) reference.Reference {
		return reference.Reference{
			OwnerKind: "artwork",
			OwnerID:   "3",
			Pointer:   reference.Pointer{Kind: reference.KindPath, Path: p},
			Raw:       p,
		}
	}

	refs := []reference.Reference{
		path("users/1/5.png"),         // relative path
		path("uploads/users/1/6.png"), // public URL path
		path("users/1/missing.png"),
	}
	c := Classify(refs, assetsWithIDs(5, 6, 9))

	assert.Equal(t, []asset.ID{5, 6}, ids(c.Reachable))
	assert.Equal(t, []asset.ID{9}, ids(c.Orphaned))
	require.Len(t, c.Broken, 1)
	assert.Equal(t, ReasonMissingPath, c.Broken[0].Reason)
}

func TestClassify_PrefixedLegacyPathKeepsRow(t *testing.T) {
	assets := []asset.Asset{
		{ID: 9, StoredName: "a", RelativePath: "a.png"},
		{ID: 10, StoredName: "b", RelativePath: "users/2/b.png"},
		{ID: 11, StoredName: "c", RelativePath: "c.png.bak"},
	}
	refs := []reference.Reference{
		{OwnerKind: "artwork", OwnerID: "1", Pointer: reference.Pointer{Kind: reference.KindPath, Path: "uploads/a.png"}, Raw: "/uploads/a.png"},
		{OwnerKind: "artwork", OwnerID: "2", Pointer: reference.Pointer{Kind: reference.KindPath, Path: "2/b.png"}, Raw: "2/b.png"},
		{OwnerKind: "artwork", OwnerID: "3", Pointer: reference.Pointer{Kind: reference.KindPath, Path: "c.png"}, Raw: "c.png"},
	}

	c := Classify(refs, assets)

	assert.Equal(t, []asset.ID{9, 10}, ids(c.Reachable))
	assert.Equal(t, []asset.ID{11}, ids(c.Orphaned))
	require.Len(t, c.Broken, 1)
	assert.Equal(t, "3", c.Broken[0].Reference.OwnerID)
	assert.Equal(t, ReasonMissingPath, c.Broken[0].Reason)
}

func TestClassify_InvalidRawPathProtectsNoRow(t *testing.T) {
	assets := []asset.Asset{{ID: 4, StoredName: "p", RelativePath: "uploads/my photo.png"}}
	refs := []reference.Reference{{
		OwnerKind: "artwork",
		OwnerID:   "1",
		Pointer:   reference.Pointer{Kind: reference.KindInvalid},
		Raw:       "uploads/my photo.png",
	}}

	c := Classify(refs, assets)

	assert.Equal(t, []asset.ID{4}, ids(c.Orphaned))
	require.Len(t, c.Broken, 1)
	assert.Equal(t, ReasonUnparseable, c.Broken[0].Reason)
}

func TestClassify_MultipleOwnersSameAsset(t *testing.T) {
	refs := []reference.Reference{
		idRef("project", "10", 3),
		idRef("artwork", "1", 3),
		idRef("card_attachment", "20", 3),
	}
	c := Classify(refs, assetsWithIDs(3))

	assert.Equal(t, []asset.ID{3}, ids(c.Reachable))
	assert.Equal(t, 1, c.ReachableCount())
	assert.Empty(t, c.Orphaned)
	assert.Empty(t, c.Broken)
}

// Every asset any reference resolves to is excluded from the orphan set.
func TestClassify_Soundness(t *testing.T) {
	assets := assetsWithIDs(1, 2, 3, 4, 5, 6, 7, 8, 9, 10)
	var refs []reference.Reference
	for i := asset.ID(1); i <= 10; i += 3 {
		refs = append(refs, idRef("card_attachment", i.String(), i))
	}
	refs = append(refs, idRef("project", "x", 42))

	c := Classify(refs, assets)

	for _, r := range refs {
		for _, o := range c.Orphaned {
			assert.NotEqual(t, r.Pointer.AssetID, o.ID, "referenced asset %s classified orphaned", o.ID)
		}
	}
	assert.Len(t, c.Reachable, 4)
	assert.Len(t, c.Orphaned, 6)
	assert.Len(t, c.Broken, 1)
}

func TestClassify_Empty(t *testing.T) {
	c := Classify(nil, nil)
	assert.Empty(t, c.Reachable)
	assert.Empty(t, c.Orphaned)
	assert.Empty(t, c.Broken)
	assert.Equal(t, 0, c.ReachableCount())
	assert.False(t, c.IsReachable(0))
}
