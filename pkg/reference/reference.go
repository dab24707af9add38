// Package reference extracts asset pointers from the owner tables that may
// reference an asset.
//
// Each owner table is described by a Source descriptor naming the table, its
// owner key column, the column holding the reference and how that column is
// encoded. The Scanner runs one read query per Source and decodes every
// non-empty value into a Pointer. Decoding never fails: a value that cannot be
// understood becomes an Invalid pointer with the raw text retained, which the
// classifier reports as a broken reference.
package reference

import (
	"fmt"
	"regexp"

	"github.com/marmos91/mediagc/pkg/asset"
)

// Encoding names how a reference column stores its pointer.
type Encoding string

const (
	// EncodingInteger is a numeric foreign key column.
	EncodingInteger Encoding = "integer"

	// EncodingString is a text column holding a decimal asset id.
	EncodingString Encoding = "string"

	// EncodingLegacy is a free-text column that may hold a decimal id, a
	// storage path or a public URL.
	EncodingLegacy Encoding = "legacy"
)

// Valid reports whether e is a known encoding.
func (e Encoding) Valid() bool {
	switch e {
	case EncodingInteger, EncodingString, EncodingLegacy:
		return true
	}
	return false
}

// Source describes one owner table column that may point at an asset.
type Source struct {
	// OwnerKind tags references from this table in reports (e.g. "artwork").
	OwnerKind string `mapstructure:"owner_kind" yaml:"owner_kind" json:"owner_kind" validate:"required"`

	// Table is the owner table name.
	Table string `mapstructure:"table" yaml:"table" json:"table" validate:"required,sqlident"`

	// OwnerColumn is the owner's key column. Default: id
	OwnerColumn string `mapstructure:"owner_column" yaml:"owner_column" json:"owner_column" validate:"omitempty,sqlident"`

	// ReferenceColumn holds the asset pointer.
	ReferenceColumn string `mapstructure:"reference_column" yaml:"reference_column" json:"reference_column" validate:"required,sqlident"`

	// Encoding selects the decoder for ReferenceColumn.
	Encoding Encoding `mapstructure:"encoding" yaml:"encoding" json:"encoding" validate:"required,oneof=integer string legacy" jsonschema:"enum=integer,enum=string,enum=legacy"`
}

// DefaultSources returns the owner tables of the stock catalog schema.
func DefaultSources() []Source {
	return []Source{
		{OwnerKind: "artwork", Table: "artwork_info", OwnerColumn: "id", ReferenceColumn: "image_ref", Encoding: EncodingLegacy},
		{OwnerKind: "project", Table: "projects", OwnerColumn: "id", ReferenceColumn: "cover_image_id", Encoding: EncodingInteger},
		{OwnerKind: "card_attachment", Table: "card_attachments", OwnerColumn: "id", ReferenceColumn: "asset_id", Encoding: EncodingInteger},
	}
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether s is a plain SQL identifier. Descriptor
// names are interpolated into queries, so only plain identifiers are allowed.
func ValidIdentifier(s string) bool {
	return identPattern.MatchString(s)
}

// Validate checks a descriptor and fills the owner column default.
func (s *Source) Validate() error {
	if s.OwnerKind == "" {
		return fmt.Errorf("reference source: owner kind is required")
	}
	if s.OwnerColumn == "" {
		s.OwnerColumn = "id"
	}
	for _, ident := range []string{s.Table, s.OwnerColumn, s.ReferenceColumn} {
		if !ValidIdentifier(ident) {
			return fmt.Errorf("reference source %s: invalid identifier %q", s.OwnerKind, ident)
		}
	}
	if !s.Encoding.Valid() {
		return fmt.Errorf("reference source %s: unknown encoding %q", s.OwnerKind, s.Encoding)
	}
	return nil
}

// Kind discriminates a Pointer.
type Kind uint8

const (
	// KindInvalid is a value that decodes to nothing usable.
	KindInvalid Kind = iota

	// KindAssetID points at an asset by id.
	KindAssetID

	// KindPath points at an asset or file by storage path. Only produced by
	// the legacy encoding.
	KindPath
)

func (k Kind) String() string {
	switch k {
	case KindAssetID:
		return "asset_id"
	case KindPath:
		return "path"
	default:
		return "invalid"
	}
}

// MarshalText encodes the kind by name in JSON reports.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Pointer is a decoded reference value. Exactly one of AssetID or Path is
// meaningful, selected by Kind.
type Pointer struct {
	Kind    Kind     `json:"kind"`
	AssetID asset.ID `json:"asset_id,omitempty"`
	Path    string   `json:"path,omitempty"`
}

// Reference is one owner row's pointer.
type Reference struct {
	OwnerKind string  `json:"owner_kind"`
	OwnerID   string  `json:"owner_id"`
	Pointer   Pointer `json:"pointer"`

	// Raw is the column value as text, retained for diagnostics.
	Raw string `json:"raw"`
}

func (r Reference) String() string {
	return fmt.Sprintf("%s:%s -> %q", r.OwnerKind, r.OwnerID, r.Raw)
}
