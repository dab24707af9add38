package reference

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/marmos91/mediagc/internal/logger"
)

// Querier runs read queries against the relational store. *sql.DB, *sql.Conn
// and *sql.Tx satisfy it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Scanner extracts references from every configured owner table. It performs
// no joins against the asset table.
type Scanner struct {
	db      Querier
	sources []Source
}

// NewScanner validates the descriptors and returns a scanner over db.
func NewScanner(db Querier, sources []Source) (*Scanner, error) {
	if db == nil {
		return nil, fmt.Errorf("reference scanner: querier is required")
	}

	seen := make(map[string]bool, len(sources))
	checked := make([]Source, len(sources))
	for i, src := range sources {
		if err := src.Validate(); err != nil {
			return nil, err
		}
		if seen[src.OwnerKind] {
			return nil, fmt.Errorf("reference source %s: duplicate owner kind", src.OwnerKind)
		}
		seen[src.OwnerKind] = true
		checked[i] = src
	}

	return &Scanner{db: db, sources: checked}, nil
}

// Sources returns the validated descriptors.
func (s *Scanner) Sources() []Source {
	out := make([]Source, len(s.sources))
	copy(out, s.sources)
	return out
}

// Scan returns one Reference per owner row whose reference column is
// non-empty, across all sources.
//
// A query failure on any source aborts the scan: a partial reference set
// would make live assets look orphaned.
func (s *Scanner) Scan(ctx context.Context) ([]Reference, error) {
	var refs []Reference

	for _, src := range s.sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		found, err := s.scanSource(ctx, src)
		if err != nil {
			return nil, fmt.Errorf("scan %s (%s.%s): %w", src.OwnerKind, src.Table, src.ReferenceColumn, err)
		}

		logger.Debug("Reference scan: %s yielded %d references", src.OwnerKind, len(found))
		refs = append(refs, found...)
	}

	return refs, nil
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func (s *Scanner) scanSource(ctx context.Context, src Source) ([]Reference, error) {
	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s IS NOT NULL`,
		quoteIdent(src.OwnerColumn), quoteIdent(src.ReferenceColumn),
		quoteIdent(src.Table), quoteIdent(src.ReferenceColumn))

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []Reference
	for rows.Next() {
		var owner, raw any
		if err := rows.Scan(&owner, &raw); err != nil {
			return nil, err
		}

		text := strings.TrimSpace(Text(raw))
		if text == "" {
			continue
		}

		refs = append(refs, Reference{
			OwnerKind: src.OwnerKind,
			OwnerID:   Text(owner),
			Pointer:   Decode(src.Encoding, raw),
			Raw:       text,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return refs, nil
}
