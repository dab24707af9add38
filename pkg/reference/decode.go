package reference

import (
	"fmt"
	"math"
	"net/url"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/marmos91/mediagc/pkg/asset"
)

// Decode converts a raw column value into a Pointer using the given encoding.
// raw is whatever the database driver returned for the column (int64,
// float64, string, []byte). Decode never fails; anything it cannot interpret
// is KindInvalid.
func Decode(enc Encoding, raw any) Pointer {
	switch enc {
	case EncodingInteger:
		return decodeInteger(raw)
	case EncodingString:
		return decodeString(raw)
	case EncodingLegacy:
		return decodeLegacy(raw)
	default:
		return Pointer{Kind: KindInvalid}
	}
}

func idPointer(id int64) Pointer {
	if !asset.ID(id).Valid() {
		return Pointer{Kind: KindInvalid}
	}
	return Pointer{Kind: KindAssetID, AssetID: asset.ID(id)}
}

func decodeInteger(raw any) Pointer {
	switch v := raw.(type) {
	case int64:
		return idPointer(v)
	case int:
		return idPointer(int64(v))
	case float64:
		// SQLite returns REAL for values written as floats by loose clients.
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return Pointer{Kind: KindInvalid}
		}
		return idPointer(int64(v))
	case string, []byte:
		return decodeString(v)
	default:
		return Pointer{Kind: KindInvalid}
	}
}

func decodeString(raw any) Pointer {
	switch v := raw.(type) {
	case int64, int:
		// TEXT affinity columns can still hand back integers for numeric
		// literals written without quotes.
		return decodeInteger(v)
	}

	s := strings.TrimSpace(Text(raw))
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return Pointer{Kind: KindInvalid}
	}
	return idPointer(id)
}

func decodeLegacy(raw any) Pointer {
	if p := decodeString(raw); p.Kind == KindAssetID {
		return p
	}

	s := strings.TrimSpace(Text(raw))
	if p, ok := pathFromLegacy(s); ok {
		return Pointer{Kind: KindPath, Path: p}
	}
	return Pointer{Kind: KindInvalid}
}

// pathFromLegacy recognizes legacy values that store a file location rather
// than an id: a relative or absolute storage path, or a full URL. The
// returned path is normalized with NormalizePath.
func pathFromLegacy(s string) (string, bool) {
	if s == "" || strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return "", false
	}

	p := NormalizePath(s)
	if p == "" {
		return "", false
	}

	// A bare word without a slash or file extension is free text, not a path.
	if !strings.Contains(p, "/") && path.Ext(p) == "" {
		return "", false
	}
	return p, true
}

// NormalizePath reduces a path or URL to a cleaned storage-relative path:
// scheme and host are dropped, as are query, fragment and the leading slash.
func NormalizePath(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if u, err := url.Parse(s); err == nil && (u.Scheme != "" || u.Host != "") {
		s = u.Path
	} else if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}

	return asset.CleanPath(s)
}

// Text renders a driver value as text.
func Text(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
