package compare

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/apidiff/internal/tree"
)

// IgnorePath is a parsed body path expression naming content excluded
// from comparison. Expressions are dotted segments over object keys and
// XML element names; a segment may be "*" (match any key/element at that
// level), a non-negative integer (array index), or "@name" (XML
// attribute, valid only as the final segment).
//
// Examples: "meta.timestamp", "items.*.etag", "data.0.id", "entry.@id".
type IgnorePath struct {
	raw      string
	segments []segment
}

type segment struct {
	name     string
	wildcard bool
	index    int  // -1 when not an index segment
	attr     bool // XML attribute segment
}

// ParseIgnorePath validates and compiles one path expression.
// Invalid expressions are configuration errors, surfaced before any
// extraction begins.
func ParseIgnorePath(expr string) (IgnorePath, error) {
	if strings.TrimSpace(expr) == "" {
		return IgnorePath{}, fmt.Errorf("ignore path is empty")
	}
	parts := strings.Split(expr, ".")
	segments := make([]segment, 0, len(parts))
	for i, part := range parts {
		if part == "" {
			return IgnorePath{}, fmt.Errorf("ignore path %q has an empty segment", expr)
		}
		seg := segment{name: part, index: -1}
		switch {
		case part == "*":
			seg.wildcard = true
		case strings.HasPrefix(part, "@"):
			if len(part) == 1 {
				return IgnorePath{}, fmt.Errorf("ignore path %q has an empty attribute segment", expr)
			}
			if i != len(parts)-1 {
				return IgnorePath{}, fmt.Errorf("ignore path %q: attribute segment must be last", expr)
			}
			seg.attr = true
			seg.name = part[1:]
		default:
			if n, err := strconv.Atoi(part); err == nil {
				if n < 0 {
					return IgnorePath{}, fmt.Errorf("ignore path %q has a negative index", expr)
				}
				seg.index = n
			}
		}
		segments = append(segments, seg)
	}
	return IgnorePath{raw: expr, segments: segments}, nil
}

// MustParseIgnorePath is like ParseIgnorePath but panics on error.
// Use only in tests.
func MustParseIgnorePath(expr string) IgnorePath {
	p, err := ParseIgnorePath(expr)
	if err != nil {
		panic(err)
	}
	return p
}

// ParseIgnorePaths compiles a list of expressions, failing on the first
// invalid one.
func ParseIgnorePaths(exprs []string) ([]IgnorePath, error) {
	paths := make([]IgnorePath, 0, len(exprs))
	for _, expr := range exprs {
		p, err := ParseIgnorePath(expr)
		if err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// String returns the original expression.
func (p IgnorePath) String() string { return p.raw }

// Prune removes everything matched by paths from a JSON tree,
// returning the pruned copy. The input is never mutated.
func Prune(v tree.Value, paths []IgnorePath) tree.Value {
	if len(paths) == 0 {
		return v
	}
	out := tree.Clone(v)
	for _, p := range paths {
		out = pruneOne(out, p.segments)
	}
	return out
}

func pruneOne(v tree.Value, segs []segment) tree.Value {
	if len(segs) == 0 {
		return v
	}
	seg := segs[0]
	rest := segs[1:]

	switch val := v.(type) {
	case tree.Object:
		if seg.index >= 0 || seg.attr {
			return v // index/attribute segments do not match objects
		}
		if seg.wildcard {
			for k, elem := range val {
				if len(rest) == 0 {
					delete(val, k)
				} else {
					val[k] = pruneOne(elem, rest)
				}
			}
			return val
		}
		elem, ok := val[seg.name]
		if !ok {
			return v
		}
		if len(rest) == 0 {
			delete(val, seg.name)
			return val
		}
		val[seg.name] = pruneOne(elem, rest)
		return val

	case tree.Array:
		switch {
		case seg.wildcard:
			if len(rest) == 0 {
				return tree.Array{}
			}
			for i, elem := range val {
				val[i] = pruneOne(elem, rest)
			}
			return val
		case seg.index >= 0:
			if seg.index >= len(val) {
				return v
			}
			if len(rest) == 0 {
				return append(val[:seg.index:seg.index], val[seg.index+1:]...)
			}
			val[seg.index] = pruneOne(val[seg.index], rest)
			return val
		default:
			return v
		}

	default:
		return v
	}
}
