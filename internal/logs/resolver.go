package logs

import (
	"strings"

	"github.com/roach88/apidiff/internal/tree"
)

// Resolve walks each candidate dotted path over the record, left to
// right, and returns the first value that exists and is neither null nor
// an empty object. Absence is reported via the bool, not an error;
// callers decide whether absence is fatal. Side-effect-free.
func Resolve(record tree.Value, paths []string) (tree.Value, bool) {
	for _, path := range paths {
		v, ok := resolvePath(record, path)
		if !ok {
			continue
		}
		if isAbsent(v) {
			continue
		}
		return v, true
	}
	return nil, false
}

// resolvePath follows one dotted path through nested objects.
// Any shape mismatch along the way means "not found".
func resolvePath(record tree.Value, path string) (tree.Value, bool) {
	current := record
	for _, part := range strings.Split(path, ".") {
		obj, ok := current.(tree.Object)
		if !ok {
			return nil, false
		}
		next, present := obj[part]
		if !present {
			return nil, false
		}
		current = next
	}
	return current, true
}

// isAbsent treats null and empty objects as missing values, matching
// capture tools that emit {} for fields they did not record.
func isAbsent(v tree.Value) bool {
	switch val := v.(type) {
	case nil:
		return true
	case tree.Null:
		return true
	case tree.Object:
		return len(val) == 0
	default:
		return false
	}
}
