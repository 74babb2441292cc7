package testcase

import (
	"fmt"
	"strings"

	"github.com/roach88/apidiff/internal/tree"
)

// Options controls aggregation behavior.
type Options struct {
	// Strategy selects the dedup/grouping strategy.
	Strategy Strategy

	// IncludeBodyFor lists the HTTP methods whose body participates in
	// the fingerprint. Bodies on other methods are still carried on the
	// representative case for replay, just excluded from identity.
	IncludeBodyFor []string

	// QueryOrderInsensitive makes query key order irrelevant to the
	// fingerprint. Values within a key always keep their order.
	QueryOrderInsensitive bool

	// IgnoreQueryParams lists query keys removed before fingerprinting.
	// Removed keys are also dropped from the stored representative, so
	// they are never replayed.
	IgnoreQueryParams []string
}

// Aggregate deduplicates cases into an ordered sequence of path groups.
//
// Both strategies share the same normalization: paths compare ignoring a
// trailing slash, ignored query keys are dropped from the case before
// anything else looks at it, and the body is hashed
// into the key only for methods in IncludeBodyFor. The first occurrence
// per fingerprint wins as the representative; later duplicates are
// dropped without updating any field of the stored case. Groups and
// subcases appear in first-seen input order.
func Aggregate(cases []RequestCase, opts Options) ([]PathGroup, error) {
	if !opts.Strategy.Valid() {
		return nil, fmt.Errorf("unknown deduplication strategy %q", opts.Strategy)
	}

	bodyMethods := make(map[string]struct{}, len(opts.IncludeBodyFor))
	for _, m := range opts.IncludeBodyFor {
		bodyMethods[strings.ToUpper(m)] = struct{}{}
	}

	switch opts.Strategy {
	case StrategyPathGrouped:
		return aggregateGrouped(cases, opts, bodyMethods)
	default:
		return aggregateFlat(cases, opts, bodyMethods)
	}
}

func aggregateFlat(cases []RequestCase, opts Options, bodyMethods map[string]struct{}) ([]PathGroup, error) {
	seen := make(map[string]struct{})
	var groups []PathGroup

	for _, c := range cases {
		c.Query = c.Query.WithoutKeys(opts.IgnoreQueryParams)
		fp, err := fingerprint(c, opts, bodyMethods, true)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}

		groups = append(groups, PathGroup{
			Path: normalizePath(c.Path),
			SubCases: []SubCase{{
				ID:          fmt.Sprintf("%d", len(groups)+1),
				Method:      strings.ToUpper(c.Method),
				Fingerprint: fp,
				Case:        c,
			}},
		})
	}
	return groups, nil
}

func aggregateGrouped(cases []RequestCase, opts Options, bodyMethods map[string]struct{}) ([]PathGroup, error) {
	index := make(map[string]int)                // normalized path -> groups index
	seen := make(map[string]map[string]struct{}) // path -> fingerprints
	var groups []PathGroup

	for _, c := range cases {
		c.Query = c.Query.WithoutKeys(opts.IgnoreQueryParams)
		path := normalizePath(c.Path)
		gi, ok := index[path]
		if !ok {
			gi = len(groups)
			index[path] = gi
			seen[path] = make(map[string]struct{})
			groups = append(groups, PathGroup{Path: path})
		}

		fp, err := fingerprint(c, opts, bodyMethods, false)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[path][fp]; dup {
			continue
		}
		seen[path][fp] = struct{}{}

		groups[gi].SubCases = append(groups[gi].SubCases, SubCase{
			ID:          fmt.Sprintf("%d.%d", gi+1, len(groups[gi].SubCases)+1),
			Method:      strings.ToUpper(c.Method),
			Fingerprint: fp,
			Case:        c,
		})
	}
	return groups, nil
}

// fingerprint reduces a case to its content-addressed dedup key.
// withMethod selects the flat-strategy key (method+path+query+body?);
// the grouped key is scoped by the owning group and omits both.
func fingerprint(c RequestCase, opts Options, bodyMethods map[string]struct{}, withMethod bool) (string, error) {
	key := tree.Object{
		"query": queryKey(c.Query, opts),
	}
	if withMethod {
		key["method"] = tree.String(strings.ToUpper(c.Method))
		key["path"] = tree.String(normalizePath(c.Path))
	}

	if _, include := bodyMethods[strings.ToUpper(c.Method)]; include && c.HasBody() {
		key["body"] = tree.String(bodyHash(c.Body))
	}

	return tree.HashValue(tree.DomainFingerprint, key)
}

// queryKey builds the tree value encoding of the normalized query.
// Order-insensitive mode uses an object (canonical marshaling sorts the
// keys); order-sensitive mode uses an array of [key, values] pairs so
// observed key order stays part of the identity.
func queryKey(q Query, opts Options) tree.Value {
	q = q.WithoutKeys(opts.IgnoreQueryParams)

	if opts.QueryOrderInsensitive {
		obj := make(tree.Object, len(q))
		for _, p := range q {
			obj[p.Key] = stringArray(p.Values)
		}
		return obj
	}

	arr := make(tree.Array, 0, len(q))
	for _, p := range q {
		arr = append(arr, tree.Array{tree.String(p.Key), stringArray(p.Values)})
	}
	return arr
}

func stringArray(values []string) tree.Array {
	arr := make(tree.Array, len(values))
	for i, v := range values {
		arr[i] = tree.String(v)
	}
	return arr
}

// bodyHash hashes the body content. JSON bodies hash their canonical
// parsed form so cosmetic formatting differences collapse; anything else
// hashes the trimmed raw text.
func bodyHash(body string) string {
	trimmed := strings.TrimSpace(body)
	if v, err := tree.Decode([]byte(trimmed)); err == nil {
		if sum, err := tree.HashValue(tree.DomainBody, v); err == nil {
			return sum
		}
	}
	return tree.HashWithDomain(tree.DomainBody, []byte(trimmed))
}

// normalizePath makes path comparison ignore a trailing slash.
// The root path is left alone.
func normalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if path != "/" && strings.HasSuffix(path, "/") {
		trimmed := strings.TrimRight(path, "/")
		if trimmed == "" {
			return "/"
		}
		return trimmed
	}
	return path
}
