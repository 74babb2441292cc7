package testcase

import "strings"

// Param is one query parameter with its ordered values. A key may repeat
// in the raw query string; values within a key keep their original order.
type Param struct {
	Key    string   `json:"key"`
	Values []string `json:"values"`
}

// Query is an ordered sequence of parameters. Key order is the order of
// first appearance in the source request; whether that order is
// significant is decided by the aggregation options, not here.
type Query []Param

// Get returns the values for a key, or nil if absent.
func (q Query) Get(key string) []string {
	for _, p := range q {
		if p.Key == key {
			return p.Values
		}
	}
	return nil
}

// Add appends a value to the given key, creating the key at the end of
// the order if it is new.
func (q Query) Add(key, value string) Query {
	for i, p := range q {
		if p.Key == key {
			q[i].Values = append(q[i].Values, value)
			return q
		}
	}
	return append(q, Param{Key: key, Values: []string{value}})
}

// Set replaces all values for a key.
func (q Query) Set(key string, values []string) Query {
	for i, p := range q {
		if p.Key == key {
			q[i].Values = values
			return q
		}
	}
	return append(q, Param{Key: key, Values: values})
}

// WithoutKeys returns a copy of q with the named keys removed.
// Matching is case-insensitive.
func (q Query) WithoutKeys(keys []string) Query {
	if len(keys) == 0 {
		return q
	}
	drop := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		drop[strings.ToLower(k)] = struct{}{}
	}
	out := make(Query, 0, len(q))
	for _, p := range q {
		if _, skip := drop[strings.ToLower(p.Key)]; skip {
			continue
		}
		out = append(out, p)
	}
	return out
}

// RequestCase is one replayable request extracted from the logs.
// Immutable once extracted.
type RequestCase struct {
	Method   string            `json:"method"`
	URL      string            `json:"url,omitempty"` // full URL or domain when the log carried one
	Path     string            `json:"path"`
	Query    Query             `json:"query,omitempty"`
	Headers  map[string]string `json:"headers,omitempty"`
	Body     string            `json:"body,omitempty"` // empty means no body
	MimeType string            `json:"mime_type,omitempty"`

	// SourceIndex is the position of the originating record in the input
	// stream, kept for reproducibility and diagnostics.
	SourceIndex int `json:"source_index"`
}

// HasBody reports whether the case carries a request body.
func (c RequestCase) HasBody() bool { return c.Body != "" }

// SubCase is one deduplicated request variant within a group.
type SubCase struct {
	ID          string      `json:"id"`
	Method      string      `json:"method"`
	Fingerprint string      `json:"fingerprint"`
	Case        RequestCase `json:"case"`
}

// PathGroup is all subcases sharing one normalized request path.
// Under the flat strategy each group holds exactly one subcase.
type PathGroup struct {
	Path     string    `json:"path"`
	SubCases []SubCase `json:"sub_cases"`
}

// Strategy selects how cases are deduplicated and grouped.
type Strategy string

const (
	// StrategyMethodPathQuery deduplicates on (method, path, query,
	// body?) and produces a flat one-subcase-per-group hierarchy.
	StrategyMethodPathQuery Strategy = "method_path_query"

	// StrategyPathGrouped partitions by path first, then deduplicates
	// within the group on (query, body?). Method is intentionally not
	// part of the sub-fingerprint: the grouping goal is "same resource,
	// different parameterizations".
	StrategyPathGrouped Strategy = "path_grouped"
)

// Valid reports whether s is a known strategy.
func (s Strategy) Valid() bool {
	return s == StrategyMethodPathQuery || s == StrategyPathGrouped
}
