package logs

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/roach88/apidiff/internal/compare"
	"github.com/roach88/apidiff/internal/testcase"
	"github.com/roach88/apidiff/internal/tree"
)

// Mapping lists the candidate dotted paths for each logical field.
type Mapping struct {
	Method   []string
	URL      []string
	Path     []string
	Headers  []string
	Query    []string
	Body     []string
	MimeType []string
}

// Warning records one skipped or degraded record.
type Warning struct {
	RecordIndex int
	Reason      string
}

func (w Warning) String() string {
	return fmt.Sprintf("record %d: %s", w.RecordIndex, w.Reason)
}

// Diagnostics accumulates non-fatal extraction issues. A single
// malformed record never drops the rest of the batch.
type Diagnostics struct {
	Warnings []Warning
	Skipped  int
}

func (d *Diagnostics) warn(index int, reason string) {
	d.Warnings = append(d.Warnings, Warning{RecordIndex: index, Reason: reason})
}

// Ignores strips request-side noise at extraction time. Stripped
// content never reaches a fingerprint and is never replayed.
type Ignores struct {
	Headers     []string
	QueryParams []string
	BodyPaths   []compare.IgnorePath
}

// Extractor produces request cases from raw records via field resolution.
type Extractor struct {
	Mapping Mapping
	Ignores Ignores
}

// Extract resolves each record into a RequestCase. Output order matches
// input order; records that cannot form a request target are skipped and
// counted in the returned diagnostics.
func (e *Extractor) Extract(records []tree.Value) ([]testcase.RequestCase, *Diagnostics) {
	diags := &Diagnostics{}
	cases := make([]testcase.RequestCase, 0, len(records))

	for i, record := range records {
		c, ok := e.extractOne(record, i, diags)
		if !ok {
			diags.Skipped++
			continue
		}
		cases = append(cases, c)
	}
	return cases, diags
}

func (e *Extractor) extractOne(record tree.Value, index int, diags *Diagnostics) (testcase.RequestCase, bool) {
	method := resolveString(record, e.Mapping.Method)
	if method == "" {
		method = "GET"
	}
	rawURL := resolveString(record, e.Mapping.URL)
	path := resolveString(record, e.Mapping.Path)

	headers := resolveHeaders(record, e.Mapping.Headers)
	query := resolveQuery(record, e.Mapping.Query)

	if rawURL != "" && path == "" {
		urlPath, urlQuery, err := splitURL(rawURL)
		if err != nil {
			diags.warn(index, fmt.Sprintf("unparseable url %q: %v", rawURL, err))
		} else {
			path = urlPath
			// Explicit query fields take precedence over url-derived ones.
			merged := urlQuery
			for _, p := range query {
				merged = merged.Set(p.Key, p.Values)
			}
			query = merged
		}
	}
	if path == "" {
		diags.warn(index, "cannot form request target: no path and no parseable url")
		return testcase.RequestCase{}, false
	}

	body, bodyIsJSON := resolveBody(record, e.Mapping.Body, e.Ignores.BodyPaths)
	mimeType := resolveString(record, e.Mapping.MimeType)
	if mimeType == "" && bodyIsJSON {
		mimeType = "application/json"
	}

	// Synthesize Content-Type from the resolved mime type unless the
	// record already carried one.
	if mimeType != "" {
		if _, present := headers["content-type"]; !present {
			if headers == nil {
				headers = make(map[string]string, 1)
			}
			headers["content-type"] = mimeType
		}
	}

	headers = dropHeaders(headers, e.Ignores.Headers)
	query = query.WithoutKeys(e.Ignores.QueryParams)

	return testcase.RequestCase{
		Method:      strings.ToUpper(method),
		URL:         rawURL,
		Path:        path,
		Query:       query,
		Headers:     headers,
		Body:        body,
		MimeType:    mimeType,
		SourceIndex: index,
	}, true
}

// resolveString resolves a field expected to be scalar and renders it as
// a string. Containers are treated as absent.
func resolveString(record tree.Value, paths []string) string {
	v, ok := Resolve(record, paths)
	if !ok || !tree.IsScalar(v) {
		return ""
	}
	if _, isNull := v.(tree.Null); isNull {
		return ""
	}
	return tree.Render(v)
}

// resolveHeaders flattens a header object into lowercase name -> value.
// Array values are joined with "," the way proxies fold repeated headers.
func resolveHeaders(record tree.Value, paths []string) map[string]string {
	v, ok := Resolve(record, paths)
	if !ok {
		return nil
	}
	obj, ok := v.(tree.Object)
	if !ok {
		return nil
	}

	headers := make(map[string]string, len(obj))
	for _, k := range obj.SortedKeys() {
		switch hv := obj[k].(type) {
		case tree.Null:
			continue
		case tree.Array:
			parts := make([]string, 0, len(hv))
			for _, elem := range hv {
				if tree.IsScalar(elem) {
					parts = append(parts, tree.Render(elem))
				}
			}
			headers[strings.ToLower(k)] = strings.Join(parts, ",")
		default:
			if tree.IsScalar(hv) {
				headers[strings.ToLower(k)] = tree.Render(hv)
			}
		}
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// resolveQuery converts a query object into an ordered Query. JSON
// objects carry no reliable key order, so keys are taken in sorted order
// for determinism; values within a key keep their order.
func resolveQuery(record tree.Value, paths []string) testcase.Query {
	v, ok := Resolve(record, paths)
	if !ok {
		return nil
	}
	obj, ok := v.(tree.Object)
	if !ok {
		return nil
	}

	var query testcase.Query
	for _, k := range obj.SortedKeys() {
		switch qv := obj[k].(type) {
		case tree.Null:
			continue
		case tree.Array:
			for _, elem := range qv {
				if tree.IsScalar(elem) {
					query = query.Add(k, tree.Render(elem))
				}
			}
		default:
			if tree.IsScalar(qv) {
				query = query.Add(k, tree.Render(qv))
			}
		}
	}
	return query
}

// resolveBody renders the body field. String bodies are only trimmed:
// whitespace inside string literals is payload, and two bodies that
// differ there must stay distinct cases. Structured bodies are
// serialized to canonical JSON text. Configured body ignore paths are
// pruned before serialization; a string body is pruned only when it
// parses as a JSON container, in which case it is re-serialized
// canonically.
func resolveBody(record tree.Value, paths []string, prune []compare.IgnorePath) (body string, isJSON bool) {
	v, ok := Resolve(record, paths)
	if !ok {
		return "", false
	}
	switch bv := v.(type) {
	case tree.Null:
		return "", false
	case tree.String:
		s := strings.TrimSpace(string(bv))
		if len(prune) > 0 {
			if decoded, err := tree.Decode([]byte(s)); err == nil {
				switch decoded.(type) {
				case tree.Object, tree.Array:
					if data, mErr := tree.MarshalCanonical(compare.Prune(decoded, prune)); mErr == nil {
						return string(data), true
					}
				}
			}
		}
		return s, false
	case tree.Array, tree.Object:
		data, err := tree.MarshalCanonical(compare.Prune(bv, prune))
		if err != nil {
			return "", false
		}
		return string(data), true
	default:
		return tree.Render(bv), false
	}
}

// dropHeaders removes ignored header names in place. Extracted header
// names are already lowercase; the ignore list may not be.
func dropHeaders(headers map[string]string, ignore []string) map[string]string {
	if len(headers) == 0 || len(ignore) == 0 {
		return headers
	}
	for _, name := range ignore {
		delete(headers, strings.ToLower(name))
	}
	if len(headers) == 0 {
		return nil
	}
	return headers
}

// splitURL extracts the path and an order-preserving query from a URL.
// net/url's ParseQuery folds parameters into a map and loses key order,
// so the raw query is walked directly.
func splitURL(rawURL string) (string, testcase.Query, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", nil, err
	}
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	return path, parseRawQuery(u.RawQuery), nil
}

// parseRawQuery parses key=value pairs keeping first-appearance key
// order and per-key value order. Blank values are kept.
func parseRawQuery(rawQuery string) testcase.Query {
	var query testcase.Query
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			decodedKey = key
		}
		decodedValue, err := url.QueryUnescape(value)
		if err != nil {
			decodedValue = value
		}
		query = query.Add(decodedKey, decodedValue)
	}
	return query
}
