package logs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apidiff/internal/compare"
	"github.com/roach88/apidiff/internal/testcase"
	"github.com/roach88/apidiff/internal/tree"
)

func defaultMapping() Mapping {
	return Mapping{
		Method:   []string{"method", "request.method"},
		URL:      []string{"url", "request.url"},
		Path:     []string{"path", "request.path"},
		Headers:  []string{"headers", "request.headers"},
		Query:    []string{"query", "request.query"},
		Body:     []string{"body", "request.body"},
		MimeType: []string{"mime_type", "content_type"},
	}
}

func extractOne(t *testing.T, raw string) (tree.Value, *Extractor) {
	t.Helper()
	return record(t, raw), &Extractor{Mapping: defaultMapping()}
}

func TestExtractBasicRecord(t *testing.T) {
	rec, ex := extractOne(t, `{
		"method": "post",
		"path": "/users",
		"query": {"page": "2"},
		"headers": {"Accept": "application/json"},
		"body": "{\"name\":\"x\"}"
	}`)

	cases, diags := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Empty(t, diags.Warnings)
	assert.Zero(t, diags.Skipped)

	c := cases[0]
	assert.Equal(t, "POST", c.Method, "method is upper-cased")
	assert.Equal(t, "/users", c.Path)
	assert.Equal(t, []string{"2"}, c.Query.Get("page"))
	assert.Equal(t, "application/json", c.Headers["accept"], "header names are lower-cased")
	assert.Equal(t, `{"name":"x"}`, c.Body)
	assert.Equal(t, 0, c.SourceIndex)
}

func TestExtractDefaultsMethodToGet(t *testing.T) {
	rec, ex := extractOne(t, `{"path": "/x"}`)

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Equal(t, "GET", cases[0].Method)
}

func TestExtractURLFallback(t *testing.T) {
	rec, ex := extractOne(t, `{"url": "https://api.example.com/v1/items?b=2&a=1"}`)

	cases, diags := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Empty(t, diags.Warnings)

	c := cases[0]
	assert.Equal(t, "/v1/items", c.Path)
	// URL query order is preserved, not sorted.
	require.Len(t, c.Query, 2)
	assert.Equal(t, "b", c.Query[0].Key)
	assert.Equal(t, "a", c.Query[1].Key)
}

func TestExtractExplicitQueryOverridesURL(t *testing.T) {
	rec, ex := extractOne(t, `{
		"url": "https://h/p?id=from_url&keep=yes",
		"query": {"id": "explicit"}
	}`)

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Equal(t, []string{"explicit"}, cases[0].Query.Get("id"))
	assert.Equal(t, []string{"yes"}, cases[0].Query.Get("keep"))
}

func TestExtractExplicitPathWinsOverURL(t *testing.T) {
	rec, ex := extractOne(t, `{"path": "/explicit", "url": "https://h/from-url"}`)

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Equal(t, "/explicit", cases[0].Path)
}

func TestExtractSkipsRecordWithoutTarget(t *testing.T) {
	good := record(t, `{"path": "/ok"}`)
	bad := record(t, `{"method": "GET"}`)

	ex := &Extractor{Mapping: defaultMapping()}
	cases, diags := ex.Extract([]tree.Value{bad, good})

	require.Len(t, cases, 1)
	assert.Equal(t, "/ok", cases[0].Path)
	assert.Equal(t, 1, cases[0].SourceIndex, "source index counts skipped records too")
	assert.Equal(t, 1, diags.Skipped)
	require.Len(t, diags.Warnings, 1)
	assert.Equal(t, 0, diags.Warnings[0].RecordIndex)
	assert.Contains(t, diags.Warnings[0].Reason, "cannot form request target")
}

func TestExtractHeaderArraysJoined(t *testing.T) {
	rec, ex := extractOne(t, `{"path": "/x", "headers": {"X-Multi": ["a", "b"]}}`)

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Equal(t, "a,b", cases[0].Headers["x-multi"])
}

func TestExtractContentTypeSynthesis(t *testing.T) {
	t.Run("from mime field", func(t *testing.T) {
		rec, ex := extractOne(t, `{"path": "/x", "mime_type": "text/xml"}`)
		cases, _ := ex.Extract([]tree.Value{rec})
		require.Len(t, cases, 1)
		assert.Equal(t, "text/xml", cases[0].Headers["content-type"])
		assert.Equal(t, "text/xml", cases[0].MimeType)
	})

	t.Run("existing header preserved", func(t *testing.T) {
		rec, ex := extractOne(t, `{
			"path": "/x",
			"mime_type": "text/xml",
			"headers": {"Content-Type": "application/soap+xml"}
		}`)
		cases, _ := ex.Extract([]tree.Value{rec})
		require.Len(t, cases, 1)
		assert.Equal(t, "application/soap+xml", cases[0].Headers["content-type"])
	})

	t.Run("structured body implies json", func(t *testing.T) {
		rec, ex := extractOne(t, `{"path": "/x", "body": {"k": "v"}}`)
		cases, _ := ex.Extract([]tree.Value{rec})
		require.Len(t, cases, 1)
		assert.Equal(t, "application/json", cases[0].MimeType)
		assert.Equal(t, `{"k":"v"}`, cases[0].Body)
	})
}

func TestExtractBodyTrimmedOnly(t *testing.T) {
	rec, ex := extractOne(t, `{"path": "/x", "body": "  {\"msg\": \"a  b\"}\n"}`)

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Equal(t, `{"msg": "a  b"}`, cases[0].Body, "whitespace inside string literals survives")
}

func TestExtractDistinctBodiesStayDistinct(t *testing.T) {
	recs := []tree.Value{
		record(t, `{"method": "POST", "path": "/x", "body": "{\"msg\": \"a  b\"}"}`),
		record(t, `{"method": "POST", "path": "/x", "body": "{\"msg\": \"a b\"}"}`),
	}
	ex := &Extractor{Mapping: defaultMapping()}

	cases, _ := ex.Extract(recs)
	require.Len(t, cases, 2)
	assert.NotEqual(t, cases[0].Body, cases[1].Body)

	groups, err := testcase.Aggregate(cases, testcase.Options{
		Strategy:       testcase.StrategyMethodPathQuery,
		IncludeBodyFor: []string{"POST"},
	})
	require.NoError(t, err)
	assert.Len(t, groups, 2, "bodies differing inside string literals are separate cases")
}

func TestExtractAppliesRequestIgnores(t *testing.T) {
	rec := record(t, `{
		"path": "/orders",
		"query": {"id": "1", "timestamp": "999"},
		"headers": {"Authorization": "Bearer secret", "Accept": "application/json"}
	}`)
	ex := &Extractor{
		Mapping: defaultMapping(),
		Ignores: Ignores{
			Headers:     []string{"Authorization"},
			QueryParams: []string{"timestamp"},
		},
	}

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)

	c := cases[0]
	assert.NotContains(t, c.Headers, "authorization", "ignored headers never reach the case")
	assert.Equal(t, "application/json", c.Headers["accept"])
	assert.Nil(t, c.Query.Get("timestamp"))
	assert.Equal(t, []string{"1"}, c.Query.Get("id"))
}

func TestExtractPrunesIgnoredBodyPaths(t *testing.T) {
	ex := &Extractor{
		Mapping: defaultMapping(),
		Ignores: Ignores{BodyPaths: []compare.IgnorePath{compare.MustParseIgnorePath("meta.ts")}},
	}

	t.Run("structured body", func(t *testing.T) {
		rec := record(t, `{"path": "/x", "body": {"meta": {"ts": 1, "v": 2}, "k": "x"}}`)
		cases, _ := ex.Extract([]tree.Value{rec})
		require.Len(t, cases, 1)
		assert.Equal(t, `{"k":"x","meta":{"v":2}}`, cases[0].Body)
	})

	t.Run("string json body", func(t *testing.T) {
		rec := record(t, `{"path": "/x", "body": "{\"meta\": {\"ts\": 1}, \"k\": \"x\"}"}`)
		cases, _ := ex.Extract([]tree.Value{rec})
		require.Len(t, cases, 1)
		assert.Equal(t, `{"k":"x","meta":{}}`, cases[0].Body)
		assert.Equal(t, "application/json", cases[0].MimeType)
	})

	t.Run("non-json string body untouched", func(t *testing.T) {
		rec := record(t, `{"path": "/x", "body": "plain text"}`)
		cases, _ := ex.Extract([]tree.Value{rec})
		require.Len(t, cases, 1)
		assert.Equal(t, "plain text", cases[0].Body)
		assert.Empty(t, cases[0].MimeType)
	})
}

func TestExtractQueryValueArrays(t *testing.T) {
	rec, ex := extractOne(t, `{"path": "/x", "query": {"tag": ["a", "b"]}}`)

	cases, _ := ex.Extract([]tree.Value{rec})
	require.Len(t, cases, 1)
	assert.Equal(t, []string{"a", "b"}, cases[0].Query.Get("tag"))
}

func TestParseRawQuery(t *testing.T) {
	q := parseRawQuery("b=2&a=1&b=3&empty=&flag")

	require.Len(t, q, 4)
	assert.Equal(t, "b", q[0].Key)
	assert.Equal(t, []string{"2", "3"}, q.Get("b"))
	assert.Equal(t, []string{"1"}, q.Get("a"))
	assert.Equal(t, []string{""}, q.Get("empty"))
	assert.Equal(t, []string{""}, q.Get("flag"))
}

func TestParseRawQueryUnescapes(t *testing.T) {
	q := parseRawQuery("name=hello%20world&sym=%26")

	assert.Equal(t, []string{"hello world"}, q.Get("name"))
	assert.Equal(t, []string{"&"}, q.Get("sym"))
}
