package testcase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatOpts() Options {
	return Options{
		Strategy:       StrategyMethodPathQuery,
		IncludeBodyFor: []string{"POST", "PUT", "PATCH"},
	}
}

func groupedOpts() Options {
	o := flatOpts()
	o.Strategy = StrategyPathGrouped
	return o
}

func TestAggregateUnknownStrategy(t *testing.T) {
	_, err := Aggregate(nil, Options{Strategy: "bogus"})
	assert.ErrorContains(t, err, "unknown deduplication strategy")
}

func TestAggregateFlatDeduplicates(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/users", Query: Query{}.Add("id", "1"), SourceIndex: 0},
		{Method: "GET", Path: "/users", Query: Query{}.Add("id", "1"), SourceIndex: 1},
		{Method: "GET", Path: "/users", Query: Query{}.Add("id", "2"), SourceIndex: 2},
	}

	groups, err := Aggregate(cases, flatOpts())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	// First occurrence survives as the representative.
	assert.Equal(t, 0, groups[0].SubCases[0].Case.SourceIndex)
	assert.Equal(t, "1", groups[0].SubCases[0].ID)
	assert.Equal(t, "2", groups[1].SubCases[0].ID)
}

func TestAggregateFlatMethodDistinguishes(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/thing"},
		{Method: "DELETE", Path: "/thing"},
	}

	groups, err := Aggregate(cases, flatOpts())
	require.NoError(t, err)
	assert.Len(t, groups, 2)
}

func TestAggregateTrailingSlashCollapses(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/users/"},
		{Method: "GET", Path: "/users"},
	}

	groups, err := Aggregate(cases, flatOpts())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "/users", groups[0].Path)
}

func TestAggregateBodyOnlyForConfiguredMethods(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/search", Body: `{"q":"a"}`},
		{Method: "GET", Path: "/search", Body: `{"q":"b"}`},
		{Method: "POST", Path: "/search", Body: `{"q":"a"}`},
		{Method: "POST", Path: "/search", Body: `{"q":"b"}`},
	}

	groups, err := Aggregate(cases, flatOpts())
	require.NoError(t, err)

	// GET bodies are excluded from identity, so both GETs collapse into
	// one subcase; POST bodies are included, so both POSTs survive.
	require.Len(t, groups, 3)
	assert.Equal(t, "GET", groups[0].SubCases[0].Method)
	assert.Equal(t, `{"q":"a"}`, groups[0].SubCases[0].Case.Body)
}

func TestAggregateJSONBodyFormattingCollapses(t *testing.T) {
	cases := []RequestCase{
		{Method: "POST", Path: "/x", Body: `{"a":1,"b":2}`},
		{Method: "POST", Path: "/x", Body: "{\n  \"b\": 2,\n  \"a\": 1\n}"},
	}

	groups, err := Aggregate(cases, flatOpts())
	require.NoError(t, err)
	assert.Len(t, groups, 1, "reformatted JSON bodies are the same case")
}

func TestAggregateIgnoreQueryParams(t *testing.T) {
	opts := flatOpts()
	opts.IgnoreQueryParams = []string{"timestamp"}

	cases := []RequestCase{
		{Method: "GET", Path: "/v", Query: Query{}.Add("id", "1").Add("timestamp", "111")},
		{Method: "GET", Path: "/v", Query: Query{}.Add("id", "1").Add("timestamp", "222")},
	}

	groups, err := Aggregate(cases, opts)
	require.NoError(t, err)
	require.Len(t, groups, 1)

	rep := groups[0].SubCases[0].Case
	assert.Nil(t, rep.Query.Get("timestamp"), "ignored params are dropped from the representative too")
	assert.Equal(t, []string{"1"}, rep.Query.Get("id"))
}

func TestAggregateQueryOrderSensitivity(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/a/b/cd", Query: Query{}.Add("param1", "B").Add("param2", "A")},
		{Method: "GET", Path: "/a/b/cd", Query: Query{}.Add("param2", "A").Add("param1", "B")},
	}

	t.Run("order sensitive keeps both", func(t *testing.T) {
		groups, err := Aggregate(cases, flatOpts())
		require.NoError(t, err)
		assert.Len(t, groups, 2)
	})

	t.Run("order insensitive collapses", func(t *testing.T) {
		opts := flatOpts()
		opts.QueryOrderInsensitive = true
		groups, err := Aggregate(cases, opts)
		require.NoError(t, err)
		assert.Len(t, groups, 1)
	})
}

func TestAggregateGroupedHierarchy(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/a/b/cd", Query: Query{}.Add("param1", "B").Add("param2", "A")},
		{Method: "GET", Path: "/a/b/cd", Query: Query{}.Add("param1", "A").Add("param2", "B")},
		{Method: "GET", Path: "/other"},
	}

	groups, err := Aggregate(cases, groupedOpts())
	require.NoError(t, err)
	require.Len(t, groups, 2)

	first := groups[0]
	assert.Equal(t, "/a/b/cd", first.Path)
	require.Len(t, first.SubCases, 2, "different value assignments are distinct variants")
	assert.Equal(t, "1.1", first.SubCases[0].ID)
	assert.Equal(t, "1.2", first.SubCases[1].ID)
	assert.NotEqual(t, first.SubCases[0].Fingerprint, first.SubCases[1].Fingerprint)

	assert.Equal(t, "/other", groups[1].Path)
	assert.Equal(t, "2.1", groups[1].SubCases[0].ID)
}

func TestAggregateGroupedMethodNotInFingerprint(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/r", Query: Query{}.Add("id", "1")},
		{Method: "HEAD", Path: "/r", Query: Query{}.Add("id", "1")},
	}

	groups, err := Aggregate(cases, groupedOpts())
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Len(t, groups[0].SubCases, 1, "method does not split subcases under path grouping")
	assert.Equal(t, "GET", groups[0].SubCases[0].Method)
}

func TestAggregateGroupsInFirstSeenOrder(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/z"},
		{Method: "GET", Path: "/a"},
		{Method: "GET", Path: "/z", Query: Query{}.Add("x", "1")},
	}

	groups, err := Aggregate(cases, groupedOpts())
	require.NoError(t, err)
	require.Len(t, groups, 2)
	assert.Equal(t, "/z", groups[0].Path)
	assert.Equal(t, "/a", groups[1].Path)
}

func TestAggregateDeterministic(t *testing.T) {
	cases := []RequestCase{
		{Method: "GET", Path: "/p", Query: Query{}.Add("a", "1").Add("b", "2")},
		{Method: "POST", Path: "/p", Body: `{"k":"v"}`},
		{Method: "GET", Path: "/q/"},
	}

	first, err := Aggregate(cases, groupedOpts())
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := Aggregate(cases, groupedOpts())
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "/"},
		{"/", "/"},
		{"/a/", "/a"},
		{"/a", "/a"},
		{"///", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in), "input %q", tt.in)
	}
}

func TestQueryOperations(t *testing.T) {
	q := Query{}.Add("a", "1").Add("b", "2").Add("a", "3")

	assert.Equal(t, []string{"1", "3"}, q.Get("a"))
	assert.Nil(t, q.Get("missing"))

	q = q.Set("b", []string{"replaced"})
	assert.Equal(t, []string{"replaced"}, q.Get("b"))

	filtered := q.WithoutKeys([]string{"A"})
	assert.Nil(t, filtered.Get("a"), "removal is case-insensitive")
	assert.Equal(t, []string{"replaced"}, filtered.Get("b"))
}
