package compare

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/apidiff/internal/testcase"
)

func responseOutcome(status int, body, mime string) Outcome {
	return Outcome{Response: &RawResponse{
		Status:   status,
		Body:     body,
		MimeType: mime,
	}}
}

func failureOutcome(kind FailureKind, msg string) Outcome {
	return Outcome{Failure: &Failure{Kind: kind, Message: msg}}
}

func testSub() testcase.SubCase {
	return testcase.SubCase{ID: "1.1", Method: "GET"}
}

func TestCompareEqual(t *testing.T) {
	left := responseOutcome(200, `{"a": 1, "b": 2}`, "application/json")
	right := responseOutcome(200, `{"b":2,"a":1}`, "application/json")

	res := Compare(testSub(), left, right, Ignores{}, DiffOptions{})

	assert.Equal(t, ResultEqual, res.Kind)
	assert.True(t, res.OverallEqual)
	assert.True(t, res.StatusEqual)
	assert.True(t, res.BodyEqual)
	assert.Equal(t, "1.1", res.SubCaseID)
	assert.Equal(t, res.LeftDisplay, res.RightDisplay)
}

func TestCompareStatusMismatch(t *testing.T) {
	left := responseOutcome(200, `{}`, "application/json")
	right := responseOutcome(500, `{}`, "application/json")

	res := Compare(testSub(), left, right, Ignores{}, DiffOptions{})

	assert.Equal(t, ResultDifferent, res.Kind)
	assert.False(t, res.StatusEqual)
	assert.True(t, res.BodyEqual, "body still compares independently of status")
	assert.False(t, res.OverallEqual)
}

func TestCompareIgnoredNoiseMakesEqual(t *testing.T) {
	paths, err := ParseIgnorePaths([]string{"meta.timestamp"})
	require.NoError(t, err)

	left := responseOutcome(200, `{"data":1,"meta":{"timestamp":"2024-01-01T00:00:00Z"}}`, "application/json")
	right := responseOutcome(200, `{"data":1,"meta":{"timestamp":"2024-06-30T12:00:00Z"}}`, "application/json")

	res := Compare(testSub(), left, right, Ignores{BodyPaths: paths}, DiffOptions{})
	assert.True(t, res.OverallEqual)
	assert.Equal(t, ResultEqual, res.Kind)
}

func TestCompareHeaderDifference(t *testing.T) {
	left := responseOutcome(200, ``, "")
	left.Response.Headers = map[string]string{"etag": "v1"}
	right := responseOutcome(200, ``, "")
	right.Response.Headers = map[string]string{"etag": "v2"}

	res := Compare(testSub(), left, right, Ignores{}, DiffOptions{})
	assert.Equal(t, ResultDifferent, res.Kind)
	require.Len(t, res.HeadersDiff, 1)
	assert.Equal(t, "etag", res.HeadersDiff[0].PathString())

	ignored := Compare(testSub(), left, right, Ignores{Headers: []string{"ETag"}}, DiffOptions{})
	assert.Equal(t, ResultEqual, ignored.Kind)
}

func TestCompareIncompleteOnFailure(t *testing.T) {
	ok := responseOutcome(200, `{"a":1}`, "application/json")

	tests := []struct {
		name        string
		left, right Outcome
	}{
		{"right timeout", ok, failureOutcome(FailureTimeout, "deadline exceeded")},
		{"left connection error", failureOutcome(FailureConnection, "refused"), ok},
		{"both failed", failureOutcome(FailureTimeout, ""), failureOutcome(FailureConnection, "")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Compare(testSub(), tt.left, tt.right, Ignores{}, DiffOptions{})
			assert.Equal(t, ResultIncomplete, res.Kind)
			assert.False(t, res.OverallEqual, "incomplete is never equal")
			assert.Empty(t, res.BodyDiff.Children, "no diff is attempted against a missing side")
		})
	}
}

func TestCompareIncompleteCarriesFailureDetail(t *testing.T) {
	res := Compare(testSub(),
		responseOutcome(200, "body", "text/plain"),
		failureOutcome(FailureTimeout, "deadline exceeded"),
		Ignores{}, DiffOptions{})

	require.NotNil(t, res.RightFailure)
	assert.Equal(t, FailureTimeout, res.RightFailure.Kind)
	assert.Nil(t, res.LeftFailure)
	assert.Equal(t, 200, res.LeftStatus)
	assert.Equal(t, "body", res.LeftDisplay)
}

func TestCompareMalformedFlagged(t *testing.T) {
	left := responseOutcome(200, `{"ok":true}`, "application/json")
	right := responseOutcome(200, `{"broken":`, "application/json")

	res := Compare(testSub(), left, right, Ignores{}, DiffOptions{})
	assert.Equal(t, ResultDifferent, res.Kind)
	assert.False(t, res.LeftMalformed)
	assert.True(t, res.RightMalformed)
}

func TestCompareMimeFromHeader(t *testing.T) {
	left := responseOutcome(200, `<a><b>v</b></a>`, "")
	left.Response.Headers = map[string]string{"Content-Type": "text/xml"}
	right := responseOutcome(200, "<a>\n  <b>v</b>\n</a>", "")
	right.Response.Headers = map[string]string{"content-type": "text/xml"}

	res := Compare(testSub(), left, right, Ignores{Headers: []string{"content-type"}}, DiffOptions{})
	assert.True(t, res.OverallEqual)
}
