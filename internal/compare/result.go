package compare

import (
	"strings"

	"github.com/roach88/apidiff/internal/testcase"
)

// FailureKind classifies an upstream transport failure for one side.
type FailureKind string

const (
	FailureTimeout    FailureKind = "timeout"
	FailureConnection FailureKind = "connection_error"
	FailureHTTP       FailureKind = "http_error"
)

// Failure is the explicit marker the execution layer hands over when a
// side produced no comparable response.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"message,omitempty"`
}

// RawResponse is one side's already-fetched response.
type RawResponse struct {
	Status    int               `json:"status"`
	Headers   map[string]string `json:"headers,omitempty"`
	Body      string            `json:"body,omitempty"`
	MimeType  string            `json:"mime_type,omitempty"`
	ElapsedMS int64             `json:"elapsed_ms,omitempty"`
}

// Outcome is either a response or a failure marker, never both.
type Outcome struct {
	Response *RawResponse `json:"response,omitempty"`
	Failure  *Failure     `json:"failure,omitempty"`
}

// OK reports whether the side produced a comparable response.
func (o Outcome) OK() bool { return o.Response != nil }

// ResultKind is the overall verdict for one subcase.
type ResultKind string

const (
	ResultEqual      ResultKind = "equal"
	ResultDifferent  ResultKind = "different"
	ResultIncomplete ResultKind = "incomplete"
)

// Ignores carries the response-side ignore rules the comparison applies.
type Ignores struct {
	Headers   []string
	BodyPaths []IgnorePath
}

// ComparisonResult is the per-subcase output consumed by reporting.
type ComparisonResult struct {
	SubCaseID string     `json:"subcase_id"`
	Kind      ResultKind `json:"kind"`

	StatusEqual bool `json:"status_equal"`
	LeftStatus  int  `json:"left_status,omitempty"`
	RightStatus int  `json:"right_status,omitempty"`

	HeadersDiff []DiffNode `json:"headers_diff,omitempty"`
	BodyDiff    DiffNode   `json:"body_diff"`
	BodyEqual   bool       `json:"body_equal"`

	OverallEqual bool `json:"overall_equal"`

	// Display forms of both bodies for report rendering.
	LeftDisplay  string `json:"left_display,omitempty"`
	RightDisplay string `json:"right_display,omitempty"`

	// Malformed flags surface bodies that claimed JSON/XML but failed to
	// parse and were compared as text instead.
	LeftMalformed  bool `json:"left_malformed,omitempty"`
	RightMalformed bool `json:"right_malformed,omitempty"`

	LeftFailure  *Failure `json:"left_failure,omitempty"`
	RightFailure *Failure `json:"right_failure,omitempty"`
}

// Compare assembles the comparison result for one subcase from the two
// sides' outcomes. A missing side yields an incomplete result instead of
// diffing a present side against an absent one.
func Compare(sub testcase.SubCase, left, right Outcome, ignores Ignores, opts DiffOptions) ComparisonResult {
	if !left.OK() || !right.OK() {
		res := ComparisonResult{
			SubCaseID:    sub.ID,
			Kind:         ResultIncomplete,
			OverallEqual: false,
			LeftFailure:  left.Failure,
			RightFailure: right.Failure,
		}
		if left.OK() {
			res.LeftStatus = left.Response.Status
			res.LeftDisplay = left.Response.Body
		}
		if right.OK() {
			res.RightStatus = right.Response.Status
			res.RightDisplay = right.Response.Body
		}
		return res
	}

	l, r := left.Response, right.Response

	leftForm := Canonicalize(l.Body, mimeOf(l), ignores.BodyPaths)
	rightForm := Canonicalize(r.Body, mimeOf(r), ignores.BodyPaths)

	bodyDiff, bodyEqual := Diff(leftForm, rightForm, opts)
	headersDiff := DiffHeaders(l.Headers, r.Headers, ignores.Headers)
	statusEqual := l.Status == r.Status

	overall := statusEqual && len(headersDiff) == 0 && bodyEqual
	kind := ResultDifferent
	if overall {
		kind = ResultEqual
	}

	return ComparisonResult{
		SubCaseID:      sub.ID,
		Kind:           kind,
		StatusEqual:    statusEqual,
		LeftStatus:     l.Status,
		RightStatus:    r.Status,
		HeadersDiff:    headersDiff,
		BodyDiff:       bodyDiff,
		BodyEqual:      bodyEqual,
		OverallEqual:   overall,
		LeftDisplay:    leftForm.Display,
		RightDisplay:   rightForm.Display,
		LeftMalformed:  leftForm.Malformed,
		RightMalformed: rightForm.Malformed,
	}
}

// mimeOf prefers the explicit mime type and falls back to the
// content-type header.
func mimeOf(r *RawResponse) string {
	if r.MimeType != "" {
		return r.MimeType
	}
	for name, value := range r.Headers {
		if strings.EqualFold(name, "content-type") {
			return value
		}
	}
	return ""
}
