// Package replay executes deduplicated request cases against the two
// candidate endpoints and feeds the outcomes to the comparison engine.
//
// The comparison core never touches the network; this package owns
// connection handling, timeouts, retries, and the bounded worker pool,
// and hands over either a RawResponse or an explicit failure marker per
// side.
package replay

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/roach88/apidiff/internal/compare"
	"github.com/roach88/apidiff/internal/testcase"
)

// Target is one endpoint requests are replayed against.
type Target struct {
	Name           string
	BaseURL        string
	DefaultHeaders map[string]string
}

// Options tunes the execution layer.
type Options struct {
	Concurrency int
	Timeout     time.Duration
	VerifyTLS   bool
	Retries     int // retry attempts for transient failures, per side
	Backoff     time.Duration
}

// hopByHop lists headers owned by the transport, never replayed.
var hopByHop = map[string]struct{}{
	"connection":          {},
	"keep-alive":          {},
	"proxy-authenticate":  {},
	"proxy-authorization": {},
	"te":                  {},
	"trailer":             {},
	"transfer-encoding":   {},
	"upgrade":             {},
	"content-length":      {},
	"host":                {},
}

// PrepareHeaders merges the recorded headers with target overrides,
// dropping hop-by-hop headers. Names come out lowercased.
func PrepareHeaders(base, overrides map[string]string) map[string]string {
	result := make(map[string]string, len(base)+len(overrides))
	for k, v := range base {
		lk := strings.ToLower(k)
		if _, skip := hopByHop[lk]; skip {
			continue
		}
		result[lk] = v
	}
	for k, v := range overrides {
		result[strings.ToLower(k)] = v
	}
	return result
}

// Client sends replayed requests to one or both targets.
type Client struct {
	http    *http.Client
	retries int
	backoff time.Duration
}

// NewClient builds a client honoring the execution options.
func NewClient(opts Options) *Client {
	transport := http.DefaultTransport
	if !opts.VerifyTLS {
		t := http.DefaultTransport.(*http.Transport).Clone()
		t.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		transport = t
	}
	return &Client{
		http: &http.Client{
			Transport: transport,
			Timeout:   opts.Timeout,
		},
		retries: opts.Retries,
		backoff: opts.Backoff,
	}
}

// Do replays one subcase against a target. Transport failures come back
// as failure markers, never as errors: a failed side must not abort the
// batch.
func (c *Client) Do(ctx context.Context, target Target, sub testcase.SubCase) compare.Outcome {
	var last compare.Outcome
	for attempt := 0; ; attempt++ {
		last = c.doOnce(ctx, target, sub)
		if last.OK() || attempt >= c.retries || !transient(last.Failure) {
			return last
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(c.backoff):
		}
	}
}

func (c *Client) doOnce(ctx context.Context, target Target, sub testcase.SubCase) compare.Outcome {
	rc := sub.Case

	var body io.Reader
	if rc.HasBody() {
		body = strings.NewReader(rc.Body)
	}
	req, err := http.NewRequestWithContext(ctx, rc.Method, joinURL(target.BaseURL, rc.Path), body)
	if err != nil {
		return failure(compare.FailureHTTP, err.Error())
	}
	req.URL.RawQuery = encodeQuery(rc.Query)
	for k, v := range PrepareHeaders(rc.Headers, target.DefaultHeaders) {
		req.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return failure(compare.FailureTimeout, err.Error())
		}
		return failure(compare.FailureConnection, err.Error())
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return failure(compare.FailureConnection, fmt.Sprintf("read body: %v", err))
	}

	headers := make(map[string]string, len(resp.Header))
	for name, values := range resp.Header {
		headers[strings.ToLower(name)] = strings.Join(values, ",")
	}

	return compare.Outcome{Response: &compare.RawResponse{
		Status:    resp.StatusCode,
		Headers:   headers,
		Body:      string(data),
		MimeType:  headers["content-type"],
		ElapsedMS: time.Since(start).Milliseconds(),
	}}
}

func failure(kind compare.FailureKind, msg string) compare.Outcome {
	return compare.Outcome{Failure: &compare.Failure{Kind: kind, Message: msg}}
}

// transient reports failures worth retrying.
func transient(f *compare.Failure) bool {
	return f != nil && (f.Kind == compare.FailureTimeout || f.Kind == compare.FailureConnection)
}

func isTimeout(err error) bool {
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}

// joinURL joins a base URL and a path without doubling or dropping the
// separating slash.
func joinURL(baseURL, path string) string {
	switch {
	case strings.HasSuffix(baseURL, "/") && strings.HasPrefix(path, "/"):
		return baseURL[:len(baseURL)-1] + path
	case !strings.HasSuffix(baseURL, "/") && !strings.HasPrefix(path, "/"):
		return baseURL + "/" + path
	default:
		return baseURL + path
	}
}

// encodeQuery serializes the ordered query, preserving key order and
// per-key value order.
func encodeQuery(q testcase.Query) string {
	var b strings.Builder
	for _, p := range q {
		for _, v := range p.Values {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(p.Key))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}
