// Package logs turns raw, arbitrarily-shaped traffic log records into
// flat request cases.
//
// Log shapes vary wildly between capture tools, so every logical field
// (method, url, path, headers, query, body, mime type) is located by an
// ordered list of candidate dotted paths; the first path that resolves
// to a non-null value wins. Records that cannot yield a request path are
// skipped with a counted warning, never a fatal error.
package logs
