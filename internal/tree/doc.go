// Package tree provides the generic JSON-like value the rest of apidiff
// operates on.
//
// Raw log records, request bodies, and response bodies all arrive with
// arbitrary, heterogeneous shapes. Rather than forcing a schema, every
// consumer works over the sealed Value union defined here; any shape
// mismatch is handled structurally ("absent"), never as a crash.
//
// This package contains value types and their serializations only. All
// other internal packages import tree; tree imports nothing internal.
package tree
