// Package testcase turns the flat stream of extracted request cases into
// the deduplicated, ordered hierarchy of path groups and subcases that
// drives replay and reporting.
//
// Deduplication is content-addressed: each case is reduced to a
// fingerprint (a domain-separated hash over a canonical key object) and
// the first case seen per fingerprint becomes the representative. Later
// duplicates are dropped entirely and never update the stored
// representative, so replay order mirrors the original traffic.
package testcase
