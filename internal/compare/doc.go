// Package compare normalizes HTTP responses into canonical forms and
// produces structural diffs between them.
//
// Canonicalization strips cosmetic differences (formatting, attribute
// order, insignificant whitespace) and prunes configured noise (volatile
// headers, ignored body paths) so that what remains is a behavioral
// comparison. Diffing is a pure, synchronous function of two canonical
// inputs; no state, no retries.
package compare
