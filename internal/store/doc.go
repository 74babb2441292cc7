// Package store persists run history to SQLite for the history command.
//
// The comparison core itself is persistence-free; the store only
// consumes its outputs. Uses WAL mode with a single writer connection.
package store
