// Package store persists branch-scoped index state: one Merkle snapshot
// and one indexing config record per (workspace, branch) pair.
//
// Records live in an embedded BadgerDB. Keys are encoded from a
// structured composite key with a NUL separator between the record kind,
// workspace hash, and branch name, so distinct (workspace, branch) pairs
// can never collide the way naive string concatenation could. Values are
// JSON; the store treats them as opaque blobs.
//
// Tests run against Badger's in-memory mode via InMemoryConfig.
package store
