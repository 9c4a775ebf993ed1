// Package types defines the shared domain model for the incremental
// indexing pipeline: Merkle snapshot nodes, code chunks, branch-scoped
// index configuration, and the payloads exchanged with the remote
// indexing service.
//
// Types here are plain data with validation helpers. They carry no
// behavior that touches the filesystem, the store, or the network, so
// every other package can depend on them without import cycles.
package types
