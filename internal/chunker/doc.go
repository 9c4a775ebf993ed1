// Package chunker splits changed files into token-bounded, semantically
// tagged chunks for the remote indexing service.
//
// # Strategy
//
// Language is detected from the file extension. When a tree-sitter
// grammar is registered for the language (Go, Python, JavaScript,
// TypeScript), the file is parsed and split along top-level semantic
// boundaries, then adjacent segments are packed into windows of at most
// MaxTokensPerChunk tokens. Each chunk carries the union of the semantic
// tags of the segments inside it (function, class, import, variable,
// control-flow, comment).
//
// Files in any other language fall back to a deterministic sliding
// window: advance a fixed byte budget, then snap the boundary forward to
// the nearest newline or space within a small lookahead so tokens are not
// split mid-word. Fallback chunks are tagged "text".
//
// # Determinism
//
// Chunk identity is hash(content, path, startLine, endLine). Nothing in
// the pipeline depends on wall-clock time, map iteration order, or
// registration order: the language table is static, segments are visited
// positionally, and tags are deduplicated in first-seen order. Identical
// file content always yields identical chunks with identical hashes.
//
// # Limits
//
// Files above MaxFileSize (10MB) are rejected with types.ErrFileTooLarge;
// the orchestrator records this as a per-file failure and continues the
// pass. Token counts use the chars/4 heuristic, matching what embedding
// services approximate for source code.
package chunker
