package types

// IndexRequest is the payload handed to the remote indexing service after
// a pass: freshly produced chunks plus deletion notices for files that
// vanished since the previous snapshot. Paths in DeletedFiles are
// obfuscated with the same transform as chunk paths.
type IndexRequest struct {
	Chunks       []CodeChunk `json:"chunks"`
	DeletedFiles []string    `json:"deletedFiles"`
	Branch       string      `json:"branch"`
}

// IndexResponse is the remote service's acknowledgement. Delivery is
// best-effort: the pipeline records the response but does not resend.
type IndexResponse struct {
	ProcessedChunks int `json:"processedChunks"`
	SkippedChunks   int `json:"skippedChunks"`
}
