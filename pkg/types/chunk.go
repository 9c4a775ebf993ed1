package types

import "errors"

// ChunkType is a semantic category attached to a code chunk.
type ChunkType string

const (
	ChunkFunction    ChunkType = "function"
	ChunkClass       ChunkType = "class"
	ChunkImport      ChunkType = "import"
	ChunkVariable    ChunkType = "variable"
	ChunkControlFlow ChunkType = "control-flow"
	ChunkComment     ChunkType = "comment"
	ChunkText        ChunkType = "text"
)

// CodeChunk is a bounded slice of a file's content plus the metadata the
// remote indexing service needs to embed and deduplicate it.
//
// ChunkHash is a pure function of (content, path, startLine, endLine), so
// identical inputs always produce the same identity regardless of when or
// in what order the chunk was produced. Chunks are transient: they are
// built, transmitted, and dropped, never retained locally.
type CodeChunk struct {
	ChunkHash      string      `json:"chunkHash"`
	Content        string      `json:"content"`
	ObfuscatedPath string      `json:"obfuscatedPath"`
	StartLine      int         `json:"startLine"` // 1-indexed, inclusive
	EndLine        int         `json:"endLine"`   // 1-indexed, inclusive
	Language       string      `json:"language"`
	ChunkTypes     []ChunkType `json:"chunkTypes"`
	GitBranch      string      `json:"gitBranch"`
	TokenCount     int         `json:"tokenCount"`
}

// Validate performs structural validation of the chunk.
func (c *CodeChunk) Validate() error {
	if c.Content == "" {
		return errors.New("chunk content cannot be empty")
	}
	if c.ChunkHash == "" {
		return errors.New("chunk hash must be computed")
	}
	if c.StartLine <= 0 || c.EndLine <= 0 {
		return errors.New("line numbers must be positive")
	}
	if c.StartLine > c.EndLine {
		return errors.New("start line must be before or equal to end line")
	}
	if len(c.ChunkTypes) == 0 {
		return errors.New("chunk must carry at least one semantic tag")
	}
	return nil
}

// HasType reports whether the chunk carries the given semantic tag.
func (c *CodeChunk) HasType(t ChunkType) bool {
	for _, ct := range c.ChunkTypes {
		if ct == t {
			return true
		}
	}
	return false
}
