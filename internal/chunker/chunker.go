package chunker

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/driftdex/driftdex/internal/hasher"
	"github.com/driftdex/driftdex/pkg/types"
)

const (
	// MaxTokensPerChunk is the token budget per chunk.
	MaxTokensPerChunk = 512

	// charsPerToken is the estimation heuristic: source code averages
	// roughly four characters per token.
	charsPerToken = 4

	// MaxFileSize is the largest file the chunker will process (10MB).
	MaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold above which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// FileReader is the read capability the chunker needs. merkle.OSFileSystem
// satisfies it.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
}

// Chunker turns changed files into token-bounded tagged chunks.
// Safe for concurrent use; each ChunkFile call is independent.
type Chunker struct {
	fs          FileReader
	maxTokens   int
	maxFileSize int64
	logger      *slog.Logger
}

// Option configures a Chunker.
type Option func(*Chunker)

// WithMaxTokens overrides the per-chunk token budget.
func WithMaxTokens(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// WithMaxFileSize overrides the maximum file size.
func WithMaxFileSize(n int64) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxFileSize = n
		}
	}
}

// New creates a Chunker reading through the given capability. A nil
// logger falls back to slog.Default().
func New(fsys FileReader, logger *slog.Logger, opts ...Option) *Chunker {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Chunker{
		fs:          fsys,
		maxTokens:   MaxTokensPerChunk,
		maxFileSize: MaxFileSize,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ChunkFile reads and chunks a single file. absPath locates the bytes on
// disk; relPath is the workspace-relative slash path that participates in
// chunk identity, so identical content at the same relative path hashes
// identically on every machine.
//
// ObfuscatedPath and GitBranch are left empty; the orchestrator fills
// them before transmission. An empty file produces no chunks and no error.
func (c *Chunker) ChunkFile(ctx context.Context, absPath, relPath string) ([]types.CodeChunk, error) {
	content, err := c.fs.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", relPath, err)
	}
	if int64(len(content)) > c.maxFileSize {
		return nil, fmt.Errorf("%s (%d bytes): %w", relPath, len(content), types.ErrFileTooLarge)
	}
	if len(content) == 0 {
		return nil, nil
	}
	if len(content) >= WarnFileSize {
		c.logger.Warn("chunking large file", "path", relPath, "size", len(content))
	}

	maxChars := c.maxTokens * charsPerToken
	langName := fallbackLanguageName
	var windows []window

	if lang := languageForPath(relPath); lang != nil {
		segs, err := parseSegments(ctx, content, lang)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", relPath, err)
		}
		langName = lang.name
		windows = packWindows(content, segs, maxChars)
	}
	if len(windows) == 0 {
		// No parser for this language, or nothing parseable at the top
		// level: deterministic sliding windows over the raw bytes.
		windows = fallbackWindows(content, maxChars)
	}

	chunks := make([]types.CodeChunk, 0, len(windows))
	for _, w := range windows {
		text := string(content[w.start:w.end])
		if strings.TrimSpace(text) == "" {
			continue
		}
		startLine := lineOfOffset(content, w.start)
		endLine := lineOfOffset(content, w.end-1)
		chunks = append(chunks, types.CodeChunk{
			ChunkHash:  hasher.HashChunk(text, relPath, startLine, endLine),
			Content:    text,
			StartLine:  startLine,
			EndLine:    endLine,
			Language:   langName,
			ChunkTypes: w.tags,
			TokenCount: estimateTokens(len(text)),
		})
	}
	return chunks, nil
}

// estimateTokens approximates the token count of a chunk from its length.
// Non-empty content always counts at least one token.
func estimateTokens(chars int) int {
	if chars == 0 {
		return 0
	}
	t := chars / charsPerToken
	if t == 0 {
		t = 1
	}
	return t
}

// lineOfOffset returns the 1-indexed line containing the byte at off.
// Callers pass end-1 for exclusive end offsets, which places a boundary
// that lands exactly on a newline on the preceding line.
func lineOfOffset(content []byte, off int) int {
	return 1 + bytes.Count(content[:off], []byte{'\n'})
}

// segment is one top-level syntactic unit found by the parser.
type segment struct {
	start, end int
	tag        types.ChunkType
}

// window is a byte span that becomes one chunk, carrying the union of the
// tags of the segments packed into it.
type window struct {
	start, end int
	tags       []types.ChunkType
}

func (w *window) addTag(tag types.ChunkType) {
	for _, t := range w.tags {
		if t == tag {
			return
		}
	}
	w.tags = append(w.tags, tag)
}

// packWindows greedily merges consecutive segments into windows of at
// most maxChars bytes. A single segment larger than the budget is split
// by the sliding-window splitter, with each piece keeping the segment's
// semantic tag. Merging spans interior gaps (whitespace, delimiters), so
// a window's content is a contiguous slice of the file.
func packWindows(content []byte, segs []segment, maxChars int) []window {
	var out []window
	var cur *window

	flush := func() {
		if cur != nil {
			out = append(out, *cur)
			cur = nil
		}
	}

	for _, seg := range segs {
		if seg.end-seg.start > maxChars {
			flush()
			for _, span := range slidingSpans(content, seg.start, seg.end, maxChars) {
				out = append(out, window{start: span[0], end: span[1], tags: []types.ChunkType{seg.tag}})
			}
			continue
		}
		if cur != nil && seg.end-cur.start <= maxChars {
			cur.end = seg.end
			cur.addTag(seg.tag)
			continue
		}
		flush()
		cur = &window{start: seg.start, end: seg.end, tags: []types.ChunkType{seg.tag}}
	}
	flush()
	return out
}
