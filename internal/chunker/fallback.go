package chunker

import "github.com/driftdex/driftdex/pkg/types"

// boundaryLookahead is how far past the byte budget the splitter scans
// for a newline or space before giving up and cutting mid-token.
const boundaryLookahead = 120

// fallbackWindows splits raw content into sliding windows tagged as
// generic text. Used for files without a registered grammar and for
// parsed files that yielded no top-level segments.
func fallbackWindows(content []byte, maxChars int) []window {
	spans := slidingSpans(content, 0, len(content), maxChars)
	out := make([]window, 0, len(spans))
	for _, span := range spans {
		out = append(out, window{start: span[0], end: span[1], tags: []types.ChunkType{types.ChunkText}})
	}
	return out
}

// slidingSpans cuts [start, end) into spans of roughly budget bytes.
// Each cut is snapped forward to just after the nearest newline or space
// within the lookahead, so the next span starts on a fresh line or word.
// The snap only ever moves forward, which keeps the split deterministic
// and guarantees progress.
func slidingSpans(content []byte, start, end, budget int) [][2]int {
	var spans [][2]int
	for pos := start; pos < end; {
		next := pos + budget
		if next >= end {
			spans = append(spans, [2]int{pos, end})
			break
		}
		next = snapBoundary(content, next, end)
		spans = append(spans, [2]int{pos, next})
		pos = next
	}
	return spans
}

// snapBoundary advances pos to just past the first newline or space
// within the lookahead window, or returns pos unchanged when none exists.
func snapBoundary(content []byte, pos, limit int) int {
	stop := pos + boundaryLookahead
	if stop > limit {
		stop = limit
	}
	for i := pos; i < stop; i++ {
		if content[i] == '\n' || content[i] == ' ' {
			return i + 1
		}
	}
	return pos
}
