package merkle

import (
	"path/filepath"
	"strings"
)

// Default patterns applied when the caller supplies none.
var (
	// DefaultExcludes covers VCS metadata, dependency trees, and build
	// output that should never reach the index.
	DefaultExcludes = []string{
		".git/**",
		".hg/**",
		".svn/**",
		"node_modules/**",
		"vendor/**",
		"dist/**",
		"target/**",
		"**/.DS_Store",
	}

	// DefaultIncludes is empty: everything not excluded is indexed.
	DefaultIncludes []string
)

// GlobMatcher decides which workspace paths participate in a snapshot.
//
// Patterns are slash-separated globs. Within one path segment, * ? and
// [...] behave as in filepath.Match; a ** segment matches any number of
// segments, including zero. A pattern without a separator also matches
// against the bare file name, so "*.log" excludes log files anywhere.
//
// Safe for concurrent use after creation.
type GlobMatcher struct {
	includes []string
	excludes []string
}

// NewGlobMatcher creates a matcher. Empty includes means "include
// everything"; empty excludes means "exclude nothing".
func NewGlobMatcher(includes, excludes []string) *GlobMatcher {
	return &GlobMatcher{includes: includes, excludes: excludes}
}

// Match reports whether a file at the given workspace-relative path should
// be included. Excludes win over includes.
func (m *GlobMatcher) Match(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range m.excludes {
		if matchGlob(pattern, path) {
			return false
		}
	}
	if len(m.includes) == 0 {
		return true
	}
	for _, pattern := range m.includes {
		if matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// SkipDir reports whether an entire directory subtree can be pruned
// without visiting it. A directory is pruned when an exclude pattern
// matches the directory itself or blankets everything beneath it
// ("vendor/**"). Include patterns never prune a directory: a deep include
// like "src/**/*.go" must still be reachable through intermediate
// directories that match no include pattern themselves.
func (m *GlobMatcher) SkipDir(path string) bool {
	path = filepath.ToSlash(path)
	for _, pattern := range m.excludes {
		if pattern == path || pattern == path+"/**" || matchGlob(pattern, path) {
			return true
		}
	}
	return false
}

// matchGlob matches a slash-separated path against a glob pattern,
// segment by segment, with ** spanning segments.
func matchGlob(pattern, path string) bool {
	if matchSegments(strings.Split(pattern, "/"), strings.Split(path, "/")) {
		return true
	}
	// Bare patterns like "*.log" also apply to the file name alone.
	if !strings.Contains(pattern, "/") {
		ok, _ := filepath.Match(pattern, path[strings.LastIndex(path, "/")+1:])
		return ok
	}
	return false
}

func matchSegments(pattern, path []string) bool {
	for len(pattern) > 0 {
		if pattern[0] == "**" {
			// ** absorbs zero or more leading path segments.
			for i := 0; i <= len(path); i++ {
				if matchSegments(pattern[1:], path[i:]) {
					return true
				}
			}
			return false
		}
		if len(path) == 0 {
			return false
		}
		ok, err := filepath.Match(pattern[0], path[0])
		if err != nil || !ok {
			return false
		}
		pattern = pattern[1:]
		path = path[1:]
	}
	return len(path) == 0
}
