package merkle

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/driftdex/driftdex/internal/hasher"
	"github.com/driftdex/driftdex/pkg/types"
)

// DefaultHashConcurrency bounds how many files are read and hashed at
// once within a single directory.
const DefaultHashConcurrency = 8

// Builder produces Merkle snapshots of a workspace.
//
// Every BuildTree call walks the workspace in full and returns a fresh
// tree; nothing is mutated incrementally. Safe for concurrent use, though
// the orchestrator's single-flight discipline means only one build runs
// at a time in practice.
type Builder struct {
	fs      FileSystem
	matcher *GlobMatcher
	logger  *slog.Logger

	hashConcurrency int
	buildCount      atomic.Int64
}

// NewBuilder creates a Builder over the given filesystem capability.
// Nil includes/excludes fall back to the package defaults; a nil logger
// falls back to slog.Default().
func NewBuilder(fsys FileSystem, includes, excludes []string, logger *slog.Logger) *Builder {
	if includes == nil {
		includes = DefaultIncludes
	}
	if excludes == nil {
		excludes = DefaultExcludes
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{
		fs:              fsys,
		matcher:         NewGlobMatcher(includes, excludes),
		logger:          logger,
		hashConcurrency: DefaultHashConcurrency,
	}
}

// BuildCount returns how many snapshot builds have started. The
// orchestrator tests use it to verify single-flight semantics.
func (b *Builder) BuildCount() int64 {
	return b.buildCount.Load()
}

// BuildTree snapshots the workspace rooted at rootPath. The returned root
// node always has path "." and is a directory. An unreadable root is a
// pipeline-level failure; unreadable entries below the root are logged
// and skipped so one bad file cannot abort a whole pass.
func (b *Builder) BuildTree(ctx context.Context, rootPath string) (*types.MerkleNode, error) {
	b.buildCount.Add(1)

	if _, err := b.fs.Stat(rootPath); err != nil {
		return nil, fmt.Errorf("workspace root unreadable: %w", err)
	}

	root, err := b.buildDir(ctx, rootPath, ".")
	if err != nil {
		return nil, err
	}
	return root, nil
}

// buildDir builds the subtree for one directory. relPath is the
// slash-separated path relative to the workspace root ("." for the root).
func (b *Builder) buildDir(ctx context.Context, absPath, relPath string) (*types.MerkleNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := b.fs.ReadDir(absPath)
	if err != nil {
		if relPath == "." {
			return nil, fmt.Errorf("workspace root unreadable: %w", err)
		}
		b.logger.Warn("skipping unreadable directory", "path", relPath, "error", err)
		return &types.MerkleNode{
			Hash: hasher.HashChildren(nil),
			Path: relPath,
			Dir:  true,
		}, nil
	}

	// Deterministic traversal order. Hash composition is order-independent
	// anyway, but stable child ordering keeps serialized snapshots
	// byte-comparable across passes.
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var (
		children []*types.MerkleNode
		mu       sync.Mutex
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.hashConcurrency)

	for _, entry := range entries {
		childRel := path.Join(relPath, entry.Name())
		childAbs := filepath.Join(absPath, entry.Name())

		if entry.IsDir() {
			if b.matcher.SkipDir(childRel) {
				continue
			}
			// Directories recurse on the walking goroutine; only leaf
			// hashing fans out.
			child, err := b.buildDir(gctx, childAbs, childRel)
			if err != nil {
				return nil, err
			}
			mu.Lock()
			children = append(children, child)
			mu.Unlock()
			continue
		}

		if !entry.Type().IsRegular() || !b.matcher.Match(childRel) {
			continue
		}

		g.Go(func() error {
			leaf, err := b.buildLeaf(gctx, childAbs, childRel)
			if err != nil || leaf == nil {
				return err
			}
			mu.Lock()
			children = append(children, leaf)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	hashes := make([]string, len(children))
	for i, c := range children {
		hashes[i] = c.Hash
	}
	sort.Slice(children, func(i, j int) bool { return children[i].Path < children[j].Path })

	return &types.MerkleNode{
		Hash:     hasher.HashChildren(hashes),
		Path:     relPath,
		Dir:      true,
		Children: children,
	}, nil
}

// buildLeaf hashes a single file. A file that disappears or becomes
// unreadable mid-walk is skipped with a warning rather than failing the
// build; it will simply be absent from the snapshot, and show up as a
// deletion or a change on a later pass.
func (b *Builder) buildLeaf(ctx context.Context, absPath, relPath string) (*types.MerkleNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := b.fs.ReadFile(absPath)
	if err != nil {
		b.logger.Warn("skipping unreadable file", "path", relPath, "error", err)
		return nil, nil
	}

	var modified, size int64
	if info, err := b.fs.Stat(absPath); err == nil {
		modified = info.ModTime().UnixMilli()
		size = info.Size()
	}

	return &types.MerkleNode{
		Hash:         hasher.HashBytes(content),
		Path:         relPath,
		LastModified: modified,
		Size:         size,
	}, nil
}
