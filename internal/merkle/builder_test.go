package merkle

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/driftdex/driftdex/pkg/types"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	full := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func newTestBuilder(includes, excludes []string) *Builder {
	return NewBuilder(OSFileSystem{}, includes, excludes, nil)
}

func TestBuildTree_Basic(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "package main")
	writeFile(t, ws, "sub/util.go", "package sub")

	b := newTestBuilder(nil, nil)
	root, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)
	require.NoError(t, root.Validate())

	assert.True(t, root.Dir)
	assert.Equal(t, ".", root.Path)

	leaves := root.Leaves()
	assert.Len(t, leaves, 2)
	assert.Contains(t, leaves, "main.go")
	assert.Contains(t, leaves, "sub/util.go")
	assert.EqualValues(t, 1, b.BuildCount())
}

func TestBuildTree_DeterministicRootHash(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "a.go", "alpha")
	writeFile(t, ws, "b/c.go", "gamma")

	b := newTestBuilder(nil, nil)
	r1, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)
	r2, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	assert.Equal(t, r1.Hash, r2.Hash)
}

func TestBuildTree_LeafHashIsContentOnly(t *testing.T) {
	ws1 := t.TempDir()
	ws2 := t.TempDir()
	writeFile(t, ws1, "x.go", "same content")
	writeFile(t, ws2, "x.go", "same content")

	b := newTestBuilder(nil, nil)
	r1, err := b.BuildTree(context.Background(), ws1)
	require.NoError(t, err)
	r2, err := b.BuildTree(context.Background(), ws2)
	require.NoError(t, err)

	// Different workspaces, different mtimes, identical content and
	// layout: the trees must be hash-identical all the way to the root.
	assert.Equal(t, r1.Leaves(), r2.Leaves())
	assert.Equal(t, r1.Hash, r2.Hash)
}

func TestBuildTree_DeepChangePropagatesToRoot(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "a/b/c/d/deep.go", "version one")
	writeFile(t, ws, "top.go", "unchanged")

	b := newTestBuilder(nil, nil)
	before, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	writeFile(t, ws, "a/b/c/d/deep.go", "version two")
	after, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	assert.NotEqual(t, before.Hash, after.Hash)
	assert.Equal(t, []string{"a/b/c/d/deep.go"}, Changed(before, after))
}

func TestBuildTree_HonorsExcludes(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "src/main.go", "package main")
	writeFile(t, ws, "vendor/dep/dep.go", "package dep")
	writeFile(t, ws, ".git/HEAD", "ref: refs/heads/main")
	writeFile(t, ws, "notes.log", "scratch")

	b := newTestBuilder(nil, append([]string{"*.log"}, DefaultExcludes...))
	root, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	leaves := root.Leaves()
	assert.Contains(t, leaves, "src/main.go")
	assert.NotContains(t, leaves, "vendor/dep/dep.go")
	assert.NotContains(t, leaves, ".git/HEAD")
	assert.NotContains(t, leaves, "notes.log")
}

func TestBuildTree_HonorsIncludes(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "main.go", "package main")
	writeFile(t, ws, "README.md", "# readme")

	b := newTestBuilder([]string{"**/*.go"}, nil)
	root, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	leaves := root.Leaves()
	assert.Contains(t, leaves, "main.go")
	assert.NotContains(t, leaves, "README.md")
}

func TestBuildTree_MissingRootFails(t *testing.T) {
	b := newTestBuilder(nil, nil)
	_, err := b.BuildTree(context.Background(), filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestBuildTree_CanceledContext(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "a.go", "x")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newTestBuilder(nil, nil)
	_, err := b.BuildTree(ctx, ws)
	assert.ErrorIs(t, err, context.Canceled)
}

// failingFS wraps the OS filesystem and fails reads for one file.
type failingFS struct {
	OSFileSystem
	failName string
}

func (f failingFS) ReadFile(path string) ([]byte, error) {
	if filepath.Base(path) == f.failName {
		return nil, fs.ErrPermission
	}
	return f.OSFileSystem.ReadFile(path)
}

func TestBuildTree_UnreadableFileSkipped(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "good.go", "fine")
	writeFile(t, ws, "bad.go", "unreadable")

	b := NewBuilder(failingFS{failName: "bad.go"}, nil, nil, nil)
	root, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	leaves := root.Leaves()
	assert.Contains(t, leaves, "good.go")
	assert.NotContains(t, leaves, "bad.go")
}

func TestBuildTree_RecordsFileMetadata(t *testing.T) {
	ws := t.TempDir()
	writeFile(t, ws, "meta.go", "0123456789")

	b := newTestBuilder(nil, nil)
	root, err := b.BuildTree(context.Background(), ws)
	require.NoError(t, err)

	var node *types.MerkleNode
	for _, c := range root.Children {
		if c.Path == "meta.go" {
			node = c
		}
	}
	require.NotNil(t, node)
	assert.EqualValues(t, 10, node.Size)
	assert.Greater(t, node.LastModified, int64(0))
	assert.False(t, node.Dir)
}
