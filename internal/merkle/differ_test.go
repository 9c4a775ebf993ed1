package merkle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/driftdex/driftdex/pkg/types"
)

func leaf(path, hash string) *types.MerkleNode {
	return &types.MerkleNode{Hash: hash, Path: path}
}

func dir(path string, children ...*types.MerkleNode) *types.MerkleNode {
	return &types.MerkleNode{Hash: "dir-" + path, Path: path, Dir: true, Children: children}
}

func TestChanged_NilOldReportsEverything(t *testing.T) {
	newRoot := dir(".",
		leaf("a.go", "h1"),
		dir("sub", leaf("sub/b.go", "h2")),
	)

	changed := Changed(nil, newRoot)
	assert.Equal(t, []string{"a.go", "sub/b.go"}, changed)
}

func TestChanged_IdenticalSnapshotsReportNothing(t *testing.T) {
	mk := func() *types.MerkleNode {
		return dir(".", leaf("a.go", "h1"), leaf("b.go", "h2"))
	}
	assert.Empty(t, Changed(mk(), mk()))
	assert.Empty(t, Deleted(mk(), mk()))
}

func TestChanged_SingleModifiedFile(t *testing.T) {
	oldRoot := dir(".", leaf("a.go", "h1"), leaf("b.go", "h2"), leaf("c.go", "h3"))
	newRoot := dir(".", leaf("a.go", "h1"), leaf("b.go", "CHANGED"), leaf("c.go", "h3"))

	assert.Equal(t, []string{"b.go"}, Changed(oldRoot, newRoot))
	assert.Empty(t, Deleted(oldRoot, newRoot))
}

func TestChanged_AddedFile(t *testing.T) {
	oldRoot := dir(".", leaf("a.go", "h1"))
	newRoot := dir(".", leaf("a.go", "h1"), leaf("new.go", "h9"))

	assert.Equal(t, []string{"new.go"}, Changed(oldRoot, newRoot))
	assert.Empty(t, Deleted(oldRoot, newRoot))
}

func TestDeleted_RemovedFileNotInChangedSet(t *testing.T) {
	oldRoot := dir(".", leaf("a.go", "h1"), leaf("gone.go", "h2"))
	newRoot := dir(".", leaf("a.go", "h1"))

	assert.Empty(t, Changed(oldRoot, newRoot))
	assert.Equal(t, []string{"gone.go"}, Deleted(oldRoot, newRoot))
}

func TestDeleted_NilOld(t *testing.T) {
	assert.Empty(t, Deleted(nil, dir(".", leaf("a.go", "h1"))))
}

func TestChangedAndDeleted_DisjointByConstruction(t *testing.T) {
	oldRoot := dir(".", leaf("keep.go", "h1"), leaf("edit.go", "h2"), leaf("gone.go", "h3"))
	newRoot := dir(".", leaf("keep.go", "h1"), leaf("edit.go", "EDITED"), leaf("new.go", "h4"))

	changed := Changed(oldRoot, newRoot)
	deleted := Deleted(oldRoot, newRoot)

	assert.ElementsMatch(t, []string{"edit.go", "new.go"}, changed)
	assert.Equal(t, []string{"gone.go"}, deleted)
	for _, d := range deleted {
		assert.NotContains(t, changed, d)
	}
}
