package store

import (
	"bytes"

	"github.com/driftdex/driftdex/pkg/types"
)

// Record kinds. Each (workspace, branch) pair owns at most one record of
// each kind.
const (
	kindTree   = "tree"
	kindConfig = "conf"
)

// keySep separates key components. The workspace hash is hex and branch
// names cannot contain NUL, so the encoding is injective: no two distinct
// composite keys map to the same byte key.
const keySep = byte(0)

// encodeKey builds the byte key for a record kind and composite key.
func encodeKey(kind string, key types.StoreKey) []byte {
	var b bytes.Buffer
	b.WriteString(kind)
	b.WriteByte(keySep)
	b.WriteString(key.WorkspaceHash)
	b.WriteByte(keySep)
	b.WriteString(key.Branch)
	return b.Bytes()
}

// branchPrefix is the key prefix shared by all records of one kind for
// one workspace; the remainder of the key is the branch name.
func branchPrefix(kind, workspaceHash string) []byte {
	var b bytes.Buffer
	b.WriteString(kind)
	b.WriteByte(keySep)
	b.WriteString(workspaceHash)
	b.WriteByte(keySep)
	return b.Bytes()
}

// branchFromKey recovers the branch name from a full key given its prefix.
func branchFromKey(key, prefix []byte) string {
	return string(key[len(prefix):])
}
