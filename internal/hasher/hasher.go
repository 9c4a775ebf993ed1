package hasher

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// HashBytes computes the content-addressed hash of raw bytes. It is the
// leaf hash of the Merkle tree: identical content always yields the same
// hash, independent of path, timestamps, or any other metadata.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashChildren computes a directory hash from its children's hashes.
// The input is copied and sorted before hashing, so the result does not
// depend on directory enumeration order. An empty directory hashes the
// empty combined string, which is still deterministic.
func HashChildren(childHashes []string) string {
	sorted := make([]string, len(childHashes))
	copy(sorted, childHashes)
	sort.Strings(sorted)

	h := sha256.New()
	for _, ch := range sorted {
		h.Write([]byte(ch))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// HashChunk computes the stable identity of a code chunk. The identity is
// a pure function of the chunk's content, its (pre-obfuscation) path, and
// its 1-indexed line span, so the remote service can deduplicate chunks
// across passes and across clients. Fields are length-prefixed to keep the
// encoding injective.
func HashChunk(content, path string, startLine, endLine int) string {
	h := sha256.New()
	for _, field := range []string{content, path} {
		fmt.Fprintf(h, "%d:", len(field))
		h.Write([]byte(field))
	}
	fmt.Fprintf(h, "%d:%d", startLine, endLine)
	return hex.EncodeToString(h.Sum(nil))
}

// WorkspaceHash derives a short stable identifier for a workspace from
// its cleaned absolute path. Sixteen hex characters keep store keys and
// record names readable while leaving collisions implausible for any
// realistic number of workspaces on one machine.
func WorkspaceHash(workspacePath string) string {
	clean := filepath.ToSlash(filepath.Clean(workspacePath))
	clean = strings.TrimSuffix(clean, "/")
	sum := sha256.Sum256([]byte(clean))
	return hex.EncodeToString(sum[:])[:16]
}
