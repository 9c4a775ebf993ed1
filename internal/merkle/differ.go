package merkle

import (
	"sort"

	"github.com/driftdex/driftdex/pkg/types"
)

// Changed returns the leaf paths that are new or whose content hash
// differs between the two snapshots, sorted for determinism. A nil old
// snapshot is the first pass for a branch: every leaf of the new snapshot
// is reported changed.
func Changed(oldRoot, newRoot *types.MerkleNode) []string {
	if newRoot == nil {
		return nil
	}

	newLeaves := newRoot.Leaves()
	var oldLeaves map[string]string
	if oldRoot != nil {
		oldLeaves = oldRoot.Leaves()
	}

	changed := make([]string, 0)
	for p, h := range newLeaves {
		if oldHash, ok := oldLeaves[p]; !ok || oldHash != h {
			changed = append(changed, p)
		}
	}
	sort.Strings(changed)
	return changed
}

// Deleted returns the leaf paths present in the old snapshot but absent
// from the new one, sorted. A deleted file never appears in Changed: the
// two results partition by construction since Changed only inspects paths
// that exist in the new snapshot.
func Deleted(oldRoot, newRoot *types.MerkleNode) []string {
	if oldRoot == nil {
		return nil
	}

	var newLeaves map[string]string
	if newRoot != nil {
		newLeaves = newRoot.Leaves()
	}

	deleted := make([]string, 0)
	for p := range oldRoot.Leaves() {
		if _, ok := newLeaves[p]; !ok {
			deleted = append(deleted, p)
		}
	}
	sort.Strings(deleted)
	return deleted
}
