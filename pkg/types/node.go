package types

import "errors"

// MerkleNode is a single node in a workspace snapshot tree.
//
// A leaf describes one file: its hash is a pure function of the file's
// byte content. A directory's hash is a pure function of the sorted
// hashes of its children, so any change below it propagates to the root.
// Snapshots are ephemeral: a tree is rebuilt in full on every indexing
// pass and never mutated in place.
type MerkleNode struct {
	Hash         string        `json:"hash"`
	Path         string        `json:"path"` // slash-separated, relative to the workspace root
	LastModified int64         `json:"lastModified,omitempty"`
	Size         int64         `json:"size,omitempty"`
	Dir          bool          `json:"dir,omitempty"`
	Children     []*MerkleNode `json:"children,omitempty"`
}

// IsLeaf reports whether the node describes a file rather than a directory.
func (n *MerkleNode) IsLeaf() bool {
	return !n.Dir
}

// Leaves returns a map of leaf path to content hash for the whole subtree.
// The map is what the differ operates on; directories contribute nothing.
func (n *MerkleNode) Leaves() map[string]string {
	out := make(map[string]string)
	n.collectLeaves(out)
	return out
}

func (n *MerkleNode) collectLeaves(out map[string]string) {
	if n == nil {
		return
	}
	if n.IsLeaf() {
		out[n.Path] = n.Hash
		return
	}
	for _, c := range n.Children {
		c.collectLeaves(out)
	}
}

// Validate checks structural invariants of the node and its subtree.
func (n *MerkleNode) Validate() error {
	if n.Hash == "" {
		return errors.New("merkle node hash cannot be empty")
	}
	if !n.Dir && len(n.Children) > 0 {
		return errors.New("leaf node cannot have children")
	}
	for _, c := range n.Children {
		if c == nil {
			return errors.New("directory child cannot be nil")
		}
		if err := c.Validate(); err != nil {
			return err
		}
	}
	return nil
}
