package types

import (
	"errors"
	"time"
)

// IndexingConfig is the durable per-(workspace, branch) record describing
// the last successful indexing pass. It is created on the first pass for a
// branch and rewritten after every successful pass.
type IndexingConfig struct {
	WorkspaceHash   string    `json:"workspaceHash"`
	LastIndexTime   time.Time `json:"lastIndexTime"`
	MerkleRootHash  string    `json:"merkleRootHash"`
	GitBranch       string    `json:"gitBranch"`
	ExcludePatterns []string  `json:"excludePatterns,omitempty"`
	IncludePatterns []string  `json:"includePatterns,omitempty"`
}

// Validate checks that the config identifies a (workspace, branch) pair.
func (c *IndexingConfig) Validate() error {
	if c.WorkspaceHash == "" {
		return errors.New("workspace hash is required")
	}
	if c.GitBranch == "" {
		return errors.New("git branch is required")
	}
	return nil
}

// StoreKey scopes persisted index state to one (workspace, branch) pair.
// Branches never share state: a branch switch cannot observe another
// branch's change history. The store encodes the two fields separately,
// never by raw string concatenation, so "a_b"+"c" and "a"+"b_c" cannot
// collide.
type StoreKey struct {
	WorkspaceHash string
	Branch        string
}

// Validate checks that both key components are present.
func (k StoreKey) Validate() error {
	if k.WorkspaceHash == "" {
		return errors.New("store key requires a workspace hash")
	}
	if k.Branch == "" {
		return errors.New("store key requires a branch")
	}
	return nil
}
