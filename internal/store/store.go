package store

import (
	"context"

	"github.com/driftdex/driftdex/pkg/types"
)

// Store is the durable key-value contract for branch-scoped index state.
// Load methods return types.ErrNotFound when no record exists for the key.
type Store interface {
	SaveTree(ctx context.Context, key types.StoreKey, tree *types.MerkleNode) error
	LoadTree(ctx context.Context, key types.StoreKey) (*types.MerkleNode, error)
	DeleteTree(ctx context.Context, key types.StoreKey) error

	SaveConfig(ctx context.Context, config *types.IndexingConfig) error
	LoadConfig(ctx context.Context, key types.StoreKey) (*types.IndexingConfig, error)

	// ListBranches returns every branch with a config record for the
	// workspace, sorted.
	ListBranches(ctx context.Context, workspaceHash string) ([]string, error)

	// PruneBranches removes stored state for branches of the workspace
	// that are absent from activeBranches, returning the pruned names.
	PruneBranches(ctx context.Context, workspaceHash string, activeBranches []string) ([]string, error)

	Close() error
}
