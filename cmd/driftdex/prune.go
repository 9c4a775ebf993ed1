package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/driftdex/driftdex/internal/branch"
	"github.com/driftdex/driftdex/internal/hasher"
	"github.com/driftdex/driftdex/internal/store"
)

// runPrune removes stored snapshots and configs for branches the
// repository no longer has. Long-lived workspaces otherwise accumulate
// state for every branch ever indexed.
func runPrune(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}
	stateDir, err := resolveStateDir()
	if err != nil {
		return err
	}

	storeCfg := store.DefaultConfig(stateDir)
	storeCfg.Logger = logger
	st, err := store.Open(storeCfg)
	if err != nil {
		return fmt.Errorf("open state store: %w", err)
	}
	defer func() { _ = st.Close() }()

	monitor := branch.NewMonitor(workspace, logger)
	active, err := monitor.ListBranches()
	if err != nil {
		return fmt.Errorf("list repository branches: %w", err)
	}

	pruned, err := st.PruneBranches(cmd.Context(), hasher.WorkspaceHash(workspace), active)
	if err != nil {
		return fmt.Errorf("prune branches: %w", err)
	}

	if len(pruned) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no stale branch state found")
		return nil
	}
	for _, name := range pruned {
		fmt.Fprintln(cmd.OutOrStdout(), "pruned", name)
	}
	return nil
}
