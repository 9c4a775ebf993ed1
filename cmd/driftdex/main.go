package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

var (
	version = "dev"

	flagWorkspace   string
	flagStateDir    string
	flagSecretPath  string
	flagEndpoint    string
	flagMetricsAddr string
	flagInterval    time.Duration
	flagInclude     []string
	flagExclude     []string
	flagOnce        bool
	flagVerbose     bool

	rootCmd = &cobra.Command{
		Use:   "driftdex",
		Short: "Incremental workspace indexer",
		Long: `driftdex watches a workspace, detects changed files with Merkle
snapshots scoped to the checked-out branch, chunks what changed, and
ships the chunks to a remote indexing service with obfuscated paths.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runDaemon,
	}

	pruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Drop stored index state for branches that no longer exist",
		RunE:  runPrune,
	}
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&flagWorkspace, "workspace", "w", envOr("DRIFTDEX_WORKSPACE", "."),
		"workspace root to index")
	flags.StringVar(&flagStateDir, "state-dir", envOr("DRIFTDEX_STATE_DIR", ""),
		"directory for persistent index state (default ~/.driftdex/state)")
	flags.StringVar(&flagSecretPath, "secret", envOr("DRIFTDEX_SECRET", ""),
		"path obfuscation secret file (default ~/.driftdex/secret.key)")
	flags.BoolVarP(&flagVerbose, "verbose", "v", envBool("DRIFTDEX_VERBOSE"),
		"enable debug logging")

	runFlags := rootCmd.Flags()
	runFlags.StringVar(&flagEndpoint, "endpoint", envOr("DRIFTDEX_ENDPOINT", ""),
		"indexing service URL; empty disables transmission")
	runFlags.StringVar(&flagMetricsAddr, "metrics-addr", envOr("DRIFTDEX_METRICS_ADDR", ""),
		"address for the Prometheus /metrics endpoint; empty disables it")
	runFlags.DurationVar(&flagInterval, "interval", envDuration("DRIFTDEX_INTERVAL", 5*time.Minute),
		"periodic indexing cadence")
	runFlags.StringSliceVar(&flagInclude, "include", nil,
		"glob patterns of files to index (default: all files)")
	runFlags.StringSliceVar(&flagExclude, "exclude", nil,
		"glob patterns of files to skip (default: VCS and dependency dirs)")
	runFlags.BoolVar(&flagOnce, "once", false,
		"run a single indexing pass and exit")

	rootCmd.AddCommand(pruneCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "driftdex:", err)
		os.Exit(1)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
