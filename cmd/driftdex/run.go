package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/driftdex/driftdex/internal/branch"
	"github.com/driftdex/driftdex/internal/chunker"
	"github.com/driftdex/driftdex/internal/hasher"
	"github.com/driftdex/driftdex/internal/merkle"
	"github.com/driftdex/driftdex/internal/obfuscate"
	"github.com/driftdex/driftdex/internal/orchestrator"
	"github.com/driftdex/driftdex/internal/store"
	"github.com/driftdex/driftdex/internal/transmit"
	"github.com/driftdex/driftdex/pkg/types"
)

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if flagVerbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func resolveWorkspace() (string, error) {
	abs, err := filepath.Abs(flagWorkspace)
	if err != nil {
		return "", fmt.Errorf("resolve workspace path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("workspace %s is not a directory", abs)
	}
	return abs, nil
}

func resolveStateDir() (string, error) {
	if flagStateDir != "" {
		return flagStateDir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve state dir: %w", err)
	}
	return filepath.Join(home, ".driftdex", "state"), nil
}

func resolveSecretPath() (string, error) {
	if flagSecretPath != "" {
		return flagSecretPath, nil
	}
	return obfuscate.DefaultSecretPath()
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	workspace, err := resolveWorkspace()
	if err != nil {
		return err
	}
	stateDir, err := resolveStateDir()
	if err != nil {
		return err
	}
	secretPath, err := resolveSecretPath()
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

	obf, err := obfuscate.NewFromFile(secretPath, logger)
	if err != nil {
		return fmt.Errorf("init path obfuscation: %w", err)
	}

	fsys := merkle.OSFileSystem{}
	monitor := branch.NewMonitor(workspace, logger)

	orch, err := orchestrator.New(orchestrator.Config{
		WorkspacePath:   workspace,
		WorkspaceHash:   hasher.WorkspaceHash(workspace),
		Builder:         merkle.NewBuilder(fsys, flagInclude, flagExclude, logger),
		Chunker:         chunker.New(fsys, logger),
		Branch:          monitor,
		Obfuscator:      obf,
		Store:           st,
		IncludePatterns: flagInclude,
		ExcludePatterns: flagExclude,
		Interval:        flagInterval,
		Logger:          logger,
		Registerer:      prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}

	if flagEndpoint != "" {
		client := transmit.NewClient(flagEndpoint)
		orch.OnChunksReady(func(ctx context.Context, req *types.IndexRequest) error {
			resp, err := client.Send(ctx, req)
			if err != nil {
				return err
			}
			logger.Info("chunks delivered",
				"processed", resp.ProcessedChunks, "skipped", resp.SkippedChunks)
			return nil
		})
	} else {
		logger.Warn("no endpoint configured, chunks will not be transmitted")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("driftdex starting",
		"workspace", workspace, "branch", monitor.Current(), "interval", flagInterval)

	if flagOnce {
		stats, err := orch.TriggerIndexing(ctx)
		if err != nil {
			return err
		}
		logger.Info("pass finished",
			"branch", stats.Branch, "changed", stats.FilesChanged,
			"deleted", stats.FilesDeleted, "chunks", stats.ChunksEmitted,
			"failures", len(stats.Failures), "duration", stats.Duration)
		return nil
	}

	monitor.OnBranchChange(orch.HandleBranchChange)
	if err := monitor.Start(ctx); err != nil {
		return fmt.Errorf("start branch monitor: %w", err)
	}
	defer monitor.Stop()

	if flagMetricsAddr != "" {
		go serveMetrics(ctx, logger)
	}

	if err := orch.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	logger.Info("driftdex stopped")
	return nil
}

func serveMetrics(ctx context.Context, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: flagMetricsAddr, Handler: mux}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics endpoint listening", "addr", flagMetricsAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics endpoint failed", "error", err)
	}
}
