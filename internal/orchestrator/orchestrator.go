package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/driftdex/driftdex/internal/merkle"
	"github.com/driftdex/driftdex/pkg/types"
)

const (
	// DefaultInterval is the periodic pass cadence.
	DefaultInterval = 5 * time.Minute

	// DefaultChunkConcurrency bounds how many changed files are chunked
	// at once within a pass.
	DefaultChunkConcurrency = 10
)

// State describes what the orchestrator is doing.
type State string

const (
	StateIdle     State = "idle"
	StateIndexing State = "indexing"
	StateError    State = "error"
	StateDisabled State = "disabled"
)

// TreeBuilder snapshots a workspace. *merkle.Builder satisfies it.
type TreeBuilder interface {
	BuildTree(ctx context.Context, rootPath string) (*types.MerkleNode, error)
}

// FileChunker turns one changed file into chunks. *chunker.Chunker
// satisfies it.
type FileChunker interface {
	ChunkFile(ctx context.Context, absPath, relPath string) ([]types.CodeChunk, error)
}

// BranchSource reports the branch the workspace currently has checked
// out. *branch.Monitor satisfies it.
type BranchSource interface {
	Current() string
}

// PathObfuscator maps absolute paths to opaque tokens.
// *obfuscate.Obfuscator satisfies it.
type PathObfuscator interface {
	Obfuscate(p string) string
}

// TreeStore is the persistence surface a pass needs: the branch-scoped
// snapshot and config records. store.Store satisfies it.
type TreeStore interface {
	SaveTree(ctx context.Context, key types.StoreKey, tree *types.MerkleNode) error
	LoadTree(ctx context.Context, key types.StoreKey) (*types.MerkleNode, error)
	SaveConfig(ctx context.Context, config *types.IndexingConfig) error
	LoadConfig(ctx context.Context, key types.StoreKey) (*types.IndexingConfig, error)
}

// TransmitFunc receives a finished batch. Returning an error marks the
// delivery failed; the pass still completes and persists its snapshot,
// so the chunks are gone until the files change again.
type TransmitFunc func(ctx context.Context, req *types.IndexRequest) error

// FileFailure records one file that could not be chunked during a pass.
type FileFailure struct {
	Path string
	Err  error
}

// PassStats summarizes one completed indexing pass.
type PassStats struct {
	Branch        string
	FilesChanged  int
	FilesDeleted  int
	ChunksEmitted int
	Failures      []FileFailure
	Duration      time.Duration
}

// Status is a point-in-time view of the orchestrator.
type Status struct {
	State         State
	IsIndexing    bool
	CurrentBranch string
	LastIndexTime time.Time
}

// Config carries the orchestrator's collaborators and tunables.
type Config struct {
	// WorkspacePath is the absolute root of the workspace being indexed.
	WorkspacePath string
	// WorkspaceHash is the stable identity of the workspace in the store.
	WorkspaceHash string

	Builder    TreeBuilder
	Chunker    FileChunker
	Branch     BranchSource
	Obfuscator PathObfuscator
	Store      TreeStore

	// IncludePatterns and ExcludePatterns are recorded on the persisted
	// config so a later inspection can tell what scope produced a snapshot.
	IncludePatterns []string
	ExcludePatterns []string

	// Interval is the periodic pass cadence for Run. Zero means
	// DefaultInterval.
	Interval time.Duration
	// ChunkConcurrency bounds the chunking fan-out. Zero means
	// DefaultChunkConcurrency.
	ChunkConcurrency int

	Logger *slog.Logger
	// Registerer receives the pass metrics. Nil means an isolated
	// throwaway registry.
	Registerer prometheus.Registerer
}

// Orchestrator owns the indexing lifecycle for one workspace.
type Orchestrator struct {
	cfg     Config
	logger  *slog.Logger
	metrics *passMetrics

	lock   indexLock
	rescan atomic.Bool

	mu            sync.Mutex
	state         State
	lastIndexTime time.Time
	callbacks     []TransmitFunc
}

// New validates the configuration and creates an Orchestrator in the
// idle state.
func New(cfg Config) (*Orchestrator, error) {
	switch {
	case cfg.WorkspacePath == "":
		return nil, errors.New("orchestrator: workspace path is required")
	case cfg.WorkspaceHash == "":
		return nil, errors.New("orchestrator: workspace hash is required")
	case cfg.Builder == nil:
		return nil, errors.New("orchestrator: tree builder is required")
	case cfg.Chunker == nil:
		return nil, errors.New("orchestrator: chunker is required")
	case cfg.Branch == nil:
		return nil, errors.New("orchestrator: branch source is required")
	case cfg.Obfuscator == nil:
		return nil, errors.New("orchestrator: obfuscator is required")
	case cfg.Store == nil:
		return nil, errors.New("orchestrator: store is required")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	if cfg.ChunkConcurrency <= 0 {
		cfg.ChunkConcurrency = DefaultChunkConcurrency
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger.With("workspace", cfg.WorkspaceHash),
		metrics: newPassMetrics(cfg.Registerer),
		state:   StateIdle,
	}, nil
}

// OnChunksReady registers a callback that receives each finished batch.
// Callbacks run in registration order on the pass goroutine.
func (o *Orchestrator) OnChunksReady(fn TransmitFunc) {
	if fn == nil {
		return
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	o.callbacks = append(o.callbacks, fn)
}

// Status reports the orchestrator's current state.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:         o.state,
		IsIndexing:    o.state == StateIndexing,
		CurrentBranch: o.cfg.Branch.Current(),
		LastIndexTime: o.lastIndexTime,
	}
}

// SetEnabled toggles indexing. Disabling does not interrupt a pass in
// flight; it prevents new ones from starting.
func (o *Orchestrator) SetEnabled(enabled bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if enabled {
		if o.state == StateDisabled {
			o.state = StateIdle
		}
		return
	}
	// A pass already in flight finishes; setState keeps the disabled
	// state over the pass's own exit transition.
	o.state = StateDisabled
}

// HandleBranchChange reacts to a branch switch. If a pass is in flight
// its diff may straddle two branches, so instead of racing it the change
// flags a rescan; otherwise a pass starts immediately. The signature
// matches branch.ChangeFunc.
func (o *Orchestrator) HandleBranchChange(newBranch, oldBranch string) {
	o.logger.Info("branch changed", "from", oldBranch, "to", newBranch)
	if o.lock.Held() {
		o.rescan.Store(true)
		return
	}
	if _, err := o.TriggerIndexing(context.Background()); err != nil {
		o.logger.Error("branch-change pass failed", "branch", newBranch, "error", err)
	}
}

// TriggerIndexing runs one indexing pass. If a pass is already running
// the trigger is dropped and (nil, nil) is returned. A disabled
// orchestrator returns types.ErrDisabled.
func (o *Orchestrator) TriggerIndexing(ctx context.Context) (*PassStats, error) {
	o.mu.Lock()
	if o.state == StateDisabled {
		o.mu.Unlock()
		return nil, types.ErrDisabled
	}
	o.mu.Unlock()

	if !o.lock.TryAcquire() {
		o.metrics.passes.WithLabelValues("dropped").Inc()
		o.logger.Debug("indexing already in progress, dropping trigger")
		return nil, nil
	}

	o.setState(StateIndexing)
	stats, err := o.runPass(ctx)
	if err != nil {
		o.setState(StateError)
		o.metrics.passes.WithLabelValues("error").Inc()
	} else {
		o.setState(StateIdle)
		o.metrics.passes.WithLabelValues("success").Inc()
	}
	o.lock.Release()

	// A branch switch that landed mid-pass gets exactly one follow-up
	// pass against the new branch's stored snapshot.
	if o.rescan.Swap(false) {
		o.logger.Info("branch changed during pass, rescanning")
		if _, rerr := o.TriggerIndexing(ctx); rerr != nil {
			o.logger.Error("rescan pass failed", "error", rerr)
		}
	}
	return stats, err
}

// Run triggers an initial pass and then one per interval until the
// context is cancelled. Overlap is impossible: a tick that fires while a
// pass is running is dropped by the single-flight lock.
func (o *Orchestrator) Run(ctx context.Context) error {
	if _, err := o.TriggerIndexing(ctx); err != nil && !errors.Is(err, types.ErrDisabled) {
		o.logger.Error("initial indexing pass failed", "error", err)
	}

	ticker := time.NewTicker(o.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := o.TriggerIndexing(ctx); err != nil && !errors.Is(err, types.ErrDisabled) {
				o.logger.Error("periodic indexing pass failed", "error", err)
			}
		}
	}
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	// Disabling mid-pass wins over the pass's own exit transition.
	if o.state == StateDisabled && s != StateIndexing {
		return
	}
	o.state = s
}

// runPass executes the snapshot/diff/chunk/transmit/persist sequence for
// the current branch. The new snapshot is persisted only when the
// pipeline succeeded, so a failed pass retries the same diff next time.
func (o *Orchestrator) runPass(ctx context.Context) (*PassStats, error) {
	start := time.Now()
	branch := o.cfg.Branch.Current()
	key := types.StoreKey{WorkspaceHash: o.cfg.WorkspaceHash, Branch: branch}
	logger := o.logger.With("branch", branch)

	newTree, err := o.cfg.Builder.BuildTree(ctx, o.cfg.WorkspacePath)
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	oldTree, err := o.cfg.Store.LoadTree(ctx, key)
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		return nil, fmt.Errorf("load stored snapshot: %w", err)
	}

	changed := merkle.Changed(oldTree, newTree)
	deleted := merkle.Deleted(oldTree, newTree)
	logger.Info("computed workspace diff",
		"changed", len(changed), "deleted", len(deleted), "firstPass", oldTree == nil)

	chunks, failures, err := o.chunkChanged(ctx, changed, branch)
	if err != nil {
		return nil, err
	}

	stats := &PassStats{
		Branch:        branch,
		FilesChanged:  len(changed),
		FilesDeleted:  len(deleted),
		ChunksEmitted: len(chunks),
		Failures:      failures,
	}
	o.metrics.filesChanged.Add(float64(len(changed)))
	o.metrics.filesDeleted.Add(float64(len(deleted)))
	o.metrics.chunksEmitted.Add(float64(len(chunks)))
	o.metrics.chunkFailures.Add(float64(len(failures)))

	if len(chunks) > 0 || len(deleted) > 0 {
		req := &types.IndexRequest{
			Chunks:       chunks,
			DeletedFiles: o.obfuscateAll(deleted),
			Branch:       branch,
		}
		o.mu.Lock()
		callbacks := make([]TransmitFunc, len(o.callbacks))
		copy(callbacks, o.callbacks)
		o.mu.Unlock()

		// Delivery failures do not fail the pass. The snapshot still
		// advances; there is no resend protocol.
		for _, fn := range callbacks {
			if err := fn(ctx, req); err != nil {
				o.metrics.transmitFails.Inc()
				logger.Error("chunk delivery failed", "chunks", len(chunks), "error", err)
			}
		}
	}

	if err := o.cfg.Store.SaveTree(ctx, key, newTree); err != nil {
		return nil, fmt.Errorf("persist snapshot: %w", err)
	}
	now := time.Now()
	cfgRecord := &types.IndexingConfig{
		WorkspaceHash:   o.cfg.WorkspaceHash,
		LastIndexTime:   now,
		MerkleRootHash:  newTree.Hash,
		GitBranch:       branch,
		ExcludePatterns: o.cfg.ExcludePatterns,
		IncludePatterns: o.cfg.IncludePatterns,
	}
	if err := o.cfg.Store.SaveConfig(ctx, cfgRecord); err != nil {
		return nil, fmt.Errorf("persist config: %w", err)
	}

	o.mu.Lock()
	o.lastIndexTime = now
	o.mu.Unlock()

	stats.Duration = time.Since(start)
	o.metrics.passDuration.Observe(stats.Duration.Seconds())
	logger.Info("indexing pass complete",
		"chunks", stats.ChunksEmitted, "failures", len(stats.Failures),
		"duration", stats.Duration)
	return stats, nil
}

// chunkChanged fans the changed files out to the chunker. A file that
// fails to chunk is recorded and skipped; only context cancellation
// aborts the pass. Results preserve the sorted order of changed.
func (o *Orchestrator) chunkChanged(ctx context.Context, changed []string, branch string) ([]types.CodeChunk, []FileFailure, error) {
	perFile := make([][]types.CodeChunk, len(changed))
	var (
		mu       sync.Mutex
		failures []FileFailure
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ChunkConcurrency)

	for i, rel := range changed {
		i, rel := i, rel
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			abs := filepath.Join(o.cfg.WorkspacePath, filepath.FromSlash(rel))
			fileChunks, err := o.cfg.Chunker.ChunkFile(gctx, abs, rel)
			if err != nil {
				o.logger.Warn("skipping unchunkable file", "path", rel, "error", err)
				mu.Lock()
				failures = append(failures, FileFailure{Path: rel, Err: err})
				mu.Unlock()
				return nil
			}
			token := o.obfuscatePath(rel)
			for j := range fileChunks {
				fileChunks[j].ObfuscatedPath = token
				fileChunks[j].GitBranch = branch
			}
			perFile[i] = fileChunks
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("chunk changed files: %w", err)
	}

	var chunks []types.CodeChunk
	for _, fc := range perFile {
		chunks = append(chunks, fc...)
	}
	return chunks, failures, nil
}

// obfuscatePath tokenizes the workspace-absolute slash path of one
// relative path, so the remote side never sees a real location.
func (o *Orchestrator) obfuscatePath(rel string) string {
	return o.cfg.Obfuscator.Obfuscate(path.Join(filepath.ToSlash(o.cfg.WorkspacePath), rel))
}

func (o *Orchestrator) obfuscateAll(rels []string) []string {
	if len(rels) == 0 {
		return nil
	}
	tokens := make([]string, len(rels))
	for i, rel := range rels {
		tokens[i] = o.obfuscatePath(rel)
	}
	return tokens
}
