package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/dgraph-io/badger/v4"

	"github.com/driftdex/driftdex/pkg/types"
)

// Config holds configuration for the badger-backed store.
type Config struct {
	// Path is the directory for the database files. Ignored when
	// InMemory is true.
	Path string

	// InMemory enables in-memory mode (no disk persistence). Used by
	// tests.
	InMemory bool

	// SyncWrites enables synchronous writes for durability.
	SyncWrites bool

	// Logger receives badger's internal logging. Nil disables it.
	Logger *slog.Logger
}

// DefaultConfig returns the production configuration for a state
// directory: durable synchronous writes.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration for tests: no disk I/O.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger adapts slog to badger's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore implements Store over an embedded BadgerDB.
type BadgerStore struct {
	db *badger.DB
}

// Open creates and opens the store. The path directory is created when
// missing. Callers own Close.
func Open(cfg Config) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, errors.New("store path is required")
		}
		if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
		opts = badger.DefaultOptions(cfg.Path).WithSyncWrites(cfg.SyncWrites)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger store: %w", err)
	}
	return &BadgerStore{db: db}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// SaveTree persists the snapshot for the composite key, replacing any
// previous snapshot for that (workspace, branch).
func (s *BadgerStore) SaveTree(ctx context.Context, key types.StoreKey, tree *types.MerkleNode) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if tree == nil {
		return errors.New("cannot save a nil tree")
	}
	return s.put(ctx, encodeKey(kindTree, key), tree)
}

// LoadTree returns the stored snapshot, or types.ErrNotFound when the
// branch has never completed a pass.
func (s *BadgerStore) LoadTree(ctx context.Context, key types.StoreKey) (*types.MerkleNode, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var tree types.MerkleNode
	if err := s.get(ctx, encodeKey(kindTree, key), &tree); err != nil {
		return nil, err
	}
	return &tree, nil
}

// DeleteTree removes the stored snapshot. Deleting a missing snapshot is
// not an error.
func (s *BadgerStore) DeleteTree(ctx context.Context, key types.StoreKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	return s.delete(ctx, encodeKey(kindTree, key))
}

// SaveConfig persists the config record under its own composite key.
func (s *BadgerStore) SaveConfig(ctx context.Context, config *types.IndexingConfig) error {
	if config == nil {
		return errors.New("cannot save a nil config")
	}
	if err := config.Validate(); err != nil {
		return err
	}
	key := types.StoreKey{WorkspaceHash: config.WorkspaceHash, Branch: config.GitBranch}
	return s.put(ctx, encodeKey(kindConfig, key), config)
}

// LoadConfig returns the stored config, or types.ErrNotFound.
func (s *BadgerStore) LoadConfig(ctx context.Context, key types.StoreKey) (*types.IndexingConfig, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	var config types.IndexingConfig
	if err := s.get(ctx, encodeKey(kindConfig, key), &config); err != nil {
		return nil, err
	}
	return &config, nil
}

// ListBranches returns every branch holding a config record for the
// workspace, sorted.
func (s *BadgerStore) ListBranches(ctx context.Context, workspaceHash string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	prefix := branchPrefix(kindConfig, workspaceHash)
	var branches []string

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			branches = append(branches, branchFromKey(it.Item().KeyCopy(nil), prefix))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	sort.Strings(branches)
	return branches, nil
}

// PruneBranches deletes snapshot and config records for every stored
// branch of the workspace that is not in activeBranches.
func (s *BadgerStore) PruneBranches(ctx context.Context, workspaceHash string, activeBranches []string) ([]string, error) {
	stored, err := s.ListBranches(ctx, workspaceHash)
	if err != nil {
		return nil, err
	}

	active := make(map[string]struct{}, len(activeBranches))
	for _, b := range activeBranches {
		active[b] = struct{}{}
	}

	var pruned []string
	for _, b := range stored {
		if _, ok := active[b]; ok {
			continue
		}
		key := types.StoreKey{WorkspaceHash: workspaceHash, Branch: b}
		if err := s.delete(ctx, encodeKey(kindTree, key)); err != nil {
			return pruned, err
		}
		if err := s.delete(ctx, encodeKey(kindConfig, key)); err != nil {
			return pruned, err
		}
		pruned = append(pruned, b)
	}
	return pruned, nil
}

func (s *BadgerStore) put(ctx context.Context, key []byte, value any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (s *BadgerStore) get(ctx context.Context, key []byte, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, out)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return types.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read record: %w", err)
	}
	return nil
}

func (s *BadgerStore) delete(ctx context.Context, key []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
