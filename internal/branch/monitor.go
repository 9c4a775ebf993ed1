package branch

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	// DefaultBranch is reported when the workspace has no VCS or branch
	// detection fails. Index state still gets scoped under this name.
	DefaultBranch = "default"

	// DefaultPollInterval is the fallback polling cadence covering
	// fsnotify delivery gaps (editor-created temp files, network mounts).
	DefaultPollInterval = 30 * time.Second
)

// ChangeFunc receives branch change notifications.
type ChangeFunc func(newBranch, oldBranch string)

// Monitor tracks the active VCS branch of a workspace.
//
// Detection combines an fsnotify watch on the repository's HEAD,
// refs/heads, and packed-refs (low latency) with a periodic poll
// (delivery-gap fallback). A change is only reported when the detected
// branch differs from the last known one; the first detection at Start
// establishes the baseline without firing.
type Monitor struct {
	workspace string
	gitDir    string // resolved .git directory, empty when no VCS
	interval  time.Duration
	logger    *slog.Logger

	mu        sync.Mutex
	current   string
	callbacks []ChangeFunc
	started   bool

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor)

// WithPollInterval overrides the fallback polling interval.
func WithPollInterval(d time.Duration) MonitorOption {
	return func(m *Monitor) {
		if d > 0 {
			m.interval = d
		}
	}
}

// NewMonitor creates a Monitor for the workspace. A nil logger falls back
// to slog.Default(). The monitor is inert until Start.
func NewMonitor(workspace string, logger *slog.Logger, opts ...MonitorOption) *Monitor {
	if logger == nil {
		logger = slog.Default()
	}
	m := &Monitor{
		workspace: workspace,
		gitDir:    resolveGitDir(workspace),
		interval:  DefaultPollInterval,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.current = m.detect()
	return m
}

// Current returns the last known branch name. Before Start it reflects
// the branch detected at construction.
func (m *Monitor) Current() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// OnBranchChange registers a callback invoked with (newBranch, oldBranch)
// on every detected switch. Callbacks run on the monitor's goroutine and
// should return quickly.
func (m *Monitor) OnBranchChange(fn ChangeFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// Start begins watching and polling. It re-establishes the baseline
// branch, then runs until the context is cancelled or Stop is called.
// Calling Start twice is an error.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return fmt.Errorf("branch monitor already started")
	}
	m.started = true
	m.current = m.detect()
	m.done = make(chan struct{})
	m.mu.Unlock()

	if m.gitDir != "" {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			// Watch setup failure is non-fatal: polling still covers
			// detection, just with higher latency.
			m.logger.Warn("branch watch unavailable, polling only", "error", err)
		} else {
			m.watcher = watcher
			m.addWatchTargets()
		}
	}

	go m.run(ctx)
	return nil
}

// Stop terminates the monitor. Safe to call once after Start.
func (m *Monitor) Stop() {
	m.mu.Lock()
	done := m.done
	m.mu.Unlock()
	if done != nil {
		close(done)
	}
}

// addWatchTargets registers HEAD, refs/heads, and packed-refs with the
// watcher. Individual failures are logged and skipped; the poll loop
// remains the safety net.
func (m *Monitor) addWatchTargets() {
	head := filepath.Join(m.gitDir, "HEAD")
	if err := m.watcher.Add(head); err != nil {
		m.logger.Warn("failed to watch HEAD", "path", head, "error", err)
	}
	for _, rel := range []string{filepath.Join("refs", "heads"), "packed-refs"} {
		p := filepath.Join(m.gitDir, rel)
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := m.watcher.Add(p); err != nil {
			m.logger.Debug("failed to watch ref location", "path", p, "error", err)
		}
	}
}

func (m *Monitor) run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	if m.watcher != nil {
		defer func() { _ = m.watcher.Close() }()
	}

	var events chan fsnotify.Event
	var errs chan error
	if m.watcher != nil {
		events = m.watcher.Events
		errs = m.watcher.Errors
	}

	for {
		select {
		case event, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				m.recheck()
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			m.logger.Warn("branch watcher error", "error", err)
		case <-ticker.C:
			m.recheck()
		case <-ctx.Done():
			return
		case <-m.done:
			return
		}
	}
}

// recheck re-detects the branch and fires callbacks when it changed.
func (m *Monitor) recheck() {
	detected := m.detect()

	m.mu.Lock()
	old := m.current
	if detected == old {
		m.mu.Unlock()
		return
	}
	m.current = detected
	callbacks := make([]ChangeFunc, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.Unlock()

	m.logger.Info("branch changed", "old", old, "new", detected)
	for _, fn := range callbacks {
		fn(detected, old)
	}
}

// detect reads the current branch from HEAD. Any failure (no VCS,
// unreadable HEAD, unknown format) degrades to DefaultBranch rather than
// surfacing an error; branch detection failures are never fatal.
func (m *Monitor) detect() string {
	if m.gitDir == "" {
		return DefaultBranch
	}
	content, err := os.ReadFile(filepath.Join(m.gitDir, "HEAD"))
	if err != nil {
		m.logger.Debug("cannot read HEAD, using default branch", "error", err)
		return DefaultBranch
	}
	return parseHead(string(content))
}

var shaPattern = regexp.MustCompile(`^[0-9a-f]{40,64}$`)

// parseHead extracts a branch name from HEAD content. A symbolic ref
// yields the branch name (slashes preserved); a bare commit hash means a
// detached HEAD, which gets its own scoped name so detached states never
// collide with real branches.
func parseHead(content string) string {
	head := strings.TrimSpace(content)
	if ref, ok := strings.CutPrefix(head, "ref: "); ok {
		if name, ok := strings.CutPrefix(ref, "refs/heads/"); ok && name != "" {
			return name
		}
		return DefaultBranch
	}
	if shaPattern.MatchString(head) {
		return "detached-" + head[:12]
	}
	return DefaultBranch
}

// ListBranches returns the local branch names known to the repository:
// loose refs under refs/heads plus entries from packed-refs. Without a
// VCS it returns just the default branch. The result is sorted and
// deduplicated; PruneBranches uses it as the live set.
func (m *Monitor) ListBranches() ([]string, error) {
	if m.gitDir == "" {
		return []string{DefaultBranch}, nil
	}

	seen := make(map[string]struct{})

	headsDir := filepath.Join(m.gitDir, "refs", "heads")
	_ = filepath.WalkDir(headsDir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			// A missing refs directory is normal for fresh repos.
			return nil
		}
		if rel, err := filepath.Rel(headsDir, path); err == nil {
			seen[filepath.ToSlash(rel)] = struct{}{}
		}
		return nil
	})

	if content, err := os.ReadFile(filepath.Join(m.gitDir, "packed-refs")); err == nil {
		for _, line := range strings.Split(string(content), "\n") {
			fields := strings.Fields(line)
			if len(fields) != 2 || !shaPattern.MatchString(fields[0]) {
				continue
			}
			if name, ok := strings.CutPrefix(fields[1], "refs/heads/"); ok {
				seen[name] = struct{}{}
			}
		}
	}

	branches := make([]string, 0, len(seen))
	for b := range seen {
		branches = append(branches, b)
	}
	sort.Strings(branches)
	return branches, nil
}

// resolveGitDir locates the git directory for a workspace, following the
// worktree indirection where .git is a file containing "gitdir: <path>".
// Returns empty when the workspace is not under git.
func resolveGitDir(workspace string) string {
	gitPath := filepath.Join(workspace, ".git")
	info, err := os.Stat(gitPath)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		return gitPath
	}

	content, err := os.ReadFile(gitPath)
	if err != nil {
		return ""
	}
	line := strings.TrimSpace(string(content))
	dir, ok := strings.CutPrefix(line, "gitdir: ")
	if !ok {
		return ""
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(workspace, dir)
	}
	return filepath.Clean(dir)
}
