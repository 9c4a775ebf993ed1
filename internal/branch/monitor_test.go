package branch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initFakeRepo(t *testing.T, branch string) string {
	t.Helper()
	ws := t.TempDir()
	gitDir := filepath.Join(ws, ".git")
	require.NoError(t, os.MkdirAll(filepath.Join(gitDir, "refs", "heads"), 0o755))
	setHead(t, ws, branch)
	return ws
}

func setHead(t *testing.T, ws, branch string) {
	t.Helper()
	head := "ref: refs/heads/" + branch + "\n"
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".git", "HEAD"), []byte(head), 0o644))
}

func TestMonitor_CurrentBranch(t *testing.T) {
	ws := initFakeRepo(t, "main")
	m := NewMonitor(ws, nil)
	assert.Equal(t, "main", m.Current())
}

func TestMonitor_BranchWithSlashes(t *testing.T) {
	ws := initFakeRepo(t, "feature/deep/rename")
	m := NewMonitor(ws, nil)
	assert.Equal(t, "feature/deep/rename", m.Current())
}

func TestMonitor_NoVCSFallsBackToDefault(t *testing.T) {
	m := NewMonitor(t.TempDir(), nil)
	assert.Equal(t, DefaultBranch, m.Current())
}

func TestMonitor_DetachedHead(t *testing.T) {
	ws := initFakeRepo(t, "main")
	sha := "0123456789abcdef0123456789abcdef01234567"
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".git", "HEAD"), []byte(sha+"\n"), 0o644))

	m := NewMonitor(ws, nil)
	assert.Equal(t, "detached-0123456789ab", m.Current())
}

func TestMonitor_WorktreeIndirection(t *testing.T) {
	real := t.TempDir()
	gitDir := filepath.Join(real, "actual-git")
	require.NoError(t, os.MkdirAll(gitDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(gitDir, "HEAD"), []byte("ref: refs/heads/wt\n"), 0o644))

	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".git"), []byte("gitdir: "+gitDir+"\n"), 0o644))

	m := NewMonitor(ws, nil)
	assert.Equal(t, "wt", m.Current())
}

func TestParseHead(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"symbolic ref", "ref: refs/heads/main\n", "main"},
		{"nested branch", "ref: refs/heads/fix/a/b\n", "fix/a/b"},
		{"detached", "0123456789abcdef0123456789abcdef01234567", "detached-0123456789ab"},
		{"non-branch ref", "ref: refs/tags/v1.0\n", DefaultBranch},
		{"garbage", "not a head file", DefaultBranch},
		{"empty", "", DefaultBranch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, parseHead(tt.content))
		})
	}
}

func TestMonitor_ChangeEventFires(t *testing.T) {
	ws := initFakeRepo(t, "main")
	m := NewMonitor(ws, nil, WithPollInterval(20*time.Millisecond))

	var mu sync.Mutex
	var gotNew, gotOld string
	var fires int
	m.OnBranchChange(func(newBranch, oldBranch string) {
		mu.Lock()
		defer mu.Unlock()
		gotNew, gotOld = newBranch, oldBranch
		fires++
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	// Baseline established at Start: no event until something changes.
	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	assert.Zero(t, fires)
	mu.Unlock()

	setHead(t, ws, "feature")

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return fires >= 1 && gotNew == "feature" && gotOld == "main"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestMonitor_NoEventWhenBranchUnchanged(t *testing.T) {
	ws := initFakeRepo(t, "main")
	m := NewMonitor(ws, nil, WithPollInterval(10*time.Millisecond))

	var fires int
	var mu sync.Mutex
	m.OnBranchChange(func(_, _ string) {
		mu.Lock()
		fires++
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Stop()

	// Rewrite HEAD with identical content: polls and watch events must
	// not produce a change notification.
	setHead(t, ws, "main")
	time.Sleep(100 * time.Millisecond)

	mu.Lock()
	assert.Zero(t, fires)
	mu.Unlock()
}

func TestMonitor_StartTwiceFails(t *testing.T) {
	ws := initFakeRepo(t, "main")
	m := NewMonitor(ws, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, m.Start(ctx))
	defer m.Stop()
	assert.Error(t, m.Start(ctx))
}

func TestListBranches_LooseRefs(t *testing.T) {
	ws := initFakeRepo(t, "main")
	heads := filepath.Join(ws, ".git", "refs", "heads")
	sha := "0123456789abcdef0123456789abcdef01234567\n"
	require.NoError(t, os.WriteFile(filepath.Join(heads, "main"), []byte(sha), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(heads, "feature"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(heads, "feature", "x"), []byte(sha), 0o644))

	m := NewMonitor(ws, nil)
	branches, err := m.ListBranches()
	require.NoError(t, err)
	assert.Equal(t, []string{"feature/x", "main"}, branches)
}

func TestListBranches_PackedRefs(t *testing.T) {
	ws := initFakeRepo(t, "main")
	packed := "# pack-refs with: peeled fully-peeled sorted\n" +
		"0123456789abcdef0123456789abcdef01234567 refs/heads/packed-branch\n" +
		"0123456789abcdef0123456789abcdef01234567 refs/tags/v1\n"
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".git", "packed-refs"), []byte(packed), 0o644))

	m := NewMonitor(ws, nil)
	branches, err := m.ListBranches()
	require.NoError(t, err)
	assert.Contains(t, branches, "packed-branch")
	assert.NotContains(t, branches, "v1")
}

func TestListBranches_NoVCS(t *testing.T) {
	m := NewMonitor(t.TempDir(), nil)
	branches, err := m.ListBranches()
	require.NoError(t, err)
	assert.Equal(t, []string{DefaultBranch}, branches)
}
