// Package branch tracks the active VCS branch of a workspace and signals
// branch switches to the indexing orchestrator.
//
// The monitor reads the branch straight from the repository's HEAD file
// (resolving git worktree indirection) rather than shelling out, watches
// HEAD, refs/heads, and packed-refs with fsnotify for low-latency
// detection, and polls on a fixed interval to cover watch-delivery gaps.
// Workspaces without a VCS report the fixed name "default"; detached
// HEADs report "detached-<sha12>" so they get isolated index state.
package branch
