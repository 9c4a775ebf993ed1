package orchestrator

import "sync/atomic"

// indexLock provides non-blocking mutual exclusion for indexing passes.
// Overlapping triggers are dropped, not queued: a trigger that fails to
// acquire the lock simply returns, per the single-flight discipline.
type indexLock struct {
	state atomic.Int32 // 0 = unlocked, 1 = locked
}

// TryAcquire attempts to acquire the lock without blocking. Returns true
// when the lock was acquired.
func (l *indexLock) TryAcquire() bool {
	return l.state.CompareAndSwap(0, 1)
}

// Release releases the lock. Must only be called after a successful
// TryAcquire.
func (l *indexLock) Release() {
	l.state.Store(0)
}

// Held reports whether a pass is currently in flight.
func (l *indexLock) Held() bool {
	return l.state.Load() == 1
}
