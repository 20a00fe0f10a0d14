package store

import (
	"context"
	"sync"
)

// Runtime serves the settings document from memory and writes every
// mutation through to the backing store. Reads never touch the backend.
type Runtime struct {
	backend Store

	mu   sync.RWMutex
	snap Snapshot
}

// NewRuntime loads the document once and keeps it hot.
func NewRuntime(ctx context.Context, backend Store) (*Runtime, error) {
	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	return &Runtime{backend: backend, snap: snap}, nil
}

// View returns a copy of the current document.
func (r *Runtime) View() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.Clone()
}

// Update applies fn to the document under the write lock and persists the
// result. The in-memory document keeps the new value even when persistence
// fails, so the running process stays consistent with what operators just
// configured; the error is surfaced for them to act on.
func (r *Runtime) Update(ctx context.Context, fn func(*Snapshot)) error {
	r.mu.Lock()
	next := r.snap.Clone()
	next.ensureMaps()
	fn(&next)
	r.snap = next
	saved := next.Clone()
	r.mu.Unlock()
	return r.backend.Save(ctx, saved)
}

// IsBlocked reports whether the user is on the sender blocklist.
func (r *Runtime) IsBlocked(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.Blocked[userID]
}

// ReviewGroupID returns the bound review group, zero when unset.
func (r *Runtime) ReviewGroupID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.ReviewGroupID
}

// ChannelID returns the bound target channel, zero when unset.
func (r *Runtime) ChannelID() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snap.ChannelID
}
