// Package tracker keeps the single in-flight fetch registered for each grid cell.
package tracker

import (
	"log/slog"
	"sync"
)

// Handle is an in-flight fetch that can be abandoned.
// Cancel must be safe to call from any goroutine and must not block.
type Handle interface {
	Cancel()
}

// Tracker maps a cell index to the handle of its in-flight fetch.
//
// Every read and write of the map happens under one mutex, which is only held
// for map operations: cancel calls are issued after the lock is released and
// are never awaited.
type Tracker struct {
	mu       sync.Mutex
	requests map[int]Handle
	logger   *slog.Logger

	// notifyMu serializes onChange deliveries
	notifyMu sync.Mutex
	// onChange reports the number of tracked requests after every mutation
	onChange func(n int)
}

// New creates an empty tracker
func New(logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{
		requests: make(map[int]Handle),
		logger:   logger,
	}
}

// OnChange registers a callback receiving the tracked count after each mutation.
// Deliveries never overlap and each reports the count at delivery time, so the
// last value seen always matches Len once mutations stop. fn must not call
// back into the tracker's mutating methods.
func (t *Tracker) OnChange(fn func(n int)) {
	t.mu.Lock()
	t.onChange = fn
	t.mu.Unlock()
}

// Set registers h for index, replacing any existing handle without cancelling it.
// Callers cancel a stale handle with Cancel first.
func (t *Tracker) Set(index int, h Handle) {
	t.mu.Lock()
	t.requests[index] = h
	t.mu.Unlock()

	t.changed()
}

// Cancel cancels and forgets the handle for index. It is a no-op if none is registered.
func (t *Tracker) Cancel(index int) {
	t.mu.Lock()
	h, ok := t.requests[index]
	if ok {
		delete(t.requests, index)
	}
	t.mu.Unlock()

	if !ok {
		return
	}
	h.Cancel()
	t.logger.Debug("cancelled request", "index", index)
	t.changed()
}

// Finish forgets the handle for index if it is still h, without cancelling it.
// It reports whether h was the active handle.
func (t *Tracker) Finish(index int, h Handle) bool {
	t.mu.Lock()
	cur, ok := t.requests[index]
	active := ok && cur == h
	if active {
		delete(t.requests, index)
	}
	t.mu.Unlock()

	if active {
		t.changed()
	}
	return active
}

// ClearAll cancels every registered handle once and empties the map
func (t *Tracker) ClearAll() {
	t.mu.Lock()
	pending := t.requests
	t.requests = make(map[int]Handle)
	t.mu.Unlock()

	for _, h := range pending {
		h.Cancel()
	}
	if len(pending) > 0 {
		t.logger.Debug("cleared all requests", "count", len(pending))
	}
	t.changed()
}

// changed delivers the current count to onChange. The count is read under
// notifyMu so a delivery can never overwrite a newer one.
func (t *Tracker) changed() {
	t.notifyMu.Lock()
	defer t.notifyMu.Unlock()

	t.mu.Lock()
	n, fn := len(t.requests), t.onChange
	t.mu.Unlock()

	if fn != nil {
		fn(n)
	}
}

// Active returns the handle registered for index
func (t *Tracker) Active(index int) (Handle, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	h, ok := t.requests[index]
	return h, ok
}

// Len returns the number of tracked requests
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.requests)
}
