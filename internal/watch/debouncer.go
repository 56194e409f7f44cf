// Package watch implements file watching for automatic charm rebuilds.
package watch

import (
	"sync"
	"time"
)

// MaxPendingPaths is the maximum number of changed paths that can be
// pending. Reaching it triggers an immediate flush so rapid file
// creation cannot grow the set without bound.
const MaxPendingPaths = 1000

// Debouncer coalesces rapid file change events into one batched
// rebuild. Events within the window are grouped so editor autosaves and
// formatter runs do not trigger a rebuild per write.
type Debouncer struct {
	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	window  time.Duration
	onFlush func(paths []string)
	stopped bool
}

// NewDebouncer creates a debouncer with the given window duration. The
// onFlush callback receives the changed paths once the window expires
// with no new events.
func NewDebouncer(window time.Duration, onFlush func(paths []string)) *Debouncer {
	return &Debouncer{
		pending: make(map[string]struct{}),
		window:  window,
		onFlush: onFlush,
	}
}

// Add records a changed path. Repeated changes to the same path within
// the window are coalesced.
func (d *Debouncer) Add(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.pending[path] = struct{}{}

	if len(d.pending) >= MaxPendingPaths {
		if d.timer != nil {
			d.timer.Stop()
			d.timer = nil
		}
		d.flushLocked()
		return
	}

	// Note: timer.Stop() may return false if the timer already fired,
	// meaning flush() may already be queued. That is safe because
	// flush() exits early when nothing is pending.
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// flush is called when the timer expires.
func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.flushLocked()
}

// flushLocked performs the flush. Caller must hold d.mu.
func (d *Debouncer) flushLocked() {
	if d.stopped || len(d.pending) == 0 {
		return
	}

	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = make(map[string]struct{})

	// Release the lock around the handler to prevent deadlocks.
	d.mu.Unlock()
	if d.onFlush != nil {
		d.onFlush(paths)
	}
	d.mu.Lock()
}

// FlushNow immediately flushes any pending paths without waiting for
// the timer.
func (d *Debouncer) FlushNow() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	if d.stopped || len(d.pending) == 0 {
		d.mu.Unlock()
		return
	}

	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	if d.onFlush != nil {
		d.onFlush(paths)
	}
}

// Stop stops the debouncer. Any pending paths are flushed.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}

	paths := make([]string, 0, len(d.pending))
	for path := range d.pending {
		paths = append(paths, path)
	}
	d.pending = make(map[string]struct{})
	d.mu.Unlock()

	if len(paths) > 0 && d.onFlush != nil {
		d.onFlush(paths)
	}
}

// PendingCount returns the number of paths waiting to be flushed.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
