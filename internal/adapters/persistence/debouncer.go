package persistence

import (
	"sync"
	"time"
)

// Debouncer coalesces bursts of persistence triggers into a single delayed
// write. Mutation-heavy services (order board, gear state) trigger it after
// every change; the write runs at most once per delay window.
type Debouncer struct {
	mu      sync.Mutex
	delay   time.Duration
	timer   *time.Timer
	write   func()
	stopped bool
}

// NewDebouncer creates a debouncer invoking write after delay of quiet time
func NewDebouncer(delay time.Duration, write func()) *Debouncer {
	return &Debouncer{delay: delay, write: write}
}

// Trigger schedules (or reschedules) the delayed write
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.write)
}

// Flush cancels any pending timer and writes synchronously
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.write()
}

// Stop cancels any pending write without running it
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
