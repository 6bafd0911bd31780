// Package debounce coalesces bursts of calls into one trailing call.
package debounce

import (
	"sync"
	"time"
)

// Delays used by the client.
const (
	FilterDelay  = 300 * time.Millisecond
	GeocodeDelay = 350 * time.Millisecond
)

// Debouncer runs the most recently triggered function once no new
// trigger has arrived for the delay.
type Debouncer struct {
	mu    sync.Mutex
	delay time.Duration
	timer *time.Timer
	fn    func()
	// gen invalidates timers that fired while a newer trigger was queued
	gen     uint64
	stopped bool
}

// New creates a debouncer.
func New(delay time.Duration) *Debouncer {
	return &Debouncer{delay: delay}
}

// Trigger schedules fn, replacing any pending function.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.fn = fn
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.stopped || d.fn == nil {
		d.mu.Unlock()
		return
	}
	fn := d.fn
	d.fn = nil
	d.mu.Unlock()
	fn()
}

// Flush runs the pending function now, if any.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	fn := d.fn
	d.fn = nil
	d.gen++
	d.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Pending reports whether a function is waiting to run.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.fn != nil
}

// Stop drops the pending function and ignores later triggers.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.fn = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}
