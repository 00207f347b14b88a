package syncer

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before pending changes are written.
const DefaultDebounce = time.Second

// Debouncer coalesces bursts of notifications into a single call that runs
// once no notification has arrived for the configured delay.
type Debouncer struct {
	mu      sync.Mutex
	clock   Clock
	delay   time.Duration
	fire    func()
	timer   Timer
	gen     uint64
	stopped bool
}

// NewDebouncer returns a Debouncer that calls fire delay after the last
// Notify. A nil clock uses the real one.
func NewDebouncer(delay time.Duration, clock Clock, fire func()) *Debouncer {
	if clock == nil {
		clock = RealClock()
	}
	return &Debouncer{clock: clock, delay: delay, fire: fire}
}

// Notify restarts the quiet period.
func (d *Debouncer) Notify() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.gen++
	gen := d.gen
	d.timer = d.clock.AfterFunc(d.delay, func() {
		d.mu.Lock()
		if d.gen != gen || d.timer == nil {
			d.mu.Unlock()
			return
		}
		d.timer = nil
		d.mu.Unlock()
		d.fire()
	})
}

// Pending reports whether a call is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Cancel drops the scheduled call, if any, and reports whether there was one.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cancelLocked()
}

// Stop cancels the scheduled call and ignores later notifications.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cancelLocked()
	d.stopped = true
}

func (d *Debouncer) cancelLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.gen++
	return true
}
