package filter

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet window for search inputs that drive a server query.
const DefaultDebounce = 500 * time.Millisecond

// Debouncer delivers the last value it was given once input has been quiet for
// the configured window.
type Debouncer[T any] struct {
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	pending T
	armed   bool
	gen     uint64
	stopped bool
}

func NewDebouncer[T any](delay time.Duration, fn func(T)) *Debouncer[T] {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer[T]{delay: delay, fn: fn}
}

// Trigger records v and restarts the quiet window.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.pending = v
	d.armed = true
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// Flush delivers a pending value immediately, e.g. when the user presses enter.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	v, ok := d.takeLocked()
	d.mu.Unlock()

	if ok {
		d.fn(v)
	}
}

// Stop drops any pending value and ignores later triggers.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
	}
}

// fire delivers only for the trigger that armed it. A timer that Stop could not
// catch finds a newer generation and leaves the value for its own timer.
func (d *Debouncer[T]) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	v, ok := d.takeLocked()
	d.mu.Unlock()

	if ok {
		d.fn(v)
	}
}

func (d *Debouncer[T]) takeLocked() (T, bool) {
	var zero T
	if !d.armed || d.stopped {
		return zero, false
	}
	v := d.pending
	d.pending = zero
	d.armed = false
	return v, true
}
