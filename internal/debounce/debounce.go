// Package debounce coalesces bursts of values into one delayed update.
package debounce

import (
	"sync"
	"time"

	"github.com/juju/clock"
)

const DefaultDelay = 300 * time.Millisecond

// Debouncer propagates the last value passed to Set once no new value has
// arrived for the full delay.
type Debouncer[T any] struct {
	clock clock.Clock
	delay time.Duration
	fn    func(T)

	mu      sync.Mutex
	timer   clock.Timer
	seq     uint64
	pending *T
	value   T
	fired   bool
	stopped bool
}

func New[T any](clk clock.Clock, delay time.Duration, fn func(T)) *Debouncer[T] {
	if clk == nil {
		clk = clock.WallClock
	}
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[T]{clock: clk, delay: delay, fn: fn}
}

// Set restarts the window with v as the candidate value.
func (d *Debouncer[T]) Set(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.pending = &v
	d.timer = d.clock.AfterFunc(d.delay, func() { d.fire(seq) })
}

// Flush propagates the pending value now, if any.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	if d.stopped || d.pending == nil {
		d.mu.Unlock()
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.mu.Unlock()

	d.fire(seq)
}

// Stop cancels any pending value. Nothing is propagated afterwards.
func (d *Debouncer[T]) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.pending = nil
	if d.timer != nil {
		d.timer.Stop()
	}
}

// Value returns the last propagated value.
func (d *Debouncer[T]) Value() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.fired
}

func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

func (d *Debouncer[T]) fire(seq uint64) {
	d.mu.Lock()
	// A later Set, Flush or Stop superseded this timer.
	if d.stopped || seq != d.seq || d.pending == nil {
		d.mu.Unlock()
		return
	}
	v := *d.pending
	d.pending = nil
	d.value = v
	d.fired = true
	d.mu.Unlock()

	if d.fn != nil {
		d.fn(v)
	}
}
