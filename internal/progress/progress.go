// Package progress provides cooperative cancellation tokens and composable
// progress reporters for long-running file scans.
package progress

import (
	"errors"
	"sync/atomic"
	"time"
)

// ErrCancelled is returned by streaming operations when their token reports
// cancellation. It is a distinguished condition, not a failure: callers map
// it to a "cancelled" terminal state instead of "failed".
var ErrCancelled = errors.New("operation cancelled")

// Token is polled by streaming code at row/chunk granularity. Implementations
// must be safe for concurrent use.
type Token interface {
	Cancelled() bool
}

// Func returns a function-form reporter suitable for handing across an API
// boundary.
type Func func(percent int, units int64, etaSeconds float64)

// TokenFunc adapts a predicate to a Token.
type TokenFunc func() bool

func (f TokenFunc) Cancelled() bool { return f() }

// Flag is a shared cancellation flag. The zero value is usable.
type Flag struct {
	set atomic.Bool
}

func (f *Flag) Cancel()         { f.set.Store(true) }
func (f *Flag) Cancelled() bool { return f.set.Load() }

// Check returns ErrCancelled when tok is non-nil and cancelled.
func Check(tok Token) error {
	if tok != nil && tok.Cancelled() {
		return ErrCancelled
	}
	return nil
}

// Tracker converts raw unit counts (bytes, rows, chunk indexes) into percent
// plus an ETA derived from the average rate since the tracker started.
type Tracker struct {
	total   int64
	started time.Time
	now     func() time.Time
}

// NewTracker starts tracking progress toward total units. A non-positive
// total disables percent and ETA computation (both report zero).
func NewTracker(total int64) *Tracker {
	return &Tracker{total: total, started: time.Now(), now: time.Now}
}

// Percent maps done units into 0..100, clamped.
func (t *Tracker) Percent(done int64) int {
	if t.total <= 0 {
		return 0
	}
	pct := int(done * 100 / t.total)
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	return pct
}

// ETA estimates remaining seconds from the running average rate. Returns 0
// until at least one unit is done.
func (t *Tracker) ETA(done int64) float64 {
	if t.total <= 0 || done <= 0 {
		return 0
	}
	if done >= t.total {
		return 0
	}
	elapsed := t.now().Sub(t.started).Seconds()
	if elapsed <= 0 {
		return 0
	}
	rate := float64(done) / elapsed
	if rate <= 0 {
		return 0
	}
	return float64(t.total-done) / rate
}

// Emit invokes fn (when non-nil) with the tracker's view of done units.
func (t *Tracker) Emit(fn Func, done int64) {
	if fn == nil {
		return
	}
	fn(t.Percent(done), done, t.ETA(done))
}

// SubRange remaps an inner 0..100 percent into the [lo, hi] slice of an outer
// reporter. Unit counts and ETA pass through untouched: each phase owns its
// own rate. A nil outer yields a nil reporter.
func SubRange(outer Func, lo, hi int) Func {
	if outer == nil {
		return nil
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	span := hi - lo
	return func(percent int, units int64, etaSeconds float64) {
		if percent < 0 {
			percent = 0
		}
		if percent > 100 {
			percent = 100
		}
		outer(lo+percent*span/100, units, etaSeconds)
	}
}

// ByteThreshold gates byte-offset emissions to >= step deltas. The final
// emission should bypass the gate via Flush.
type ByteThreshold struct {
	step int64
	last int64
}

func NewByteThreshold(step int64) *ByteThreshold {
	return &ByteThreshold{step: step}
}

// Ready reports whether offset has advanced at least one step past the last
// emission, and records the offset when it has.
func (b *ByteThreshold) Ready(offset int64) bool {
	if offset-b.last < b.step {
		return false
	}
	b.last = offset
	return true
}
