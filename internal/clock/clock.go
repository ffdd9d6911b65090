// Package clock provides the monotonic millisecond counter the core logic
// is driven by.
package clock

import (
	"sync/atomic"
	"time"
)

// Source returns elapsed monotonic milliseconds. The value wraps at 2^32
// (about 49.7 days); consumers compare readings with unsigned subtraction.
type Source interface {
	Millis() uint32
}

// Monotonic counts milliseconds since it was created.
type Monotonic struct {
	start time.Time
}

// NewMonotonic starts a counter at zero.
func NewMonotonic() *Monotonic {
	return &Monotonic{start: time.Now()}
}

// Millis returns milliseconds since start, truncated to 32 bits.
func (m *Monotonic) Millis() uint32 {
	return uint32(time.Since(m.start).Milliseconds())
}

// Fake is a manually driven Source. It is safe to read from an edge
// goroutine while a test advances it.
type Fake struct {
	ms atomic.Uint32
}

// NewFake returns a fake clock reading start.
func NewFake(start uint32) *Fake {
	f := &Fake{}
	f.ms.Store(start)
	return f
}

// Millis returns the current fake reading.
func (f *Fake) Millis() uint32 {
	return f.ms.Load()
}

// Set jumps to ms.
func (f *Fake) Set(ms uint32) {
	f.ms.Store(ms)
}

// Advance moves the reading forward by d, wrapping like the real counter.
func (f *Fake) Advance(d time.Duration) uint32 {
	return f.ms.Add(uint32(d.Milliseconds()))
}
