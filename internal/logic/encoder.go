package logic

import (
	"sync"
	"sync/atomic"
)

// StepInterval is the minimum spacing in milliseconds between two accepted
// encoder transitions. Faster rotation loses steps; that is the noise filter.
const StepInterval uint32 = 100

// A sample is the two encoder line levels packed as clk<<1 | dt. A
// transition code is previous<<2 | current.
//
// Clockwise rotation walks the Gray sequence 00 -> 10 -> 11 -> 01 -> 00,
// giving the codes 0010, 1011, 1101, 0100. Counter-clockwise walks the
// same sequence backwards: 00 -> 01 -> 11 -> 10 -> 00, giving 0001, 0111,
// 1110, 1000. Every other code is a repeated level or a skipped phase
// (both lines changed at once) and carries no direction.
var (
	clockwiseCodes        = [4]uint8{0b1101, 0b0100, 0b0010, 0b1011}
	counterClockwiseCodes = [4]uint8{0b1110, 0b0111, 0b0001, 0b1000}
)

// Direction returns +1 for a clockwise code, -1 for a counter-clockwise
// code and 0 for anything else.
func Direction(code uint8) int32 {
	for _, c := range clockwiseCodes {
		if code == c {
			return 1
		}
	}
	for _, c := range counterClockwiseCodes {
		if code == c {
			return -1
		}
	}
	return 0
}

// Encoder decodes quadrature edges into a pending step count.
//
// Edge is called from the asynchronous edge context; Drain is called from
// the main loop. The pending count is the only value both sides touch and
// is exchanged atomically, so the main loop never sees a torn update.
type Encoder struct {
	mu           sync.Mutex // serializes producers
	prev         uint8
	lastAccepted uint32
	accepted     bool // lastAccepted is meaningless until the first step

	pending atomic.Int32
}

// NewEncoder returns an encoder whose previous sample is initial.
func NewEncoder(initial uint8) *Encoder {
	return &Encoder{prev: initial & 0b11}
}

// Edge processes one edge on either line. sample holds the current line
// levels; now is the monotonic millisecond reading. It returns the step
// applied to the pending count (0 when ignored or rate-limited).
func (e *Encoder) Edge(sample uint8, now uint32) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()

	sample &= 0b11
	code := e.prev<<2 | sample
	e.prev = sample

	dir := Direction(code)
	if dir == 0 {
		return 0
	}
	if e.accepted && now-e.lastAccepted < StepInterval {
		return 0
	}
	e.accepted = true
	e.lastAccepted = now
	e.pending.Add(dir)
	return dir
}

// Drain returns the pending step count and resets it to zero in one
// atomic step.
func (e *Encoder) Drain() int32 {
	return e.pending.Swap(0)
}

// Pending returns the pending step count without resetting it.
func (e *Encoder) Pending() int32 {
	return e.pending.Load()
}
