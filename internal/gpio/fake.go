package gpio

import (
	"errors"
	"sync"
)

// FakeButton is a test double that returns scripted button levels.
type FakeButton struct {
	// Samples contains scripted line levels (true = low/pressed).
	// Each call to Low() consumes the next sample.
	Samples []bool

	// index tracks current position in Samples
	index int

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Low()
	ReadError error
}

// NewFakeButton creates a FakeButton with the given samples.
func NewFakeButton(samples ...bool) *FakeButton {
	return &FakeButton{Samples: samples}
}

// Low returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
// With no samples configured the line reads high.
func (f *FakeButton) Low() (bool, error) {
	if f.ReadError != nil {
		return false, f.ReadError
	}
	if len(f.Samples) == 0 {
		return false, nil
	}

	low := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}
	return low, nil
}

// Close marks the button as closed.
func (f *FakeButton) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds to the first sample.
func (f *FakeButton) Reset() {
	f.index = 0
	f.Closed = false
}

// FakeEncoder is a test double for the encoder lines. Emit plays the role
// of the edge interrupt.
type FakeEncoder struct {
	mu      sync.Mutex
	level   uint8
	handler EdgeHandler
	Closed  bool
}

// NewFakeEncoder returns a fake encoder at the given resting level.
func NewFakeEncoder(level uint8) *FakeEncoder {
	return &FakeEncoder{level: level & 0b11}
}

// Sample returns the current line levels.
func (f *FakeEncoder) Sample() (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.level, nil
}

// Watch registers the edge handler.
func (f *FakeEncoder) Watch(h EdgeHandler) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.handler != nil {
		return errors.New("encoder already watched")
	}
	f.handler = h
	return nil
}

// Emit changes the line levels and delivers the edge to the handler, if
// one is registered.
func (f *FakeEncoder) Emit(level uint8) {
	f.mu.Lock()
	f.level = level & 0b11
	h := f.handler
	f.mu.Unlock()

	if h != nil {
		h(level & 0b11)
	}
}

// Close marks the encoder as closed.
func (f *FakeEncoder) Close() error {
	f.mu.Lock()
	f.Closed = true
	f.mu.Unlock()
	return nil
}
