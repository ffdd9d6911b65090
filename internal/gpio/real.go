//go:build linux

package gpio

import (
	"errors"
	"fmt"
	"sync"

	"github.com/warthog618/go-gpiocdev"
)

// RealButton reads the push button from actual hardware.
type RealButton struct {
	line *gpiocdev.Line
}

// NewRealButton requests the button line as an input with pull-up.
func NewRealButton(chip string, pin int) (*RealButton, error) {
	line, err := gpiocdev.RequestLine(chip, pin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		return nil, fmt.Errorf("request SW pin %d: %w", pin, err)
	}
	return &RealButton{line: line}, nil
}

// Low reports whether the button line reads low (pressed).
func (b *RealButton) Low() (bool, error) {
	v, err := b.line.Value()
	if err != nil {
		return false, fmt.Errorf("read SW pin: %w", err)
	}
	return v == 0, nil
}

// Close releases the line.
func (b *RealButton) Close() error {
	if err := b.line.Close(); err != nil {
		return fmt.Errorf("close SW pin: %w", err)
	}
	return nil
}

// RealEncoder watches both encoder lines for edges.
type RealEncoder struct {
	chip     *gpiocdev.Chip
	clk, dt  int
	mu       sync.Mutex
	lines    *gpiocdev.Lines
	handler  EdgeHandler
	watching bool
}

// NewRealEncoder opens the chip; the lines are requested on Watch or the
// first Sample.
func NewRealEncoder(chip string, pinCLK, pinDT int) (*RealEncoder, error) {
	c, err := gpiocdev.NewChip(chip)
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	return &RealEncoder{chip: c, clk: pinCLK, dt: pinDT}, nil
}

// Sample reads both line levels.
func (e *RealEncoder) Sample() (uint8, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lines == nil {
		lines, err := e.chip.RequestLines([]int{e.clk, e.dt}, gpiocdev.AsInput, gpiocdev.WithPullUp)
		if err != nil {
			return 0, fmt.Errorf("request encoder pins %d,%d: %w", e.clk, e.dt, err)
		}
		e.lines = lines
	}
	return e.read()
}

// read must be called with e.lines set.
func (e *RealEncoder) read() (uint8, error) {
	vals := make([]int, 2)
	if err := e.lines.Values(vals); err != nil {
		return 0, fmt.Errorf("read encoder pins: %w", err)
	}
	return Pack(vals[0], vals[1]), nil
}

// Watch requests both lines with pull-ups and both-edge detection. On every
// edge it reads both levels and passes them to h.
func (e *RealEncoder) Watch(h EdgeHandler) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.watching {
		return errors.New("encoder already watched")
	}
	if e.lines != nil {
		if err := e.lines.Close(); err != nil {
			return fmt.Errorf("release encoder pins: %w", err)
		}
		e.lines = nil
	}

	e.handler = h
	lines, err := e.chip.RequestLines([]int{e.clk, e.dt},
		gpiocdev.AsInput,
		gpiocdev.WithPullUp,
		gpiocdev.WithBothEdges,
		gpiocdev.WithEventHandler(e.onEdge))
	if err != nil {
		return fmt.Errorf("watch encoder pins %d,%d: %w", e.clk, e.dt, err)
	}
	e.lines = lines
	e.watching = true
	return nil
}

func (e *RealEncoder) onEdge(gpiocdev.LineEvent) {
	e.mu.Lock()
	if e.lines == nil {
		// Event raced the request returning.
		e.mu.Unlock()
		return
	}
	s, err := e.read()
	h := e.handler
	e.mu.Unlock()

	if err != nil {
		return
	}
	h(s)
}

// Close releases the lines and the chip. The lines are closed without
// holding the lock since closing waits for a running onEdge to return.
func (e *RealEncoder) Close() error {
	e.mu.Lock()
	lines, chip := e.lines, e.chip
	e.lines, e.chip = nil, nil
	e.mu.Unlock()

	var errs []error
	if lines != nil {
		if err := lines.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close encoder pins: %w", err))
		}
	}
	if chip != nil {
		if err := chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	return errors.Join(errs...)
}
