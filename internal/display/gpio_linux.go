//go:build linux

package display

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// PinMap lists the BCM offsets of the display lines.
type PinMap struct {
	RS, E          int
	D4, D5, D6, D7 int
}

// Device is an HD44780 wired to GPIO character device lines.
type Device struct {
	*HD44780
	lines *gpiocdev.Lines
}

// Open requests the display lines as outputs and initializes the display.
func Open(chip string, pm PinMap) (*Device, error) {
	offsets := []int{pm.RS, pm.E, pm.D4, pm.D5, pm.D6, pm.D7}
	lines, err := gpiocdev.RequestLines(chip, offsets, gpiocdev.AsOutput(0, 0, 0, 0, 0, 0))
	if err != nil {
		return nil, fmt.Errorf("request lcd pins %v: %w", offsets, err)
	}

	d := &Device{HD44780: NewHD44780(lines, nil), lines: lines}
	if err := d.Init(); err != nil {
		lines.Close()
		return nil, err
	}
	return d, nil
}

// Close releases the display lines. The display keeps showing the last
// frame.
func (d *Device) Close() error {
	if err := d.lines.Close(); err != nil {
		return fmt.Errorf("close lcd pins: %w", err)
	}
	return nil
}
