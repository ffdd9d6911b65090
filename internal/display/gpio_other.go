//go:build !linux

package display

import "errors"

// PinMap lists the BCM offsets of the display lines.
type PinMap struct {
	RS, E          int
	D4, D5, D6, D7 int
}

// Device is not available on non-Linux platforms.
type Device struct {
	*HD44780
}

// Open returns an error on non-Linux platforms.
func Open(chip string, pm PinMap) (*Device, error) {
	return nil, errors.New("display: not supported on this platform (requires Linux)")
}

// Close is a no-op on non-Linux platforms.
func (d *Device) Close() error {
	return nil
}
