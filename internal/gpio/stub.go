//go:build !linux

package gpio

import "errors"

var errUnsupported = errors.New("gpio: not supported on this platform (requires Linux)")

// RealButton is not available on non-Linux platforms.
type RealButton struct{}

// NewRealButton returns an error on non-Linux platforms.
func NewRealButton(chip string, pin int) (*RealButton, error) {
	return nil, errUnsupported
}

// Low is not implemented on non-Linux platforms.
func (b *RealButton) Low() (bool, error) {
	return false, errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (b *RealButton) Close() error {
	return nil
}

// RealEncoder is not available on non-Linux platforms.
type RealEncoder struct{}

// NewRealEncoder returns an error on non-Linux platforms.
func NewRealEncoder(chip string, pinCLK, pinDT int) (*RealEncoder, error) {
	return nil, errUnsupported
}

// Sample is not implemented on non-Linux platforms.
func (e *RealEncoder) Sample() (uint8, error) {
	return 0, errUnsupported
}

// Watch is not implemented on non-Linux platforms.
func (e *RealEncoder) Watch(h EdgeHandler) error {
	return errUnsupported
}

// Close is not implemented on non-Linux platforms.
func (e *RealEncoder) Close() error {
	return nil
}
