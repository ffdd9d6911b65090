// Package gpio provides encoder and button input with hardware abstraction.
// The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// ButtonReader polls the encoder push button.
type ButtonReader interface {
	// Low reports whether the button line reads low. The button is
	// active-low (pulled up, shorted to ground when pressed).
	Low() (bool, error)

	// Close releases GPIO resources.
	Close() error
}

// EdgeHandler receives the encoder line levels packed as clk<<1 | dt after
// every edge on either line. It runs on the edge-delivery goroutine, not
// the main loop.
type EdgeHandler func(sample uint8)

// EncoderSource watches the two encoder lines.
type EncoderSource interface {
	// Sample reads both line levels once.
	Sample() (uint8, error)

	// Watch starts delivering edges to h. It may be called once.
	Watch(h EdgeHandler) error

	// Close stops edge delivery and releases GPIO resources.
	Close() error
}

// Default pin definitions (BCM numbering).
const (
	DefaultChip = "gpiochip0"

	DefaultPinCLK = 17 // encoder A
	DefaultPinDT  = 18 // encoder B
	DefaultPinSW  = 27 // encoder push button
)

// Pack combines two line levels into an encoder sample.
func Pack(clk, dt int) uint8 {
	var s uint8
	if clk != 0 {
		s |= 0b10
	}
	if dt != 0 {
		s |= 0b01
	}
	return s
}
