// Package console writes the debug lines the device prints on its serial
// port.
package console

import (
	"fmt"
	"io"

	"go.bug.st/serial"
)

// DefaultBaudRate matches the device's UART setting.
const DefaultBaudRate = 9600

// Console writes line-oriented debug output.
type Console struct {
	w io.Writer
}

// New writes to w.
func New(w io.Writer) *Console {
	return &Console{w: w}
}

// Port is an open serial console.
type Port struct {
	*Console
	port serial.Port
}

// Open opens a serial port at baud (8N1).
func Open(name string, baud int) (*Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	p, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &Port{Console: New(p), port: p}, nil
}

// Close closes the serial port.
func (p *Port) Close() error {
	return p.port.Close()
}

// Contrast prints the contrast level after a redraw.
func (c *Console) Contrast(level int) error {
	_, err := fmt.Fprintf(c.w, "Contrast:%d\r\n", level)
	return err
}
