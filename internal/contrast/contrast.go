// Package contrast drives the display contrast voltage as a PWM duty cycle.
package contrast

import (
	"fmt"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

// Sink accepts a contrast level in [0, 255].
type Sink interface {
	Set(level uint8) error
}

// DefaultPin is the BCM pin with hardware PWM used for contrast.
const DefaultPin = "GPIO12"

// DefaultFrequency is the PWM carrier; the display's contrast input sits
// behind an RC filter.
const DefaultFrequency = 25 * physic.KiloHertz

// PWM writes contrast levels to a hardware PWM pin.
type PWM struct {
	pin  gpio.PinIO
	freq physic.Frequency

	last    uint8
	started bool
}

// OpenPWM initializes the host drivers and looks up pin by name.
func OpenPWM(pin string, freq physic.Frequency) (*PWM, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("init periph host: %w", err)
	}
	p := gpioreg.ByName(pin)
	if p == nil {
		return nil, fmt.Errorf("contrast pin %q not found", pin)
	}
	if freq <= 0 {
		freq = DefaultFrequency
	}
	return &PWM{pin: p, freq: freq}, nil
}

// Set writes level as a duty cycle. Repeating the running level is a
// no-op so the loop can call it every cycle.
func (p *PWM) Set(level uint8) error {
	if p.started && level == p.last {
		return nil
	}
	if err := p.pin.PWM(Duty(level), p.freq); err != nil {
		p.started = false
		return fmt.Errorf("contrast pwm %s: %w", p.pin.Name(), err)
	}
	p.last, p.started = level, true
	return nil
}

// Close stops the PWM output.
func (p *PWM) Close() error {
	p.started = false
	return p.pin.Halt()
}

// Duty scales a level in [0, 255] to the full duty range.
func Duty(level uint8) gpio.Duty {
	return gpio.Duty(int64(level) * int64(gpio.DutyMax) / 255)
}

// FakeSink records contrast writes.
type FakeSink struct {
	Levels []uint8
	Err    error
}

// Set records level.
func (f *FakeSink) Set(level uint8) error {
	if f.Err != nil {
		return f.Err
	}
	f.Levels = append(f.Levels, level)
	return nil
}

// Last returns the most recent level, or 0 if none was written.
func (f *FakeSink) Last() uint8 {
	if len(f.Levels) == 0 {
		return 0
	}
	return f.Levels[len(f.Levels)-1]
}
