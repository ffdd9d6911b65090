// Package logic contains the pure input-decoding and state-management core
// of the clock. This package has NO external dependencies (no GPIO, display,
// sensor, OS, or time.Sleep). Time is always injected as a monotonic
// millisecond reading that wraps at 2^32.
package logic

import "fmt"

// Menu identifies the active view.
type Menu uint8

const (
	MenuClock      Menu = iota // clock face, encoder adjusts contrast
	MenuSensor                 // temperature and humidity, read-only
	MenuSetHours               // clock face, encoder adjusts hours
	MenuSetMinutes             // clock face, encoder adjusts minutes

	menuCount = 4
)

// String returns the view name used in logs and telemetry.
func (m Menu) String() string {
	switch m {
	case MenuClock:
		return "clock"
	case MenuSensor:
		return "sensor"
	case MenuSetHours:
		return "set_hours"
	case MenuSetMinutes:
		return "set_minutes"
	}
	return fmt.Sprintf("menu(%d)", uint8(m))
}

// Default values applied on every boot.
const (
	DefaultContrast = 10
	MinContrast     = 0
	MaxContrast     = 255

	// ContrastStep is the contrast change per encoder step.
	ContrastStep = 2
)

// ClockTime is a 24-hour time of day.
type ClockTime struct {
	Hours   int
	Minutes int
	Seconds int
}

// String formats the time as HH:MM:SS.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hours, t.Minutes, t.Seconds)
}

// State is the device state owned by the main loop.
type State struct {
	Menu     Menu
	Contrast int
	Time     ClockTime

	// Last sensor sample. Either may be NaN when the sensor failed.
	Temperature float32
	Humidity    float32

	// Dirty is set by any change to Time, Contrast or Menu and cleared
	// only after the display has been redrawn.
	Dirty bool
}

// Input is the main loop's view of one polling cycle.
type Input struct {
	Now     uint32 // monotonic milliseconds
	Pressed bool   // debounced button press event
	Delta   int32  // drained encoder steps
}

// Output reports what a cycle changed.
type Output struct {
	ViewChanged  bool
	Adjusted     bool
	Ticked       bool
	SampleSensor bool
}
