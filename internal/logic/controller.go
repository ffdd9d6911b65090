package logic

import "math"

// Controller owns the device state and routes button presses, encoder steps
// and elapsed time into it.
type Controller struct {
	state  State
	clock  Clock
	sensor Schedule
}

// NewController creates a controller with boot defaults. The state starts
// dirty so the first cycle draws a frame, and readings start NaN until the
// first sensor sample.
func NewController() *Controller {
	unread := float32(math.NaN())
	return &Controller{
		state: State{
			Menu:        MenuClock,
			Contrast:    DefaultContrast,
			Temperature: unread,
			Humidity:    unread,
			Dirty:       true,
		},
		sensor: Schedule{Interval: SensorInterval},
	}
}

// Step processes one main-loop cycle. A press switches to the next view and
// discards the cycle's encoder delta so a stale adjustment never lands in
// the new view.
func (c *Controller) Step(in Input) Output {
	var out Output

	if in.Pressed {
		c.Press()
		out.ViewChanged = true
	} else if in.Delta != 0 {
		out.Adjusted = c.Adjust(in.Delta)
	}

	if c.clock.Tick(in.Now) {
		c.state.Time = c.clock.Time
		c.state.Dirty = true
		out.Ticked = true
	}

	out.SampleSensor = c.sensor.Due(in.Now)
	return out
}

// Press advances to the next view: 0 -> 1 -> 2 -> 3 -> 0.
func (c *Controller) Press() {
	c.state.Menu = (c.state.Menu + 1) % menuCount
	c.state.Dirty = true
}

// Adjust applies an encoder delta to the field the current view edits.
// It returns false when the view has nothing to adjust.
func (c *Controller) Adjust(delta int32) bool {
	if delta == 0 {
		return false
	}
	d := int(delta)

	switch c.state.Menu {
	case MenuClock:
		c.state.Contrast = Clamp(c.state.Contrast+d*ContrastStep, MinContrast, MaxContrast)
	case MenuSetHours:
		c.clock.Time.Hours = Wrap(c.clock.Time.Hours+d, 0, 23)
		c.state.Time = c.clock.Time
	case MenuSetMinutes:
		c.clock.Time.Minutes = Wrap(c.clock.Time.Minutes+d, 0, 59)
		c.state.Time = c.clock.Time
	default:
		return false
	}
	c.state.Dirty = true
	return true
}

// SetReadings stores a sensor sample as read, including NaN.
func (c *Controller) SetReadings(temperature, humidity float32) {
	c.state.Temperature = temperature
	c.state.Humidity = humidity
}

// SetContrast replaces the contrast level, clamped to [0, 255].
func (c *Controller) SetContrast(level int) {
	c.state.Contrast = Clamp(level, MinContrast, MaxContrast)
	c.state.Dirty = true
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	return c.state
}

// Dirty reports whether the display needs a redraw.
func (c *Controller) Dirty() bool {
	return c.state.Dirty
}

// MarkRendered clears the dirty flag after the display was redrawn.
func (c *Controller) MarkRendered() {
	c.state.Dirty = false
}
