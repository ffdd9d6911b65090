package logic

// Intervals in milliseconds.
const (
	TickInterval   uint32 = 1000
	SensorInterval uint32 = 5000
)

// Clock advances a ClockTime from elapsed monotonic milliseconds.
// It does not correct for drift.
type Clock struct {
	Time     ClockTime
	lastTick uint32
}

// Tick advances the time by one second if a full second has elapsed since
// the last tick. It returns true when the time changed.
func (c *Clock) Tick(now uint32) bool {
	if !elapsed(now, c.lastTick, TickInterval) {
		return false
	}
	c.lastTick = now
	c.Time.advance()
	return true
}

// advance adds one second, carrying into minutes and hours in the same step.
func (t *ClockTime) advance() {
	t.Seconds++
	if t.Seconds > 59 {
		t.Seconds = 0
		t.Minutes++
	}
	if t.Minutes > 59 {
		t.Minutes = 0
		t.Hours++
	}
	t.Hours = Wrap(t.Hours, 0, 23)
}

// Schedule fires at most once per Interval milliseconds.
type Schedule struct {
	Interval uint32
	last     uint32
}

// Due reports whether the interval has elapsed and, if so, restarts it.
// A zero Interval never fires.
func (s *Schedule) Due(now uint32) bool {
	if s.Interval == 0 || !elapsed(now, s.last, s.Interval) {
		return false
	}
	s.last = now
	return true
}
