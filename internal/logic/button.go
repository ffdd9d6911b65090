package logic

// Button turns an active-low push button line into single press events.
// There is no timer: the line must return high before another press is
// reported.
type Button struct {
	latched bool
}

// Poll is called once per cycle with the current line level (low = true).
// It returns true exactly once per press.
func (b *Button) Poll(low bool) bool {
	if !low {
		b.latched = false
		return false
	}
	if b.latched {
		return false
	}
	b.latched = true
	return true
}

// Latched reports whether a press has been reported and the line has not
// yet returned high.
func (b *Button) Latched() bool {
	return b.latched
}
