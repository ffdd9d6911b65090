package logic

// Clamp saturates in to [min, max].
func Clamp(in, min, max int) int {
	if in > max {
		return max
	} else if in < min {
		return min
	}
	return in
}

// Wrap returns min if in > max, max if in < min, else in.
// It jumps to the opposite bound once; it is not modulo arithmetic, so
// Wrap(23+3, 0, 23) is 0, not 2.
func Wrap(in, min, max int) int {
	if in > max {
		return min
	} else if in < min {
		return max
	}
	return in
}

// elapsed reports whether interval milliseconds have passed since last.
// Subtraction on uint32 stays correct across counter wraparound. The
// now >= interval guard skips the first cycles after boot, before the
// counter has advanced far enough to be meaningful.
func elapsed(now, last, interval uint32) bool {
	return now-last >= interval && now >= interval
}
