package logic

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		in, min, max, want int
	}{
		{300, 0, 255, 255},
		{-5, 0, 255, 0},
		{0, 0, 255, 0},
		{255, 0, 255, 255},
		{128, 0, 255, 128},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Clamp(tt.in, tt.min, tt.max), "Clamp(%d, %d, %d)", tt.in, tt.min, tt.max)
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		in, min, max, want int
	}{
		{24, 0, 23, 0},
		{-1, 0, 23, 23},
		{60, 0, 59, 0},
		{-1, 0, 59, 59},
		{12, 0, 23, 12},
		{0, 0, 23, 0},
		{23, 0, 23, 23},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Wrap(tt.in, tt.min, tt.max), "Wrap(%d, %d, %d)", tt.in, tt.min, tt.max)
	}
}

// Overshooting by more than one step still lands on the opposite bound.
func TestWrapIsNotModulo(t *testing.T) {
	assert.Equal(t, 0, Wrap(23+3, 0, 23))
	assert.Equal(t, 23, Wrap(0-5, 0, 23))
	assert.Equal(t, 0, Wrap(59+100, 0, 59))
}

func TestElapsed(t *testing.T) {
	assert.False(t, elapsed(999, 0, 1000), "before first interval")
	assert.True(t, elapsed(1000, 0, 1000))
	assert.False(t, elapsed(1999, 1000, 1000))
	assert.True(t, elapsed(2000, 1000, 1000))

	// Across counter wraparound.
	assert.True(t, elapsed(1500, 0xFFFFFF00, 1000))
	assert.False(t, elapsed(0x200, 0xFFFFFF00, 1000), "guard holds while counter is below interval")
}
