package render

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweeney/envclock/internal/display"
	"github.com/sweeney/envclock/internal/logic"
)

func TestClockFace(t *testing.T) {
	sink := display.NewFakeSink()
	s := logic.State{
		Menu:     logic.MenuClock,
		Contrast: 10,
		Time:     logic.ClockTime{Hours: 9, Minutes: 41, Seconds: 7},
	}

	require.NoError(t, Frame(sink, s))
	assert.Equal(t, []string{
		"clear",
		"large 9@0 w2 z",
		"cursor 6,0", "text .",
		"cursor 6,1", "text .",
		"large 41@7 w2 z",
		"cursor 13,1", "text .07",
		"cursor 14,0", "text 10",
	}, sink.Calls)
}

func TestClockFaceEditMarkers(t *testing.T) {
	tests := []struct {
		menu         logic.Menu
		upper, lower string
	}{
		{logic.MenuClock, "text .", "text ."},
		{logic.MenuSetHours, "text <", "text ."},
		{logic.MenuSetMinutes, "text .", "text >"},
	}
	for _, tt := range tests {
		t.Run(tt.menu.String(), func(t *testing.T) {
			sink := display.NewFakeSink()
			require.NoError(t, Frame(sink, logic.State{Menu: tt.menu}))
			assert.Equal(t, tt.upper, sink.Calls[3])
			assert.Equal(t, tt.lower, sink.Calls[5])
		})
	}
}

func TestSecondsTwoDigits(t *testing.T) {
	sink := display.NewFakeSink()
	require.NoError(t, Frame(sink, logic.State{Time: logic.ClockTime{Seconds: 42}}))
	assert.Contains(t, sink.Calls, "text .42")
}

func TestSensorView(t *testing.T) {
	sink := display.NewFakeSink()
	s := logic.State{Menu: logic.MenuSensor, Temperature: 21.6, Humidity: 44.4}

	require.NoError(t, Frame(sink, s))
	assert.Equal(t, []string{
		"clear",
		"cursor 1,0", "text 22 C",
		"cursor 1,1", "text 44 %",
	}, sink.Calls)
	assert.Equal(t, " 22 C", sink.Line(0))
	assert.Equal(t, " 44 %", sink.Line(1))
}

func TestSensorViewPlaceholder(t *testing.T) {
	sink := display.NewFakeSink()
	nan := float32(math.NaN())

	require.NoError(t, Frame(sink, logic.State{Menu: logic.MenuSensor, Temperature: nan, Humidity: nan}))
	assert.Equal(t, " -- C", sink.Line(0))
	assert.Equal(t, " -- %", sink.Line(1))
}

func TestReading(t *testing.T) {
	tests := []struct {
		in   float32
		want string
	}{
		{21.4, "21"},
		{21.5, "22"},
		{-3.6, "-4"},
		{-0.2, "0"},
		{0, "0"},
		{float32(math.NaN()), Placeholder},
		{float32(math.Inf(1)), Placeholder},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Reading(tt.in), "Reading(%v)", tt.in)
	}
}

func TestFrameStopsAtFirstError(t *testing.T) {
	sink := display.NewFakeSink()
	sink.Err = errors.New("bus fault")

	err := Frame(sink, logic.State{})
	assert.EqualError(t, err, "bus fault")
	assert.Equal(t, []string{"clear"}, sink.Calls)
}
