// Package render draws the device state onto a character display.
package render

import (
	"fmt"
	"strconv"

	"github.com/chewxy/math32"

	"github.com/sweeney/envclock/internal/display"
	"github.com/sweeney/envclock/internal/logic"
)

// Placeholder is shown in place of a failed sensor reading.
const Placeholder = "--"

// Screen positions of the clock face.
const (
	hoursCol     = 0
	separatorCol = 6
	minutesCol   = 7
	secondsCol   = 13
	contrastCol  = 14
	readingCol   = 1
)

// Frame clears the display and draws s. It stops at the first display
// error.
func Frame(sink display.Sink, s logic.State) error {
	if err := sink.Clear(); err != nil {
		return err
	}
	if s.Menu == logic.MenuSensor {
		return readings(sink, s)
	}
	return clockFace(sink, s)
}

// clockFace draws HH<>MM with seconds and contrast in the right corner.
// The separator dots turn into arrows pointing at the field being edited.
func clockFace(sink display.Sink, s logic.State) error {
	upper, lower := ".", "."
	if s.Menu == logic.MenuSetHours {
		upper = "<"
	}
	if s.Menu == logic.MenuSetMinutes {
		lower = ">"
	}

	w := writer{sink: sink}
	w.large(s.Time.Hours, hoursCol)
	w.at(separatorCol, 0, upper)
	w.at(separatorCol, 1, lower)
	w.large(s.Time.Minutes, minutesCol)
	w.at(secondsCol, 1, fmt.Sprintf(".%02d", s.Time.Seconds))
	w.at(contrastCol, 0, strconv.Itoa(s.Contrast))
	return w.err
}

func readings(sink display.Sink, s logic.State) error {
	w := writer{sink: sink}
	w.at(readingCol, 0, Reading(s.Temperature)+" C")
	w.at(readingCol, 1, Reading(s.Humidity)+" %")
	return w.err
}

// Reading formats a sensor value rounded to an integer, or Placeholder when
// the value is NaN or infinite.
func Reading(v float32) string {
	if math32.IsNaN(v) || math32.IsInf(v, 0) {
		return Placeholder
	}
	r := math32.Round(v)
	if r == 0 {
		r = 0 // drop the sign of -0
	}
	return strconv.Itoa(int(r))
}

// writer remembers the first error so the drawing code reads top to
// bottom.
type writer struct {
	sink display.Sink
	err  error
}

func (w *writer) at(col, row int, text string) {
	if w.err != nil {
		return
	}
	if w.err = w.sink.SetCursor(col, row); w.err != nil {
		return
	}
	w.err = w.sink.WriteText(text)
}

func (w *writer) large(value, col int) {
	if w.err != nil {
		return
	}
	w.err = w.sink.WriteLargeDigits(value, col, 2, true)
}
