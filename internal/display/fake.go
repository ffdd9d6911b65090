package display

import (
	"fmt"
	"strings"
)

// FakeSink records display calls and keeps a text model of the screen.
type FakeSink struct {
	// Calls lists every call in order, e.g. "clear", "cursor 6,0",
	// "text <", "large 12@0 w2 z".
	Calls []string

	// Screen holds what plain text writes would show. Large digits are
	// drawn as their decimal characters in the top row only.
	Screen [Rows][Columns]rune

	// Err, if set, is returned by every call.
	Err error

	col, row int
}

// NewFakeSink returns a blank fake display.
func NewFakeSink() *FakeSink {
	f := &FakeSink{}
	f.blank()
	return f
}

func (f *FakeSink) blank() {
	for r := range f.Screen {
		for c := range f.Screen[r] {
			f.Screen[r][c] = ' '
		}
	}
	f.col, f.row = 0, 0
}

// Clear blanks the screen model.
func (f *FakeSink) Clear() error {
	f.Calls = append(f.Calls, "clear")
	if f.Err != nil {
		return f.Err
	}
	f.blank()
	return nil
}

// SetCursor moves the write position.
func (f *FakeSink) SetCursor(col, row int) error {
	f.Calls = append(f.Calls, fmt.Sprintf("cursor %d,%d", col, row))
	if f.Err != nil {
		return f.Err
	}
	f.col, f.row = col, row
	return nil
}

// WriteText writes s at the cursor, clipping at the right edge.
func (f *FakeSink) WriteText(s string) error {
	f.Calls = append(f.Calls, "text "+s)
	if f.Err != nil {
		return f.Err
	}
	for _, r := range s {
		if f.col >= Columns || f.row >= Rows {
			break
		}
		f.Screen[f.row][f.col] = r
		f.col++
	}
	return nil
}

// WriteLargeDigits records the call and writes the digits into the top row.
func (f *FakeSink) WriteLargeDigits(value, col, width int, leadingZero bool) error {
	z := ""
	if leadingZero {
		z = " z"
	}
	f.Calls = append(f.Calls, fmt.Sprintf("large %d@%d w%d%s", value, col, width, z))
	if f.Err != nil {
		return f.Err
	}
	for i, d := range digits(value, width, leadingZero) {
		c := col + i*DigitWidth
		if c >= Columns {
			break
		}
		if d < 0 {
			f.Screen[0][c] = ' '
		} else {
			f.Screen[0][c] = rune('0' + d)
		}
	}
	return nil
}

// Line returns row r of the screen model with trailing blanks trimmed.
func (f *FakeSink) Line(r int) string {
	return strings.TrimRight(string(f.Screen[r][:]), " ")
}

// Reset clears recorded calls and the screen.
func (f *FakeSink) Reset() {
	f.Calls = nil
	f.Err = nil
	f.blank()
}
