// Package display drives a 16x2 character display: plain text plus large
// two-row digits built from custom glyphs.
package display

// Geometry of the 16x2 module.
const (
	Columns = 16
	Rows    = 2

	// DigitWidth is the number of columns one large digit occupies.
	DigitWidth = 3
)

// Sink is a character display.
type Sink interface {
	Clear() error
	SetCursor(col, row int) error
	WriteText(s string) error

	// WriteLargeDigits draws value as width large digits starting at col,
	// spanning both rows. Missing leading digits are zeros when leadingZero
	// is set, blanks otherwise. Values wider than width keep their low
	// digits.
	WriteLargeDigits(value, col, width int, leadingZero bool) error
}

// digits returns the decimal digits of value, left-padded to width. A
// padding position is -1 when it should be blank.
func digits(value, width int, leadingZero bool) []int {
	if value < 0 {
		value = -value
	}
	out := make([]int, width)
	for i := width - 1; i >= 0; i-- {
		out[i] = value % 10
		value /= 10
		if value == 0 && !leadingZero {
			for j := i - 1; j >= 0; j-- {
				out[j] = -1
			}
			break
		}
	}
	return out
}
