package display

import (
	"fmt"
	"time"
)

// Pins drives the six HD44780 control and data lines in 4-bit mode. Values
// are given in the order RS, E, D4, D5, D6, D7. A gpiocdev line set
// requested in that order satisfies this interface directly.
type Pins interface {
	SetValues(values []int) error
}

// HD44780 commands.
const (
	cmdClear       = 0x01
	cmdEntryMode   = 0x06 // increment, no shift
	cmdDisplayOn   = 0x0C // display on, cursor off, blink off
	cmdFunctionSet = 0x28 // 4-bit bus, 2 lines, 5x8 font
	cmdSetCGRAM    = 0x40
	cmdSetDDRAM    = 0x80
)

// DDRAM address of the first column of each row.
var rowOffsets = [Rows]byte{0x00, 0x40}

// Large digit glyphs. Slots 0-2 are loaded into CGRAM; full and blank come
// from the character ROM.
const (
	glyphTop    byte = 0x00
	glyphBottom byte = 0x01
	glyphBoth   byte = 0x02
	glyphFull   byte = 0xFF
	glyphBlank  byte = ' '
)

var customGlyphs = [...][8]byte{
	glyphTop:    {0x1F, 0x1F, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x00},
	glyphBottom: {0x00, 0x00, 0x00, 0x00, 0x00, 0x1F, 0x1F, 0x1F},
	glyphBoth:   {0x1F, 0x1F, 0x00, 0x00, 0x00, 0x00, 0x1F, 0x1F},
}

// bigDigits holds the top and bottom rows of each large digit.
var bigDigits = [10][2][DigitWidth]byte{
	{{glyphFull, glyphTop, glyphFull}, {glyphFull, glyphBottom, glyphFull}},
	{{glyphTop, glyphFull, glyphBlank}, {glyphBottom, glyphFull, glyphBottom}},
	{{glyphBoth, glyphBoth, glyphFull}, {glyphFull, glyphBottom, glyphBottom}},
	{{glyphBoth, glyphBoth, glyphFull}, {glyphBottom, glyphBottom, glyphFull}},
	{{glyphFull, glyphBottom, glyphFull}, {glyphBlank, glyphBlank, glyphFull}},
	{{glyphFull, glyphBoth, glyphBoth}, {glyphBottom, glyphBottom, glyphFull}},
	{{glyphFull, glyphBoth, glyphBoth}, {glyphFull, glyphBottom, glyphFull}},
	{{glyphTop, glyphTop, glyphFull}, {glyphBlank, glyphBlank, glyphFull}},
	{{glyphFull, glyphBoth, glyphFull}, {glyphFull, glyphBottom, glyphFull}},
	{{glyphFull, glyphBoth, glyphFull}, {glyphBottom, glyphBottom, glyphFull}},
}

var blankDigit = [2][DigitWidth]byte{
	{glyphBlank, glyphBlank, glyphBlank},
	{glyphBlank, glyphBlank, glyphBlank},
}

// HD44780 is a 16x2 character display on a 4-bit parallel bus.
type HD44780 struct {
	pins  Pins
	sleep func(time.Duration)
	vals  []int
}

// NewHD44780 wraps the bus. sleep is used for controller timing; nil means
// time.Sleep. Call Init before writing.
func NewHD44780(pins Pins, sleep func(time.Duration)) *HD44780 {
	if sleep == nil {
		sleep = time.Sleep
	}
	return &HD44780{pins: pins, sleep: sleep, vals: make([]int, 6)}
}

// Init runs the 4-bit initialization sequence, loads the large digit
// glyphs and clears the screen.
func (d *HD44780) Init() error {
	d.sleep(50 * time.Millisecond)

	// Three 8-bit function sets force a known state whatever mode the
	// controller powered up in, then switch to 4-bit.
	for _, n := range []byte{0x3, 0x3, 0x3, 0x2} {
		if err := d.nibble(false, n); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
		d.sleep(5 * time.Millisecond)
	}

	for _, c := range []byte{cmdFunctionSet, cmdDisplayOn, cmdEntryMode} {
		if err := d.command(c); err != nil {
			return fmt.Errorf("lcd init: %w", err)
		}
	}

	for slot, g := range customGlyphs {
		if err := d.command(cmdSetCGRAM | byte(slot)<<3); err != nil {
			return fmt.Errorf("lcd load glyph %d: %w", slot, err)
		}
		for _, row := range g {
			if err := d.data(row); err != nil {
				return fmt.Errorf("lcd load glyph %d: %w", slot, err)
			}
		}
	}

	return d.Clear()
}

// Clear blanks the display and homes the cursor.
func (d *HD44780) Clear() error {
	if err := d.command(cmdClear); err != nil {
		return fmt.Errorf("lcd clear: %w", err)
	}
	d.sleep(2 * time.Millisecond)
	return nil
}

// SetCursor moves the cursor. Out-of-range positions are clamped.
func (d *HD44780) SetCursor(col, row int) error {
	if row < 0 {
		row = 0
	} else if row >= Rows {
		row = Rows - 1
	}
	if col < 0 {
		col = 0
	} else if col >= Columns {
		col = Columns - 1
	}
	if err := d.command(cmdSetDDRAM | (rowOffsets[row] + byte(col))); err != nil {
		return fmt.Errorf("lcd cursor: %w", err)
	}
	return nil
}

// WriteText writes s at the cursor. Characters outside the controller's
// ASCII range are written as '?'.
func (d *HD44780) WriteText(s string) error {
	for _, r := range s {
		b := byte('?')
		if r >= 0x20 && r < 0x7F {
			b = byte(r)
		}
		if err := d.data(b); err != nil {
			return fmt.Errorf("lcd write: %w", err)
		}
	}
	return nil
}

// WriteLargeDigits draws value as width three-column digits across both
// rows starting at col.
func (d *HD44780) WriteLargeDigits(value, col, width int, leadingZero bool) error {
	for i, n := range digits(value, width, leadingZero) {
		glyph := blankDigit
		if n >= 0 {
			glyph = bigDigits[n]
		}
		c := col + i*DigitWidth
		for row := 0; row < Rows; row++ {
			if err := d.SetCursor(c, row); err != nil {
				return err
			}
			for _, b := range glyph[row] {
				if err := d.data(b); err != nil {
					return fmt.Errorf("lcd large digit: %w", err)
				}
			}
		}
	}
	return nil
}

func (d *HD44780) command(b byte) error {
	return d.write(false, b)
}

func (d *HD44780) data(b byte) error {
	return d.write(true, b)
}

func (d *HD44780) write(rs bool, b byte) error {
	if err := d.nibble(rs, b>>4); err != nil {
		return err
	}
	if err := d.nibble(rs, b&0x0F); err != nil {
		return err
	}
	d.sleep(50 * time.Microsecond)
	return nil
}

// nibble presents four data bits and pulses E; the controller latches on
// the falling edge.
func (d *HD44780) nibble(rs bool, n byte) error {
	d.vals[0] = 0
	if rs {
		d.vals[0] = 1
	}
	for i := 0; i < 4; i++ {
		d.vals[2+i] = int(n>>i) & 1
	}

	d.vals[1] = 1
	if err := d.pins.SetValues(d.vals); err != nil {
		return err
	}
	d.sleep(time.Microsecond)
	d.vals[1] = 0
	return d.pins.SetValues(d.vals)
}
