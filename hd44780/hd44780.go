// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package hd44780 controls the Hitachi LCD display chipset HD-44780 over its
// 4-bit parallel interface.
//
// Bus owns the GPIO lines and implements the nibble protocol. HD44780 builds
// the command set on top of a Bus and implements display.TextDisplay.
//
// # Datasheet
//
// https://www.sparkfun.com/datasheets/LCD/HD44780.pdf
package hd44780

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
)

const (
	cmdClear        byte = 0x01
	cmdHome         byte = 0x02
	cmdEntryMode    byte = 0x04
	cmdDisplay      byte = 0x08
	cmdShift        byte = 0x10
	cmdFunctionSet  byte = 0x20
	cmdSetDDRAMAddr byte = 0x80

	entryIncrement byte = 0x02
	entryShift     byte = 0x01

	displayOn     byte = 0x04
	displayCursor byte = 0x02
	displayBlink  byte = 0x01

	shiftRight byte = 0x04

	functionTwoLines byte = 0x08
	function5x10     byte = 0x04

	modeCommand = false
	modeData    = true
)

const delayLongExec = 1600 * time.Microsecond

// Font is the character font selected by the function set instruction.
type Font uint8

const (
	Font5x8 Font = iota
	// Font5x10 is only available on single line displays.
	Font5x10
)

// Opts describes the panel connected to the bus.
type Opts struct {
	Rows int
	Cols int
	Font Font
	// Backlight is optional.
	Backlight display.DisplayBacklight
}

// HD44780 is the command set of the controller on top of a Bus.
//
// Implements periph.io/conn/x/display/TextDisplay and display.DisplayBacklight
type HD44780 struct {
	bus        *Bus
	backlight  display.DisplayBacklight
	rows       int
	cols       int
	font       Font
	on         bool
	cursor     bool
	blink      bool
	autoScroll bool
}

// NewHD44780 runs the initialization sequence on bus and returns the display
// cleared, on, with the cursor hidden.
func NewHD44780(bus *Bus, opts *Opts) (*HD44780, error) {
	if bus == nil || opts == nil {
		return nil, errors.New("hd44780: bus and opts are required")
	}
	if opts.Rows < 1 || opts.Rows > 4 || opts.Cols < 1 || opts.Cols > 40 {
		return nil, fmt.Errorf("hd44780: unsupported geometry %dx%d", opts.Rows, opts.Cols)
	}
	// 80 cells of display RAM: 4 rows fit only when two rows share a line.
	if opts.Rows > 2 && opts.Cols > 20 {
		return nil, fmt.Errorf("hd44780: unsupported geometry %dx%d, a single controller drives at most 4x20", opts.Rows, opts.Cols)
	}
	lcd := &HD44780{
		bus:       bus,
		backlight: opts.Backlight,
		rows:      opts.Rows,
		cols:      opts.Cols,
		on:        true,
	}
	if err := lcd.Init(opts.Rows, opts.Font); err != nil {
		return nil, err
	}
	return lcd, nil
}

// Init runs the 4-bit initialization sequence from the datasheet (figure 24)
// and configures the number of lines and the font. It leaves the display
// cleared, on, with the cursor hidden and the address incrementing.
func (lcd *HD44780) Init(lines int, font Font) error {
	lcd.font = font
	if err := lcd.bus.Reset(); err != nil {
		return err
	}

	fn := cmdFunctionSet
	if lines > 1 {
		fn |= functionTwoLines
	} else if font == Font5x10 {
		fn |= function5x10
	}
	lcd.on, lcd.cursor, lcd.blink, lcd.autoScroll = true, false, false, false
	for _, cmd := range []byte{fn, lcd.displayControl(), cmdClear, lcd.entryMode()} {
		if err := lcd.sendCommand(cmd); err != nil {
			return err
		}
	}
	if err := lcd.Backlight(0xff); err != nil && !errors.Is(err, display.ErrNotImplemented) {
		return err
	}
	return nil
}

// AutoScroll shifts the display instead of the cursor when characters are
// written.
func (lcd *HD44780) AutoScroll(enabled bool) error {
	lcd.autoScroll = enabled
	return lcd.sendCommand(lcd.entryMode())
}

// Clears the screen and moves the cursor to the first position.
func (lcd *HD44780) Clear() error {
	return lcd.sendCommand(cmdClear)
}

// Return the number of columns the display supports
func (lcd *HD44780) Cols() int {
	return lcd.cols
}

// Set the cursor mode. You can pass multiple arguments.
// Cursor(CursorOff, CursorUnderline)
func (lcd *HD44780) Cursor(modes ...display.CursorMode) error {
	cursor, blink := lcd.cursor, lcd.blink
	for _, mode := range modes {
		switch mode {
		case display.CursorOff:
			cursor, blink = false, false
		case display.CursorBlink, display.CursorBlock:
			blink = true
		case display.CursorUnderline:
			cursor = true
		default:
			return fmt.Errorf("hd44780: unexpected cursor: %d", mode)
		}
	}
	lcd.cursor, lcd.blink = cursor, blink
	return lcd.sendCommand(lcd.displayControl())
}

// Move the cursor home (MinRow(),MinCol())
func (lcd *HD44780) Home() error {
	return lcd.sendCommand(cmdHome)
}

// Return the min column position.
func (lcd *HD44780) MinCol() int {
	return 1
}

// Return the min row position.
func (lcd *HD44780) MinRow() int {
	return 1
}

// Move the cursor forward or backward.
func (lcd *HD44780) Move(dir display.CursorDirection) error {
	val := cmdShift
	switch dir {
	case display.Backward:
	case display.Forward:
		val |= shiftRight
	default:
		return fmt.Errorf("hd44780: %w", display.ErrNotImplemented)
	}
	return lcd.sendCommand(val)
}

// Move the cursor to arbitrary position. Positions start at 1.
func (lcd *HD44780) MoveTo(row, col int) error {
	if row < lcd.MinRow() || row > lcd.rows || col < lcd.MinCol() || col > lcd.cols {
		return fmt.Errorf("hd44780: MoveTo(%d,%d) value out of range", row, col)
	}
	return lcd.sendCommand(cmdSetDDRAMAddr | (rowOffset(row-1, lcd.cols) + byte(col-1)))
}

// Position moves the cursor to the zero based row and col.
func (lcd *HD44780) Position(row, col int) error {
	return lcd.MoveTo(row+1, col+1)
}

// Return the number of rows the display supports.
func (lcd *HD44780) Rows() int {
	return lcd.rows
}

// Return info about the display.
func (lcd *HD44780) String() string {
	return fmt.Sprintf("HD44780::%s - Rows: %d, Cols: %d", lcd.bus, lcd.rows, lcd.cols)
}

// Turn the display on / off
func (lcd *HD44780) Display(on bool) error {
	lcd.on = on
	return lcd.sendCommand(lcd.displayControl())
}

// SetDisplay sets the display, cursor and blink flags in one instruction.
func (lcd *HD44780) SetDisplay(on, cursor, blink bool) error {
	lcd.on, lcd.cursor, lcd.blink = on, cursor, blink
	return lcd.sendCommand(lcd.displayControl())
}

// Write sends raw character codes to the display at the cursor position.
func (lcd *HD44780) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if err = lcd.bus.Transfer(modeData, c); err != nil {
			return
		}
		n++
	}
	return
}

// WriteString encodes text for the A00 character ROM and writes it. The
// returned count is in runes.
func (lcd *HD44780) WriteString(text string) (int, error) {
	return lcd.Write(Encode(text))
}

// Halt clears the display, turns the backlight off, and turns the display off.
// Halt() is called for the bus lines.
func (lcd *HD44780) Halt() error {
	_ = lcd.Clear()
	_ = lcd.Display(false)
	if lcd.backlight != nil {
		_ = lcd.backlight.Backlight(0)
	}
	return lcd.bus.Halt()
}

// Turn the display's backlight on or off. A backlight must be supplied in
// Opts to use this.
func (lcd *HD44780) Backlight(intensity display.Intensity) error {
	if lcd.backlight == nil {
		return fmt.Errorf("hd44780: no backlight: %w", display.ErrNotImplemented)
	}
	return lcd.backlight.Backlight(intensity)
}

func (lcd *HD44780) displayControl() byte {
	val := cmdDisplay
	if lcd.on {
		val |= displayOn
	}
	if lcd.cursor {
		val |= displayCursor
	}
	if lcd.blink {
		val |= displayBlink
	}
	return val
}

func (lcd *HD44780) entryMode() byte {
	val := cmdEntryMode | entryIncrement
	if lcd.autoScroll {
		val |= entryShift
	}
	return val
}

func (lcd *HD44780) sendCommand(cmd byte) error {
	if err := lcd.bus.Transfer(modeCommand, cmd); err != nil {
		return err
	}
	if cmd == cmdClear || cmd == cmdHome {
		lcd.bus.Delay(delayLongExec)
	}
	return nil
}

// rowOffset returns the DDRAM address of the first cell of row. Rows 3 and 4
// continue rows 1 and 2.
func rowOffset(row, cols int) byte {
	return [4]byte{0x00, 0x40, byte(cols), 0x40 + byte(cols)}[row]
}

// PinBacklight is a monochrome backlight switched by a single GPIO pin.
type PinBacklight struct {
	pin gpio.PinOut
}

// NewBacklight returns a backlight that drives pin high when on.
func NewBacklight(pin gpio.PinOut) *PinBacklight {
	return &PinBacklight{pin: pin}
}

// Backlight turns the backlight on for any non-zero intensity.
func (bl *PinBacklight) Backlight(intensity display.Intensity) error {
	if err := bl.pin.Out(gpio.Level(intensity > 0)); err != nil {
		return &PinError{Pin: bl.pin.Name(), Err: err}
	}
	return nil
}

var _ display.TextDisplay = &HD44780{}
var _ display.DisplayBacklight = &HD44780{}
var _ display.DisplayBacklight = &PinBacklight{}
var _ conn.Resource = &HD44780{}
