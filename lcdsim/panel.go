// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package lcdsim implements a virtual HD44780 character display wired to
// virtual GPIO lines.
//
// Panel decodes the traffic on its RS, EN, RW and D4-D7 lines the way the
// controller does and keeps the resulting display RAM, so a driver can be
// tested or previewed without hardware. Terminal draws a Panel on the console
// and Snapshot renders it to an image.
package lcdsim

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/pin"
)

// Signal identifies what changed in an Event.
type Signal uint8

const (
	SignalRS Signal = iota
	SignalEN
	SignalRW
	SignalData
	SignalBacklight
	// SignalDelay is a call to Panel.Sleep.
	SignalDelay
)

func (s Signal) String() string {
	switch s {
	case SignalRS:
		return "RS"
	case SignalEN:
		return "EN"
	case SignalRW:
		return "RW"
	case SignalData:
		return "D4-D7"
	case SignalBacklight:
		return "BL"
	case SignalDelay:
		return "delay"
	default:
		return fmt.Sprintf("Signal(%d)", uint8(s))
	}
}

// Event is one recorded line change or delay.
type Event struct {
	Signal Signal
	// Value is the level (0 or 1) of a control line or the nibble on D4-D7.
	Value uint8
	Delay time.Duration
}

func (e Event) String() string {
	if e.Signal == SignalDelay {
		return fmt.Sprintf("delay(%s)", e.Delay)
	}
	return fmt.Sprintf("%s=%d", e.Signal, e.Value)
}

// Panel is a virtual HD44780. Its zero value is not usable, use NewPanel.
type Panel struct {
	mu   sync.Mutex
	rows int
	cols int

	rs, en, rw, bl gpio.Level
	data           uint8

	fourBit   bool
	pending   bool
	high      uint8
	addr      uint8
	cgram     bool
	twoLines  bool
	increment bool
	on        bool
	cursor    bool
	blink     bool
	ddram     [0x80]byte
	commands  []byte

	record    bool
	events    []Event
	ops       int
	failAfter int
	failErr   error

	rsPin, enPin, rwPin, blPin *Pin
	dataGroup                  *group
}

// NewPanel returns a powered up panel of rows x cols cells. Like the real
// controller it starts in 8-bit mode with the display off.
//
// The geometry is limited to what one controller addresses: 1 to 4 rows, 40
// columns on 1 or 2 rows and 20 columns on 3 or 4 rows.
func NewPanel(rows, cols int) *Panel {
	rows = min(max(rows, 1), 4)
	maxCols := 40
	if rows > 2 {
		maxCols = 20
	}
	cols = min(max(cols, 1), maxCols)
	p := &Panel{rows: rows, cols: cols, increment: true, failAfter: -1}
	for i := range p.ddram {
		p.ddram[i] = ' '
	}
	p.rsPin = &Pin{panel: p, name: "RS", number: 0, signal: SignalRS}
	p.rwPin = &Pin{panel: p, name: "RW", number: 1, signal: SignalRW}
	p.enPin = &Pin{panel: p, name: "EN", number: 2, signal: SignalEN}
	p.blPin = &Pin{panel: p, name: "BL", number: 3, signal: SignalBacklight}
	dp := make([]*Pin, 4)
	for i := range dp {
		dp[i] = &Pin{panel: p, name: fmt.Sprintf("D%d", i+4), number: i + 4, signal: SignalData}
	}
	p.dataGroup = &group{panel: p, pins: dp}
	return p
}

// RS returns the register select line.
func (p *Panel) RS() gpio.PinOut { return p.rsPin }

// EN returns the enable line.
func (p *Panel) EN() gpio.PinOut { return p.enPin }

// RW returns the read/write line.
func (p *Panel) RW() gpio.PinOut { return p.rwPin }

// BL returns the backlight line.
func (p *Panel) BL() gpio.PinOut { return p.blPin }

// Data returns D4-D7 as a group, D4 being bit 0.
func (p *Panel) Data() gpio.Group { return p.dataGroup }

// Rows returns the number of rows.
func (p *Panel) Rows() int { return p.rows }

// Cols returns the number of columns.
func (p *Panel) Cols() int { return p.cols }

// Sleep records a delay without sleeping. Pass it as hd44780.BusOpts.Sleep.
func (p *Panel) Sleep(d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.log(Event{Signal: SignalDelay, Delay: d})
}

// Record clears the event log and turns recording on or off.
func (p *Panel) Record(on bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.record = on
	p.events = nil
}

// Events returns a copy of the recorded events.
func (p *Panel) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

// Commands returns the instructions executed so far.
func (p *Panel) Commands() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]byte(nil), p.commands...)
}

// FailAfter makes every line write fail with err once n more writes have
// succeeded. A negative n clears the failure.
func (p *Panel) FailAfter(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = 0
	p.failAfter = n
	p.failErr = err
}

// Line returns the text shown on row, starting at 0.
func (p *Panel) Line(row int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.line(row)
}

// Lines returns the text of every row.
func (p *Panel) Lines() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, p.rows)
	for i := range out {
		out[i] = p.line(i)
	}
	return out
}

// Cursor returns the zero based row and column of the address counter, or
// -1, -1 when it points outside the visible area.
func (p *Panel) Cursor() (row, col int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for r := range p.rows {
		off := int(rowOffset(r, p.cols))
		if a := int(p.addr); a >= off && a < off+p.cols {
			return r, a - off
		}
	}
	return -1, -1
}

// Flags returns the display, cursor and blink flags.
func (p *Panel) Flags() (on, cursor, blink bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.on, p.cursor, p.blink
}

// FourBit reports whether the controller is in 4-bit interface mode.
func (p *Panel) FourBit() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fourBit
}

// Backlight reports the level of the backlight line.
func (p *Panel) Backlight() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return bool(p.bl)
}

func (p *Panel) String() string {
	return fmt.Sprintf("lcdsim.Panel{%dx%d}", p.rows, p.cols)
}

func (p *Panel) line(row int) string {
	if row < 0 || row >= p.rows {
		return ""
	}
	var sb strings.Builder
	off := int(rowOffset(row, p.cols))
	for _, c := range p.ddram[off : off+p.cols] {
		sb.WriteRune(decode(c))
	}
	return sb.String()
}

// drive is called for every line write.
func (p *Panel) drive(s Signal, value, mask uint8) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil && p.failAfter >= 0 {
		if p.ops >= p.failAfter {
			return p.failErr
		}
		p.ops++
	}
	l := gpio.Level(value != 0)
	switch s {
	case SignalRS:
		p.rs = l
	case SignalRW:
		p.rw = l
	case SignalBacklight:
		p.bl = l
	case SignalData:
		p.data = (p.data &^ mask) | (value & mask)
		p.log(Event{Signal: s, Value: p.data})
		return nil
	case SignalEN:
		falling := p.en == gpio.High && l == gpio.Low
		p.en = l
		if falling && p.rw == gpio.Low {
			p.latch()
		}
	}
	p.log(Event{Signal: s, Value: value & 1})
	return nil
}

func (p *Panel) log(e Event) {
	if p.record {
		p.events = append(p.events, e)
	}
}

// latch takes D4-D7 on the falling edge of EN.
func (p *Panel) latch() {
	nibble := p.data & 0x0f
	if !p.fourBit {
		// In 8-bit mode D0-D3 are not connected and read as 0.
		p.execute(bool(p.rs), nibble<<4)
		return
	}
	if !p.pending {
		p.high = nibble
		p.pending = true
		return
	}
	p.pending = false
	p.execute(bool(p.rs), p.high<<4|nibble)
}

func (p *Panel) execute(data bool, b byte) {
	if data {
		if p.cgram {
			return
		}
		p.ddram[p.addr&0x7f] = b
		p.step(p.increment)
		return
	}
	p.commands = append(p.commands, b)
	switch {
	case b&0x80 != 0:
		p.cgram = false
		p.addr = b & 0x7f
	case b&0x40 != 0:
		p.cgram = true
	case b&0x20 != 0:
		p.twoLines = b&0x08 != 0
		p.fourBit = b&0x10 == 0
		p.pending = false
	case b&0x10 != 0:
		// Display shifts are not simulated, cursor shifts are.
		if b&0x08 == 0 {
			p.step(b&0x04 != 0)
		}
	case b&0x08 != 0:
		p.on = b&0x04 != 0
		p.cursor = b&0x02 != 0
		p.blink = b&0x01 != 0
	case b&0x04 != 0:
		p.increment = b&0x02 != 0
	case b&0x02 != 0:
		p.cgram = false
		p.addr = 0
	case b&0x01 != 0:
		for i := range p.ddram {
			p.ddram[i] = ' '
		}
		p.cgram = false
		p.addr = 0
		p.increment = true
	}
}

// step moves the address counter, wrapping like the controller does.
func (p *Panel) step(forward bool) {
	if !p.twoLines {
		if forward {
			p.addr = (p.addr + 1) % 0x50
		} else {
			p.addr = (p.addr + 0x50 - 1) % 0x50
		}
		return
	}
	switch {
	case forward && p.addr == 0x27:
		p.addr = 0x40
	case forward && p.addr >= 0x67:
		p.addr = 0x00
	case forward:
		p.addr++
	case p.addr == 0x40:
		p.addr = 0x27
	case p.addr == 0x00:
		p.addr = 0x67
	default:
		p.addr--
	}
}

func rowOffset(row, cols int) byte {
	return [4]byte{0x00, 0x40, byte(cols), 0x40 + byte(cols)}[row]
}

// decode maps a character code back to a printable rune.
func decode(c byte) rune {
	switch {
	case c >= 0x20 && c <= 0x7d && c != 0x5c:
		return rune(c)
	case c == 0x5c:
		return '¥'
	case c == 0xdf:
		return '°'
	case c >= 0xa1 && c <= 0xdf:
		return rune(c) - 0xa1 + 0xff61
	default:
		return '?'
	}
}

// Pin is one virtual output line of a Panel.
type Pin struct {
	panel  *Panel
	name   string
	number int
	signal Signal
}

// Halt implements conn.Resource.
func (pin *Pin) Halt() error {
	return nil
}

// Name returns the name of the line.
func (pin *Pin) Name() string {
	return pin.name
}

// Number returns the line number.
func (pin *Pin) Number() int {
	return pin.number
}

// Deprecated: returns "Out"
func (pin *Pin) Function() string {
	return "Out"
}

// Out drives the line. Out on a data line only changes that bit.
func (pin *Pin) Out(l gpio.Level) error {
	if pin.signal != SignalData {
		return pin.panel.drive(pin.signal, boolToBit(l), 1)
	}
	bit := uint8(1) << (pin.number - 4)
	v := uint8(0)
	if l {
		v = bit
	}
	return pin.panel.drive(SignalData, v, bit)
}

// Not implemented.
func (pin *Pin) PWM(duty gpio.Duty, f physic.Frequency) error {
	return fmt.Errorf("lcdsim: PWM not supported on %s", pin.name)
}

func (pin *Pin) String() string {
	return pin.name
}

func boolToBit(l gpio.Level) uint8 {
	if l {
		return 1
	}
	return 0
}

// group is D4-D7 as a gpio.Group.
type group struct {
	panel *Panel
	pins  []*Pin
}

func (g *group) Pins() []pin.Pin {
	out := make([]pin.Pin, len(g.pins))
	for ix, p := range g.pins {
		out[ix] = p
	}
	return out
}

func (g *group) ByOffset(offset int) pin.Pin {
	if offset < 0 || offset >= len(g.pins) {
		return nil
	}
	return g.pins[offset]
}

func (g *group) ByName(name string) pin.Pin {
	for _, p := range g.pins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (g *group) ByNumber(number int) pin.Pin {
	for _, p := range g.pins {
		if p.Number() == number {
			return p
		}
	}
	return nil
}

// Out writes value to the lines selected by mask. A zero mask selects all
// four lines.
func (g *group) Out(value, mask gpio.GPIOValue) error {
	if mask == 0 {
		mask = 0x0f
	}
	return g.panel.drive(SignalData, uint8(value&0x0f), uint8(mask&0x0f))
}

func (g *group) Read(mask gpio.GPIOValue) (gpio.GPIOValue, error) {
	return 0, gpio.ErrGroupFeatureNotImplemented
}

func (g *group) WaitForEdge(timeout time.Duration) (number int, edge gpio.Edge, err error) {
	return -1, gpio.NoEdge, gpio.ErrGroupFeatureNotImplemented
}

func (g *group) Halt() error {
	return nil
}

func (g *group) String() string {
	return "lcdsim D4-D7"
}

var _ gpio.PinOut = &Pin{}
var _ gpio.Group = &group{}
