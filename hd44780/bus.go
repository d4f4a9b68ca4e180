// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
)

// ErrPinIO is matched by every error caused by a failed pin write.
var ErrPinIO = errors.New("hd44780: pin i/o error")

// PinError reports a transport failure while driving one of the bus lines.
type PinError struct {
	// Pin is the bus line that failed: "RS", "EN", "RW" or "D4-D7".
	Pin string
	Err error
}

func (e *PinError) Error() string {
	return fmt.Sprintf("hd44780: setting %s: %v", e.Pin, e.Err)
}

func (e *PinError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrPinIO) true for any *PinError.
func (e *PinError) Is(target error) bool {
	return target == ErrPinIO
}

// BusOpts holds the timing of the bus. Zero fields take the defaults from
// DefaultBusOpts.
type BusOpts struct {
	// PulseWidth is how long EN is held high. The datasheet asks for 450ns.
	PulseWidth time.Duration
	// Settle is the wait after EN goes low before the next nibble.
	Settle time.Duration
	// Exec is the wait after a complete byte. Most instructions take 37µs.
	Exec time.Duration
	// Sleep is used for every delay. It defaults to time.Sleep.
	Sleep func(time.Duration)
}

const (
	delayPowerOn = 40 * time.Millisecond
	delayWait    = 4100 * time.Microsecond
	delayReset   = 100 * time.Microsecond
)

// DefaultBusOpts is the timing used when NewBus is given nil opts.
var DefaultBusOpts = BusOpts{
	PulseWidth: 1 * time.Microsecond,
	Settle:     1 * time.Microsecond,
	Exec:       50 * time.Microsecond,
	Sleep:      time.Sleep,
}

// Bus drives the HD44780 4-bit parallel interface: the RS, EN and RW control
// lines and the D4-D7 data lines.
//
// The Bus owns its lines for its whole lifetime. A single mutex covers every
// method so a nibble or a byte is never interleaved with another transfer.
type Bus struct {
	mu    sync.Mutex
	data  gpio.Group
	rs    gpio.PinOut
	en    gpio.PinOut
	rw    gpio.PinOut
	opts  BusOpts
	rsLvl gpio.Level
	enLvl gpio.Level
}

// NewBus takes the D4-D7 lines as the first four pins of data, and the RS,
// EN and RW control pins. rw may be nil when R/W is tied to ground.
//
// The lines are put in their idle state: RW low, EN low, RS high and the
// data lines low.
func NewBus(data gpio.Group, rs, en, rw gpio.PinOut, opts *BusOpts) (*Bus, error) {
	if data == nil || rs == nil || en == nil {
		return nil, errors.New("hd44780: data, rs and en lines are required")
	}
	if len(data.Pins()) < 4 {
		return nil, fmt.Errorf("hd44780: need 4 data lines, got %d", len(data.Pins()))
	}
	b := &Bus{data: data, rs: rs, en: en, rw: rw, opts: DefaultBusOpts}
	if opts != nil {
		if opts.PulseWidth > 0 {
			b.opts.PulseWidth = opts.PulseWidth
		}
		if opts.Settle > 0 {
			b.opts.Settle = opts.Settle
		}
		if opts.Exec > 0 {
			b.opts.Exec = opts.Exec
		}
		if opts.Sleep != nil {
			b.opts.Sleep = opts.Sleep
		}
	}
	if rw != nil {
		if err := rw.Out(gpio.Low); err != nil {
			return nil, &PinError{Pin: "RW", Err: err}
		}
	}
	if err := b.setControl(true, false); err != nil {
		return nil, err
	}
	if err := b.writeNibble(0); err != nil {
		return nil, err
	}
	return b, nil
}

// SetControl drives RS (true selects data, false commands) and EN. RS is
// always set before EN.
func (b *Bus) SetControl(rs, en bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.setControl(rs, en)
}

// WriteNibble drives D4-D7 to the low 4 bits of value.
func (b *Bus) WriteNibble(value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.writeNibble(value)
}

// Strobe latches one nibble: RS and EN low, data, EN high for PulseWidth,
// EN low, then Settle.
func (b *Bus) Strobe(rs bool, nibble byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.strobe(rs, nibble)
}

// Transfer sends a byte as two strobes, high nibble first, then waits for the
// controller to execute it. rs selects the data register.
func (b *Bus) Transfer(rs bool, value byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.strobe(rs, value>>4); err != nil {
		return err
	}
	if err := b.strobe(rs, value&0x0f); err != nil {
		return err
	}
	b.opts.Sleep(b.opts.Exec)
	return nil
}

// Reset runs the datasheet initialization by instruction for the 4-bit
// interface (figure 24): wait for power to settle, strobe "8-bit interface"
// three times, then "4-bit interface". It works whatever mode the controller
// was left in. The bus stays locked for the whole sequence.
func (b *Bus) Reset() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.setControl(false, false); err != nil {
		return err
	}
	b.opts.Sleep(delayPowerOn)
	for _, step := range []struct {
		nibble byte
		wait   time.Duration
	}{
		{0x03, delayWait},
		{0x03, delayReset},
		{0x03, 0},
		{0x02, 0},
	} {
		if err := b.strobe(false, step.nibble); err != nil {
			return err
		}
		if step.wait > 0 {
			b.opts.Sleep(step.wait)
		}
	}
	return nil
}

// Delay blocks for d using the bus clock. Instructions such as Clear need
// more than the default execution time.
func (b *Bus) Delay(d time.Duration) {
	if d > 0 {
		b.opts.Sleep(d)
	}
}

// Levels returns the last levels written to RS and EN.
func (b *Bus) Levels() (rs, en gpio.Level) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rsLvl, b.enLvl
}

// Halt drops EN and halts the data lines.
func (b *Bus) Halt() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.en.Out(gpio.Low)
	if err != nil {
		err = &PinError{Pin: "EN", Err: err}
	}
	b.enLvl = gpio.Low
	if herr := b.data.Halt(); err == nil {
		err = herr
	}
	return err
}

func (b *Bus) String() string {
	return fmt.Sprintf("hd44780.Bus{RS: %s, EN: %s, D4-D7: %s}", b.rs, b.en, b.data)
}

func (b *Bus) strobe(rs bool, nibble byte) error {
	if err := b.setControl(rs, false); err != nil {
		return err
	}
	if err := b.writeNibble(nibble); err != nil {
		return err
	}
	if err := b.setControl(rs, true); err != nil {
		return err
	}
	b.opts.Sleep(b.opts.PulseWidth)
	if err := b.setControl(rs, false); err != nil {
		return err
	}
	b.opts.Sleep(b.opts.Settle)
	return nil
}

func (b *Bus) setControl(rs, en bool) error {
	if err := b.rs.Out(gpio.Level(rs)); err != nil {
		return &PinError{Pin: "RS", Err: err}
	}
	b.rsLvl = gpio.Level(rs)
	if err := b.en.Out(gpio.Level(en)); err != nil {
		return &PinError{Pin: "EN", Err: err}
	}
	b.enLvl = gpio.Level(en)
	return nil
}

func (b *Bus) writeNibble(value byte) error {
	if err := b.data.Out(gpio.GPIOValue(value&0x0f), 0x0f); err != nil {
		return &PinError{Pin: "D4-D7", Err: err}
	}
	return nil
}

var _ conn.Resource = &Bus{}
