// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	periphDisplay "periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/display/displaytest"

	"github.com/GermanBionicSystems/charlcd/lcdsim"
)

const (
	testRows = 4
	testCols = 20
)

func getLCD(t *testing.T, rows, cols int) (*HD44780, *lcdsim.Panel) {
	t.Helper()
	panel := lcdsim.NewPanel(rows, cols)
	bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), panel.RW(), &BusOpts{Sleep: panel.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	dev, err := NewHD44780(bus, &Opts{Rows: rows, Cols: cols, Backlight: NewBacklight(panel.BL())})
	if err != nil {
		t.Fatal(err)
	}
	return dev, panel
}

func TestBasic(t *testing.T) {
	display, panel := getLCD(t, testRows, testCols)

	s := display.String()
	t.Log(s)
	if len(s) == 0 {
		t.Error("display.String()")
	}
	if !panel.FourBit() {
		t.Error("controller not switched to 4-bit mode")
	}
	if on, cursor, blink := panel.Flags(); !on || cursor || blink {
		t.Errorf("flags after init: on=%t cursor=%t blink=%t", on, cursor, blink)
	}

	n, err := display.WriteString("1234567890")
	if err != nil {
		t.Error(err)
	}
	if n != 10 {
		t.Errorf("WriteString() = %d, want 10", n)
	}
	if err = display.MoveTo(2, 2); err != nil {
		t.Error(err)
	}
	if _, err = display.WriteString("2345678901"); err != nil {
		t.Error(err)
	}
	if err = display.Position(3, 15); err != nil {
		t.Error(err)
	}
	if _, err = display.WriteString("abcde"); err != nil {
		t.Error(err)
	}
	want := []string{
		"1234567890          ",
		" 2345678901         ",
		"                    ",
		"               abcde",
	}
	if diff := cmp.Diff(want, panel.Lines()); diff != "" {
		t.Errorf("panel (-want +got):\n%s", diff)
	}
	rows := display.Rows()
	if rows != testRows {
		t.Errorf("display.Rows() expected %d, received %d", testRows, rows)
	}
	cols := display.Cols()
	if cols != testCols {
		t.Errorf("display.Cols() expected %d, received %d", testCols, cols)
	}

	if err = display.Clear(); err != nil {
		t.Error(err)
	}
	if got := strings.Join(panel.Lines(), ""); strings.TrimSpace(got) != "" {
		t.Errorf("panel not cleared: %q", got)
	}
	if err = display.Halt(); err != nil {
		t.Error(err)
	}
	if on, _, _ := panel.Flags(); on {
		t.Error("display still on after Halt()")
	}
	if panel.Backlight() {
		t.Error("backlight still on after Halt()")
	}
}

func TestInterface(t *testing.T) {
	display, _ := getLCD(t, testRows, testCols)
	defer func() { _ = display.Halt() }()
	errs := displaytest.TestTextDisplay(display, false)
	for _, err := range errs {
		if !errors.Is(err, periphDisplay.ErrNotImplemented) {
			t.Error(err)
		}
	}
}

func TestMoveTo(t *testing.T) {
	display, panel := getLCD(t, 4, 16)
	for _, tc := range []struct {
		row, col int
		ok       bool
	}{
		{1, 1, true},
		{4, 16, true},
		{3, 1, true},
		{0, 1, false},
		{5, 1, false},
		{1, 0, false},
		{1, 17, false},
	} {
		err := display.MoveTo(tc.row, tc.col)
		if (err == nil) != tc.ok {
			t.Errorf("MoveTo(%d, %d) error = %v", tc.row, tc.col, err)
			continue
		}
		if !tc.ok {
			continue
		}
		if r, c := panel.Cursor(); r != tc.row-1 || c != tc.col-1 {
			t.Errorf("MoveTo(%d, %d) put the cursor at %d,%d", tc.row, tc.col, r+1, c+1)
		}
	}
}

func TestCursorAndDisplay(t *testing.T) {
	display, panel := getLCD(t, 2, 16)
	check := func(name string, on, cursor, blink bool) {
		t.Helper()
		gotOn, gotCursor, gotBlink := panel.Flags()
		if gotOn != on || gotCursor != cursor || gotBlink != blink {
			t.Errorf("%s: flags %t/%t/%t, want %t/%t/%t", name, gotOn, gotCursor, gotBlink, on, cursor, blink)
		}
	}
	if err := display.SetDisplay(true, true, true); err != nil {
		t.Fatal(err)
	}
	check("SetDisplay", true, true, true)
	if err := display.Cursor(periphDisplay.CursorOff); err != nil {
		t.Fatal(err)
	}
	check("CursorOff", true, false, false)
	if err := display.Cursor(periphDisplay.CursorUnderline, periphDisplay.CursorBlink); err != nil {
		t.Fatal(err)
	}
	check("CursorUnderline+Blink", true, true, true)
	if err := display.Display(false); err != nil {
		t.Fatal(err)
	}
	check("Display(false)", false, true, true)
	if err := display.Cursor(periphDisplay.CursorMode(99)); err == nil {
		t.Error("Cursor(99) succeeded")
	}
}

func TestMove(t *testing.T) {
	display, panel := getLCD(t, 2, 16)
	_ = display.MoveTo(1, 5)
	if err := display.Move(periphDisplay.Forward); err != nil {
		t.Fatal(err)
	}
	if _, c := panel.Cursor(); c != 5 {
		t.Errorf("col after Forward = %d, want 5", c)
	}
	if err := display.Move(periphDisplay.Backward); err != nil {
		t.Fatal(err)
	}
	if _, c := panel.Cursor(); c != 4 {
		t.Errorf("col after Backward = %d, want 4", c)
	}
	if err := display.Move(periphDisplay.Up); !errors.Is(err, periphDisplay.ErrNotImplemented) {
		t.Errorf("Move(Up) error = %v", err)
	}
}

func TestBacklights(t *testing.T) {
	display, panel := getLCD(t, 2, 16)
	t.Cleanup(func() {
		_ = display.Halt()
	})
	if !panel.Backlight() {
		t.Error("backlight off after init")
	}
	if err := display.Backlight(0); err != nil {
		t.Error(err)
	}
	if panel.Backlight() {
		t.Error("Backlight(0) left the backlight on")
	}
	if err := display.Backlight(0xff); err != nil {
		t.Error(err)
	}
	if !panel.Backlight() {
		t.Error("Backlight(0xff) left the backlight off")
	}

	bare := lcdsim.NewPanel(2, 16)
	bus, _ := NewBus(bare.Data(), bare.RS(), bare.EN(), nil, &BusOpts{Sleep: bare.Sleep})
	noBL, err := NewHD44780(bus, &Opts{Rows: 2, Cols: 16})
	if err != nil {
		t.Fatal(err)
	}
	if err := noBL.Backlight(0xff); !errors.Is(err, periphDisplay.ErrNotImplemented) {
		t.Errorf("Backlight() without a backlight: %v", err)
	}
}

func TestInitCommands(t *testing.T) {
	_, panel := getLCD(t, 4, 20)
	want := []byte{0x30, 0x30, 0x30, 0x20, 0x28, 0x0c, 0x01, 0x06}
	if diff := cmp.Diff(want, panel.Commands()); diff != "" {
		t.Errorf("init commands (-want +got):\n%s", diff)
	}

	// Init again from 4-bit mode resynchronizes the controller.
	display, panel := getLCD(t, 1, 16)
	if err := display.Init(1, Font5x10); err != nil {
		t.Fatal(err)
	}
	cmds := panel.Commands()
	if got := cmds[len(cmds)-4]; got != 0x24 {
		t.Errorf("function set = %#x, want 0x24", got)
	}
	_, _ = display.WriteString("ok")
	if got := panel.Line(0); got != "ok              " {
		t.Errorf("row after re-init = %q", got)
	}
}

func TestNewErrors(t *testing.T) {
	panel := lcdsim.NewPanel(2, 16)
	if _, err := NewBus(nil, panel.RS(), panel.EN(), nil, nil); err == nil {
		t.Error("NewBus without data lines succeeded")
	}
	if _, err := NewBus(panel.Data(), nil, panel.EN(), nil, nil); err == nil {
		t.Error("NewBus without RS succeeded")
	}
	bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), nil, &BusOpts{Sleep: panel.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewHD44780(bus, nil); err == nil {
		t.Error("NewHD44780 without opts succeeded")
	}
	if _, err := NewHD44780(bus, &Opts{Rows: 5, Cols: 20}); err == nil {
		t.Error("NewHD44780 with 5 rows succeeded")
	}
	// 4x40 needs two controllers.
	if _, err := NewHD44780(bus, &Opts{Rows: 4, Cols: 40}); err == nil {
		t.Error("NewHD44780 with 4x40 succeeded")
	}
	if _, err := NewHD44780(bus, &Opts{Rows: 2, Cols: 40}); err != nil {
		t.Errorf("NewHD44780 with 2x40: %v", err)
	}
}

func TestTransferSequence(t *testing.T) {
	panel := lcdsim.NewPanel(2, 16)
	opts := &BusOpts{
		PulseWidth: 2 * time.Microsecond,
		Settle:     3 * time.Microsecond,
		Exec:       40 * time.Microsecond,
		Sleep:      panel.Sleep,
	}
	bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), panel.RW(), opts)
	if err != nil {
		t.Fatal(err)
	}
	panel.Record(true)
	if err := bus.Transfer(true, 0xa5); err != nil {
		t.Fatal(err)
	}
	nibble := func(v uint8) []lcdsim.Event {
		return []lcdsim.Event{
			{Signal: lcdsim.SignalRS, Value: 1},
			{Signal: lcdsim.SignalEN, Value: 0},
			{Signal: lcdsim.SignalData, Value: v},
			{Signal: lcdsim.SignalRS, Value: 1},
			{Signal: lcdsim.SignalEN, Value: 1},
			{Signal: lcdsim.SignalDelay, Delay: 2 * time.Microsecond},
			{Signal: lcdsim.SignalRS, Value: 1},
			{Signal: lcdsim.SignalEN, Value: 0},
			{Signal: lcdsim.SignalDelay, Delay: 3 * time.Microsecond},
		}
	}
	want := append(nibble(0xa), nibble(0x5)...)
	want = append(want, lcdsim.Event{Signal: lcdsim.SignalDelay, Delay: 40 * time.Microsecond})
	if diff := cmp.Diff(want, panel.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

// strobeEvents is the trace of one nibble written with the default timing.
func strobeEvents(rs uint8, v uint8) []lcdsim.Event {
	return []lcdsim.Event{
		{Signal: lcdsim.SignalRS, Value: rs},
		{Signal: lcdsim.SignalEN, Value: 0},
		{Signal: lcdsim.SignalData, Value: v},
		{Signal: lcdsim.SignalRS, Value: rs},
		{Signal: lcdsim.SignalEN, Value: 1},
		{Signal: lcdsim.SignalDelay, Delay: DefaultBusOpts.PulseWidth},
		{Signal: lcdsim.SignalRS, Value: rs},
		{Signal: lcdsim.SignalEN, Value: 0},
		{Signal: lcdsim.SignalDelay, Delay: DefaultBusOpts.Settle},
	}
}

func resetEvents() []lcdsim.Event {
	want := []lcdsim.Event{
		{Signal: lcdsim.SignalRS, Value: 0},
		{Signal: lcdsim.SignalEN, Value: 0},
		{Signal: lcdsim.SignalDelay, Delay: 40 * time.Millisecond},
	}
	want = append(want, strobeEvents(0, 3)...)
	want = append(want, lcdsim.Event{Signal: lcdsim.SignalDelay, Delay: 4100 * time.Microsecond})
	want = append(want, strobeEvents(0, 3)...)
	want = append(want, lcdsim.Event{Signal: lcdsim.SignalDelay, Delay: 100 * time.Microsecond})
	want = append(want, strobeEvents(0, 3)...)
	return append(want, strobeEvents(0, 2)...)
}

func TestReset(t *testing.T) {
	panel := lcdsim.NewPanel(2, 16)
	bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), panel.RW(), &BusOpts{Sleep: panel.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	panel.Record(true)
	if err := bus.Reset(); err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(resetEvents(), panel.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if !panel.FourBit() {
		t.Error("controller not in 4-bit mode after Reset()")
	}
}

func TestResetIsNotInterleaved(t *testing.T) {
	panel := lcdsim.NewPanel(2, 16)
	var bus *Bus
	done := make(chan error, 1)
	started := false
	sleep := func(d time.Duration) {
		panel.Sleep(d)
		if d == 40*time.Millisecond && !started {
			started = true
			// The transfer has to wait for the end of the reset.
			go func() { done <- bus.Transfer(true, 'x') }()
			time.Sleep(10 * time.Millisecond)
		}
	}
	bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), panel.RW(), &BusOpts{Sleep: sleep})
	if err != nil {
		t.Fatal(err)
	}
	panel.Record(true)
	if err := bus.Reset(); err != nil {
		t.Fatal(err)
	}
	if err := <-done; err != nil {
		t.Fatal(err)
	}
	want := resetEvents()
	got := panel.Events()
	if len(got) < len(want) {
		t.Fatalf("%d events, want at least %d", len(got), len(want))
	}
	if diff := cmp.Diff(want, got[:len(want)]); diff != "" {
		t.Errorf("reset was interleaved (-want +got):\n%s", diff)
	}
}

func TestPrimitives(t *testing.T) {
	panel := lcdsim.NewPanel(2, 16)
	bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), panel.RW(), &BusOpts{Sleep: panel.Sleep})
	if err != nil {
		t.Fatal(err)
	}
	if rs, en := bus.Levels(); !bool(rs) || bool(en) {
		t.Errorf("idle levels RS=%s EN=%s", rs, en)
	}
	panel.Record(true)
	if err := bus.SetControl(false, true); err != nil {
		t.Fatal(err)
	}
	if err := bus.WriteNibble(0x3c); err != nil {
		t.Fatal(err)
	}
	want := []lcdsim.Event{
		{Signal: lcdsim.SignalRS, Value: 0},
		{Signal: lcdsim.SignalEN, Value: 1},
		{Signal: lcdsim.SignalData, Value: 0xc},
	}
	if diff := cmp.Diff(want, panel.Events()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
	if err := bus.Halt(); err != nil {
		t.Error(err)
	}
	if _, en := bus.Levels(); bool(en) {
		t.Error("EN high after Halt()")
	}
}

func TestPinErrors(t *testing.T) {
	errDevice := errors.New("line busy")
	for _, tc := range []struct {
		after int
		pin   string
	}{
		{0, "RS"},
		{1, "EN"},
		{2, "D4-D7"},
		{7, "RS"},
	} {
		panel := lcdsim.NewPanel(2, 16)
		bus, err := NewBus(panel.Data(), panel.RS(), panel.EN(), panel.RW(), &BusOpts{Sleep: panel.Sleep})
		if err != nil {
			t.Fatal(err)
		}
		panel.FailAfter(tc.after, errDevice)
		err = bus.Transfer(true, 'x')
		if !errors.Is(err, ErrPinIO) {
			t.Errorf("after %d: error %v does not match ErrPinIO", tc.after, err)
		}
		if !errors.Is(err, errDevice) {
			t.Errorf("after %d: error %v does not wrap the transport error", tc.after, err)
		}
		var pe *PinError
		if !errors.As(err, &pe) || pe.Pin != tc.pin {
			t.Errorf("after %d: error %v, want a PinError on %s", tc.after, err, tc.pin)
		}
	}
}

func TestWriteStopsOnError(t *testing.T) {
	display, panel := getLCD(t, 2, 16)
	errDevice := errors.New("line busy")
	// Each byte is 14 line writes: 7 per nibble.
	panel.FailAfter(14*3, errDevice)
	n, err := display.WriteString("abcdef")
	if !errors.Is(err, ErrPinIO) {
		t.Errorf("WriteString() error = %v", err)
	}
	if n != 3 {
		t.Errorf("WriteString() = %d, want 3", n)
	}
	panel.FailAfter(-1, nil)
	if got := panel.Line(0); got != "abc             " {
		t.Errorf("row 0 = %q", got)
	}
}

func TestConcurrentTransfers(t *testing.T) {
	display, panel := getLCD(t, 2, 40)
	var wg sync.WaitGroup
	for _, c := range []byte{'A', 'r', '3', '$'} {
		wg.Add(1)
		go func(c byte) {
			defer wg.Done()
			for range 20 {
				if _, err := display.Write([]byte{c}); err != nil {
					t.Error(err)
					return
				}
			}
		}(c)
	}
	wg.Wait()
	count := 0
	for _, line := range panel.Lines() {
		for _, r := range line {
			switch r {
			case 'A', 'r', '3', '$':
				count++
			case ' ':
			default:
				t.Errorf("corrupted character %q", r)
			}
		}
	}
	if count != 80 {
		t.Errorf("%d characters on the panel, want 80", count)
	}
}

func TestEncode(t *testing.T) {
	got := Encode("°C ｱ€\x01~")
	want := []byte{0xdf, 'C', ' ', 0xb1, '?', 0x01, '?'}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Encode() (-want +got):\n%s", diff)
	}
}

func TestRowOffset(t *testing.T) {
	for _, tc := range []struct {
		cols int
		want [4]byte
	}{
		{16, [4]byte{0x00, 0x40, 0x10, 0x50}},
		{20, [4]byte{0x00, 0x40, 0x14, 0x54}},
	} {
		var got [4]byte
		for row := range got {
			got[row] = rowOffset(row, tc.cols)
		}
		if got != tc.want {
			t.Errorf("%d cols: offsets %#v, want %#v", tc.cols, got, tc.want)
		}
	}
}
