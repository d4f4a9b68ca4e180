// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"bytes"
	"fmt"
	"image/color"
	"io"
	"strings"

	"github.com/maruel/ansi256"
	"github.com/mattn/go-colorable"
)

// Opts represents the options available for the console preview.
type Opts struct {
	// W defaults to a colorable stdout.
	W       io.Writer
	Palette *ansi256.Palette
	// Backlight is the frame color while the backlight line is high.
	Backlight color.Color

	_ struct{}
}

// Terminal draws a Panel on a console using ANSI color codes. The frame
// around the text shows the backlight color.
type Terminal struct {
	w       io.Writer
	panel   *Panel
	palette ansi256.Palette
	lit     color.NRGBA
	drawn   bool

	buf bytes.Buffer
}

// NewTerminal returns a Terminal showing p.
func NewTerminal(p *Panel, opts *Opts) *Terminal {
	if opts == nil {
		opts = &Opts{}
	}
	pal := opts.Palette
	if pal == nil {
		pal = ansi256.Default
	}
	w := opts.W
	if w == nil {
		w = colorable.NewColorableStdout()
	}
	lit := color.NRGBA{0x30, 0x90, 0xff, 0xff}
	if opts.Backlight != nil {
		lit = color.NRGBAModel.Convert(opts.Backlight).(color.NRGBA)
	}
	return &Terminal{w: w, panel: p, palette: *pal, lit: lit}
}

func (t *Terminal) String() string {
	return fmt.Sprintf("Terminal(%s)", t.panel)
}

// Refresh redraws the panel in place.
func (t *Terminal) Refresh() error {
	// This code is designed to minimize the amount of memory allocated per call.
	t.buf.Reset()
	if t.drawn {
		// Move back to the top left corner of the previous frame.
		fmt.Fprintf(&t.buf, "\033[%dA\r", t.panel.Rows()+2)
	}
	frame := color.NRGBA{0x20, 0x20, 0x20, 0xff}
	if t.panel.Backlight() {
		frame = t.lit
	}
	block := t.palette.Block(frame)
	border := strings.Repeat(block, t.panel.Cols()+2)
	on, _, _ := t.panel.Flags()

	_, _ = t.buf.WriteString("\033[0m")
	_, _ = t.buf.WriteString(border)
	_, _ = t.buf.WriteString("\033[0m\n")
	for _, line := range t.panel.Lines() {
		if !on {
			line = strings.Repeat(" ", t.panel.Cols())
		}
		_, _ = t.buf.WriteString(block)
		_, _ = t.buf.WriteString("\033[0m")
		_, _ = t.buf.WriteString(line)
		_, _ = t.buf.WriteString(block)
		_, _ = t.buf.WriteString("\033[0m\n")
	}
	_, _ = t.buf.WriteString(border)
	_, _ = t.buf.WriteString("\033[0m\n")
	_, err := t.buf.WriteTo(t.w)
	t.drawn = true
	return err
}

// Halt implements conn.Resource.
//
// It resets the console attributes so the terminal is not left colored.
func (t *Terminal) Halt() error {
	_, err := t.w.Write([]byte("\033[0m"))
	return err
}
