// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charbuf keeps the four rows of a character display and streams
// them to the display on every refresh.
//
// Each row has its own layout.Layout. Refresh writes exactly Width
// characters per row, rows top to bottom and characters left to right, then
// advances the animation of every row by one tick.
package charbuf

import (
	"errors"
	"fmt"
	"strings"

	"github.com/GermanBionicSystems/charlcd/layout"
)

// Rows is the number of rows of a Buffer.
const Rows = 4

// Sink receives the text. Positions start at 1, as in
// periph.io/x/conn/v3/display.TextDisplay, which satisfies Sink.
type Sink interface {
	MoveTo(row, col int) error
	WriteString(text string) (int, error)
}

// Cursor is a zero based position on the display.
type Cursor struct {
	Row int
	Col int
}

// LineConfig selects the layout of one row.
type LineConfig struct {
	Wrap     layout.WrapPolicy
	Behavior layout.Behavior
}

// Buffer owns four rows and the cursor.
//
// Buffer is not safe for concurrent use. It belongs to the refresh loop.
type Buffer struct {
	sink   Sink
	width  int
	lines  [Rows]*layout.Line
	cursor Cursor
}

// New returns a Buffer of width columns with one LineConfig per row. It
// fails with layout.ErrInvalidLayoutCombination before touching the sink
// if any row pairs a WrapPolicy with a Behavior it does not support.
func New(sink Sink, width int, cfg [Rows]LineConfig) (*Buffer, error) {
	if sink == nil {
		return nil, errors.New("charbuf: nil sink")
	}
	b := &Buffer{sink: sink, width: width}
	for row, c := range cfg {
		l, err := layout.NewLayout(c.Wrap, c.Behavior)
		if err != nil {
			return nil, fmt.Errorf("charbuf: row %d: %w", row, err)
		}
		if b.lines[row], err = layout.NewLine(l, width); err != nil {
			return nil, fmt.Errorf("charbuf: row %d: %w", row, err)
		}
	}
	return b, nil
}

// Width returns the number of columns.
func (b *Buffer) Width() int {
	return b.width
}

// Cursor returns the position of the next character, clamped to the last
// column.
func (b *Buffer) Cursor() Cursor {
	return b.cursor
}

// Line returns the row, starting at 0.
func (b *Buffer) Line(row int) *layout.Line {
	if row < 0 || row >= Rows {
		return nil
	}
	return b.lines[row]
}

// SetText replaces the content of row and resets its animation.
func (b *Buffer) SetText(row int, text string) error {
	if row < 0 || row >= Rows {
		return fmt.Errorf("charbuf: row %d out of range", row)
	}
	b.lines[row].SetText(text)
	return nil
}

// SetLayout replaces row with a new line using l. The content is kept and
// the animation starts over.
func (b *Buffer) SetLayout(row int, l layout.Layout) error {
	if row < 0 || row >= Rows {
		return fmt.Errorf("charbuf: row %d out of range", row)
	}
	line, err := layout.NewLine(l, b.width)
	if err != nil {
		return fmt.Errorf("charbuf: row %d: %w", row, err)
	}
	line.SetText(b.lines[row].Text())
	b.lines[row] = line
	return nil
}

// Frame returns the text each row shows on the next Refresh.
func (b *Buffer) Frame() [Rows]string {
	var out [Rows]string
	// cont is what is left of a Wrap row that did not fit.
	var cont []rune
	for row, line := range b.lines {
		if len(cont) > 0 {
			n := min(len(cont), b.width)
			out[row] = string(cont[:n]) + strings.Repeat(" ", b.width-n)
			cont = cont[n:]
			continue
		}
		out[row] = line.Visible()
		cont = line.Overflow()
	}
	return out
}

// Refresh writes every row to the sink, then advances the animations.
//
// The first sink error aborts the frame and is returned. The animations do
// not advance in that case so a retry shows the same frame.
func (b *Buffer) Refresh() error {
	for row, text := range b.Frame() {
		if err := b.sink.MoveTo(row+1, 1); err != nil {
			return fmt.Errorf("charbuf: row %d: %w", row, err)
		}
		b.cursor = Cursor{Row: row}
		for _, r := range text {
			if _, err := b.sink.WriteString(string(r)); err != nil {
				return fmt.Errorf("charbuf: row %d col %d: %w", row, b.cursor.Col, err)
			}
			if b.cursor.Col < b.width-1 {
				b.cursor.Col++
			}
		}
	}
	for _, line := range b.lines {
		line.Tick()
	}
	return nil
}

