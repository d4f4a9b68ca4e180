// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package layout

import (
	"errors"
	"fmt"
)

// Line is one display row: a Layout fixed for the lifetime of the Line, the
// full content and the animation state.
//
// Line is not safe for concurrent use.
type Line struct {
	layout  Layout
	width   int
	rate    int
	content []rune
	state   State
}

// NewLine returns an empty Line of width cells.
func NewLine(l Layout, width int) (*Line, error) {
	if l == nil {
		return nil, fmt.Errorf("%w: no layout", ErrInvalidLayoutCombination)
	}
	if width <= 0 {
		return nil, errors.New("layout: width must be positive")
	}
	return &Line{layout: l, width: width, rate: 1}, nil
}

// Layout returns the layout the Line was created with.
func (l *Line) Layout() Layout {
	return l.layout
}

// Width returns the number of cells of the row.
func (l *Line) Width() int {
	return l.width
}

// SetText replaces the content and resets the animation to its initial
// state.
func (l *Line) SetText(text string) {
	l.content = []rune(text)
	l.state = State{}
}

// Text returns the full content.
func (l *Line) Text() string {
	return string(l.content)
}

// State returns the current animation state.
func (l *Line) State() State {
	return l.state
}

// SetRate makes the animation move one position every n ticks. n < 1 is
// treated as 1.
func (l *Line) SetRate(n int) {
	if n < 1 {
		n = 1
	}
	l.rate = n
	l.state.Ticks = 0
}

// Visible returns the width runes currently shown, space padded.
func (l *Line) Visible() string {
	v, _ := Scroll(l.layout, l.content, l.width, l.state)
	return string(v)
}

// Tick advances the animation by one tick. Static layouts ignore it.
func (l *Line) Tick() {
	if l.layout.Behavior() == Static {
		return
	}
	l.state.Ticks++
	if l.state.Ticks < l.rate {
		return
	}
	_, next := Scroll(l.layout, l.content, l.width, l.state)
	l.state = next
}

// Overflow returns the content that does not fit on the row of a WrapStatic
// line. It is nil for every other layout.
func (l *Line) Overflow() []rune {
	if _, ok := l.layout.(WrapStatic); !ok || len(l.content) <= l.width {
		return nil
	}
	return l.content[l.width:]
}

func (l *Line) String() string {
	return fmt.Sprintf("Line{%s, width: %d, offset: %d, %s}", l.layout, l.width, l.state.Offset, l.state.Direction)
}
