// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package layout

// Direction is the scroll direction of a MarqueeScrollBack row.
type Direction uint8

const (
	Forward Direction = iota
	Backward
)

func (d Direction) String() string {
	if d == Backward {
		return "Backward"
	}
	return "Forward"
}

// State is the animation state of a row. The zero value is the initial
// state: offset 0, moving forward, no pending ticks.
type State struct {
	// Offset is the index of the first visible rune.
	Offset int
	// Direction is only used by OverflowScrollBack.
	Direction Direction
	// Ticks counts the ticks received since the last animation step.
	Ticks int
}

// Scroll is the scroll engine. It returns the runes of content visible in a
// row of width cells for st, padded with spaces to exactly width runes, and
// the state for the next tick.
//
// Scroll depends on nothing but its arguments so animations can be stepped
// without a clock.
func Scroll(l Layout, content []rune, width int, st State) ([]rune, State) {
	if width <= 0 {
		return nil, State{}
	}
	return pad(l.window(content, width, st), width), l.advance(len(content), width, st)
}

func (WrapStatic) window(content []rune, width int, _ State) []rune {
	return head(content, width)
}

func (ClipStatic) window(content []rune, width int, _ State) []rune {
	return head(content, width)
}

func (WrapStatic) advance(_, _ int, st State) State { return st }

func (ClipStatic) advance(_, _ int, st State) State { return st }

func (OverflowJumpBack) window(content []rune, width int, st State) []rune {
	return slide(content, width, st.Offset)
}

func (OverflowJumpBack) advance(length, width int, st State) State {
	if length <= width {
		return State{}
	}
	next := clamp(st.Offset, length-width) + 1
	if next+width > length {
		next = 0
	}
	return State{Offset: next}
}

func (OverflowContinuous) window(content []rune, width int, st State) []rune {
	if len(content) == 0 {
		return nil
	}
	// The window slides over the content, one space, then the head of the
	// content again. Past the end of that the row is blank.
	period := len(content) + 1
	src := make([]rune, 0, period+width)
	src = append(src, content...)
	src = append(src, ' ')
	src = append(src, head(content, width)...)
	off := st.Offset % period
	if off < 0 {
		off += period
	}
	return src[off:min(off+width, len(src))]
}

func (OverflowContinuous) advance(length, _ int, st State) State {
	if length == 0 {
		return State{}
	}
	period := length + 1
	next := (st.Offset + 1) % period
	if next < 0 {
		next += period
	}
	return State{Offset: next}
}

func (OverflowScrollBack) window(content []rune, width int, st State) []rune {
	return slide(content, width, st.Offset)
}

func (OverflowScrollBack) advance(length, width int, st State) State {
	if length <= width {
		return State{}
	}
	last := length - width
	off := clamp(st.Offset, last)
	if st.Direction == Backward {
		if off == 0 {
			return State{Offset: 1, Direction: Forward}
		}
		return State{Offset: off - 1, Direction: Backward}
	}
	if off == last {
		return State{Offset: last - 1, Direction: Backward}
	}
	return State{Offset: off + 1, Direction: Forward}
}

// slide returns the width wide window starting at offset, or the head of
// content when it fits in the row.
func slide(content []rune, width, offset int) []rune {
	if len(content) <= width {
		return content
	}
	off := clamp(offset, len(content)-width)
	end := off + width
	if end > len(content) {
		end = len(content)
	}
	return content[off:end]
}

func head(content []rune, width int) []rune {
	if len(content) > width {
		return content[:width]
	}
	return content
}

func clamp(v, hi int) int {
	if v < 0 {
		return 0
	}
	if v > hi {
		return hi
	}
	return v
}

func pad(r []rune, width int) []rune {
	out := make([]rune, width)
	n := copy(out, r)
	for i := n; i < width; i++ {
		out[i] = ' '
	}
	return out
}
