// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package layout decides what part of a line of text is visible on a
// character display row.
//
// A row pairs a WrapPolicy with a Behavior. Only five pairings make sense and
// each one is a distinct type implementing Layout:
//
//	WrapStatic          Wrap + Static
//	ClipStatic          Clip + Static
//	OverflowJumpBack    Overflow + MarqueeJumpBack
//	OverflowContinuous  Overflow + MarqueeContinuous
//	OverflowScrollBack  Overflow + MarqueeScrollBack
//
// Layout is sealed, so no other pairing can exist. NewLayout converts a pair
// chosen at runtime and rejects the rest with ErrInvalidLayoutCombination.
package layout

import (
	"errors"
	"fmt"
)

// ErrInvalidLayoutCombination is returned for a WrapPolicy / Behavior pair
// that is not one of the five legal layouts.
var ErrInvalidLayoutCombination = errors.New("layout: invalid layout combination")

// WrapPolicy controls what happens to content wider than the row.
type WrapPolicy uint8

const (
	// Overflow discards content past the width except through animation.
	Overflow WrapPolicy = iota
	// Wrap continues the content on the next physical row.
	Wrap
	// Clip truncates the content at the width.
	Clip
)

func (w WrapPolicy) String() string {
	switch w {
	case Overflow:
		return "Overflow"
	case Wrap:
		return "Wrap"
	case Clip:
		return "Clip"
	default:
		return fmt.Sprintf("WrapPolicy(%d)", uint8(w))
	}
}

// Behavior is the animation applied to a row.
type Behavior uint8

const (
	// Static rows never move.
	Static Behavior = iota
	// MarqueeJumpBack scrolls to reveal the tail then snaps back to the head.
	MarqueeJumpBack
	// MarqueeContinuous scrolls circularly, the tail running into the head.
	MarqueeContinuous
	// MarqueeScrollBack scrolls to the tail, reverses, and scrolls back.
	MarqueeScrollBack
)

func (b Behavior) String() string {
	switch b {
	case Static:
		return "Static"
	case MarqueeJumpBack:
		return "MarqueeJumpBack"
	case MarqueeContinuous:
		return "MarqueeContinuous"
	case MarqueeScrollBack:
		return "MarqueeScrollBack"
	default:
		return fmt.Sprintf("Behavior(%d)", uint8(b))
	}
}

// Layout is one of the five legal (WrapPolicy, Behavior) pairings.
type Layout interface {
	Wrap() WrapPolicy
	Behavior() Behavior
	fmt.Stringer

	// window returns the visible runes for st, at most width long.
	window(content []rune, width int, st State) []rune
	// advance returns the state following st after one animation step.
	advance(length, width int, st State) State
}

// WrapStatic is a static row whose extra content continues on the next row.
type WrapStatic struct{}

// ClipStatic is a static row truncated at the width.
type ClipStatic struct{}

// OverflowJumpBack scrolls one position per step and restarts at the head.
type OverflowJumpBack struct{}

// OverflowContinuous scrolls through the content followed by one space and
// the head of the content again, so the tail runs into the head. It scrolls
// even when the content fits in the row. When the row is wider than the
// content plus the space, the head shows only once and the rest of the row
// stays blank: "AB" in 5 cells shows "AB AB", "B AB " then " AB  ".
type OverflowContinuous struct{}

// OverflowScrollBack scrolls back and forth between the head and the tail.
type OverflowScrollBack struct{}

// NewLayout returns the Layout for w and b, or ErrInvalidLayoutCombination.
func NewLayout(w WrapPolicy, b Behavior) (Layout, error) {
	switch {
	case w == Wrap && b == Static:
		return WrapStatic{}, nil
	case w == Clip && b == Static:
		return ClipStatic{}, nil
	case w == Overflow && b == MarqueeJumpBack:
		return OverflowJumpBack{}, nil
	case w == Overflow && b == MarqueeContinuous:
		return OverflowContinuous{}, nil
	case w == Overflow && b == MarqueeScrollBack:
		return OverflowScrollBack{}, nil
	}
	return nil, fmt.Errorf("%w: %s with %s", ErrInvalidLayoutCombination, w, b)
}

// Layouts lists every legal layout.
func Layouts() []Layout {
	return []Layout{WrapStatic{}, ClipStatic{}, OverflowJumpBack{}, OverflowContinuous{}, OverflowScrollBack{}}
}

func (WrapStatic) Wrap() WrapPolicy         { return Wrap }
func (ClipStatic) Wrap() WrapPolicy         { return Clip }
func (OverflowJumpBack) Wrap() WrapPolicy   { return Overflow }
func (OverflowContinuous) Wrap() WrapPolicy { return Overflow }
func (OverflowScrollBack) Wrap() WrapPolicy { return Overflow }

func (WrapStatic) Behavior() Behavior         { return Static }
func (ClipStatic) Behavior() Behavior         { return Static }
func (OverflowJumpBack) Behavior() Behavior   { return MarqueeJumpBack }
func (OverflowContinuous) Behavior() Behavior { return MarqueeContinuous }
func (OverflowScrollBack) Behavior() Behavior { return MarqueeScrollBack }

func (l WrapStatic) String() string         { return name(l) }
func (l ClipStatic) String() string         { return name(l) }
func (l OverflowJumpBack) String() string   { return name(l) }
func (l OverflowContinuous) String() string { return name(l) }
func (l OverflowScrollBack) String() string { return name(l) }

func name(l Layout) string {
	return l.Wrap().String() + "/" + l.Behavior().String()
}

var _ Layout = WrapStatic{}
var _ Layout = ClipStatic{}
var _ Layout = OverflowJumpBack{}
var _ Layout = OverflowContinuous{}
var _ Layout = OverflowScrollBack{}
