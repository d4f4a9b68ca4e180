// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package lcdsim

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// SnapshotOpts controls Snapshot. The zero value renders green on black
// with the 7x13 bitmap font.
type SnapshotOpts struct {
	// TTF is an optional TrueType font, for example
	// golang.org/x/image/font/gofont/gomono.TTF.
	TTF []byte
	// Size is the TrueType font size in points. Defaults to 12.
	Size float64
	Fg   color.Color
	Bg   color.Color
}

const (
	cellW  = 8
	cellH  = 16
	margin = 6
)

// Snapshot renders the current text of p, one character per cell.
func Snapshot(p *Panel, opts *SnapshotOpts) (image.Image, error) {
	if opts == nil {
		opts = &SnapshotOpts{}
	}
	face := font.Face(basicfont.Face7x13)
	if len(opts.TTF) != 0 {
		f, err := truetype.Parse(opts.TTF)
		if err != nil {
			return nil, err
		}
		size := opts.Size
		if size == 0 {
			size = 12
		}
		face = truetype.NewFace(f, &truetype.Options{Size: size})
	}
	fg, bg := opts.Fg, opts.Bg
	if fg == nil {
		fg = color.NRGBA{0x60, 0xff, 0x60, 0xff}
	}
	if bg == nil {
		bg = color.Black
	}

	dc := gg.NewContext(2*margin+p.Cols()*cellW, 2*margin+p.Rows()*cellH)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(face)
	dc.SetColor(fg)
	if on, _, _ := p.Flags(); on {
		for row, line := range p.Lines() {
			y := float64(margin + row*cellH + cellH - 4)
			for col, r := range []rune(line) {
				dc.DrawString(string(r), float64(margin+col*cellW), y)
			}
		}
	}
	return dc.Image(), nil
}

// SavePNG writes a snapshot of p to path.
func SavePNG(p *Panel, path string, opts *SnapshotOpts) error {
	im, err := Snapshot(p, opts)
	if err != nil {
		return err
	}
	return gg.SavePNG(path, im)
}
