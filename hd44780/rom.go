// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package hd44780

// romA00 maps runes outside printable ASCII to the character codes of the
// A00 (Japanese) character generator ROM.
var romA00 = map[rune]byte{
	'¥': 0x5c,
	'→': 0x7e,
	'←': 0x7f,
	'°': 0xdf,
	'α': 0xe0,
	'ä': 0xe1,
	'β': 0xe2,
	'ε': 0xe3,
	'µ': 0xe4,
	'μ': 0xe4,
	'σ': 0xe5,
	'ρ': 0xe6,
	'√': 0xe8,
	'¢': 0xec,
	'ñ': 0xee,
	'ö': 0xef,
	'θ': 0xf2,
	'∞': 0xf3,
	'Ω': 0xf4,
	'ü': 0xf5,
	'Σ': 0xf6,
	'π': 0xf7,
	'÷': 0xfd,
	'█': 0xff,
}

// Encode converts text to character codes, one byte per rune. Codes 0-7
// select the CGRAM characters. Half width katakana map onto the ROM's
// katakana block. Anything else the ROM lacks becomes '?'.
func Encode(text string) []byte {
	out := make([]byte, 0, len(text))
	for _, r := range text {
		switch {
		case r < 8:
			out = append(out, byte(r))
		case r >= 0x20 && r <= 0x7d:
			out = append(out, byte(r))
		case r >= 0xff61 && r <= 0xff9f:
			out = append(out, byte(r-0xff61+0xa1))
		default:
			if c, ok := romA00[r]; ok {
				out = append(out, c)
			} else {
				out = append(out, '?')
			}
		}
	}
	return out
}
