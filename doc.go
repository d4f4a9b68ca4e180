// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package charlcd is a container for the packages driving HD44780 character
// displays over a 4-bit GPIO bus.
//
// layout computes what a line shows as it scrolls, charbuf streams four such
// lines to a display, hd44780 talks to the controller and lcdsim emulates
// one for tests and previews.
package charlcd
