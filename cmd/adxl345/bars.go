// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"bytes"
	"image/color"
	"io"
	"math"

	"github.com/GermanBionicSystems/accel/adxl345"
	"github.com/maruel/ansi256"
)

var (
	axisColors = [3]color.NRGBA{
		{R: 255, A: 255},
		{G: 255, A: 255},
		{B: 255, A: 255},
	}
	centerColor = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	emptyColor  = color.NRGBA{R: 48, G: 48, B: 48, A: 255}
)

// bars draws the three axes on a single terminal line, each as a bar
// growing left or right from a center mark.
type bars struct {
	w       io.Writer
	palette *ansi256.Palette
	half    int
	limit   float64
	buf     bytes.Buffer
}

// newBars returns a renderer where half cells on each side of the center
// represent limit g.
func newBars(w io.Writer, palette *ansi256.Palette, half int, limit float64) *bars {
	if palette == nil {
		palette = ansi256.Default
	}
	return &bars{w: w, palette: palette, half: half, limit: limit}
}

func (b *bars) cells(v float64) int {
	n := int(math.Round(math.Abs(v) / b.limit * float64(b.half)))
	if n > b.half {
		n = b.half
	}
	if v < 0 {
		return -n
	}
	return n
}

func (b *bars) write(a adxl345.Acceleration) error {
	// Minimize the amount of memory allocated per call.
	b.buf.Reset()
	_, _ = b.buf.WriteString("\r\033[0m")
	for i, v := range [3]float64{a.X, a.Y, a.Z} {
		_, _ = b.buf.WriteString(" \033[0m")
		_ = b.buf.WriteByte("XYZ"[i])
		_ = b.buf.WriteByte(' ')
		n := b.cells(v)
		for c := -b.half; c <= b.half; c++ {
			col := emptyColor
			switch {
			case c == 0:
				col = centerColor
			case n > 0 && c > 0 && c <= n, n < 0 && c < 0 && c >= n:
				col = axisColors[i]
			}
			_, _ = io.WriteString(&b.buf, b.palette.Block(col))
		}
	}
	_, _ = b.buf.WriteString("\033[0m ")
	_, err := b.buf.WriteTo(b.w)
	return err
}

// Halt resets the terminal attributes and ends the line.
func (b *bars) Halt() error {
	_, err := b.w.Write([]byte("\n\033[0m"))
	return err
}
