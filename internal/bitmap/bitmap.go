// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package bitmap

import (
	"image/color"
)

// RGB565Color represents a 16-bit color in R5 G6 B5 format, red in the top bits.
// This is the packed reference color of every block-compressed format and the
// element type of the 16-bit raster format.
type RGB565Color uint16

const (
	max5Bit = 31
	max6Bit = 63
)

// Expand widens each channel to 8 bits using channel*255/max with integer
// truncation. Decoders depend on this exact rounding.
func (c RGB565Color) Expand() (r, g, b uint8) {
	r = uint8((uint32(c>>11) & 0x1F) * 255 / max5Bit)
	g = uint8((uint32(c>>5) & 0x3F) * 255 / max6Bit)
	b = uint8((uint32(c) & 0x1F) * 255 / max5Bit)
	return
}

// RGBA implements the color.Color interface. The color is always opaque.
func (c RGB565Color) RGBA() (r, g, b, a uint32) {
	r8, g8, b8 := c.Expand()
	return color.RGBA{R: r8, G: g8, B: b8, A: 0xFF}.RGBA()
}

// Pack converts 8-bit channels back to the packed form, rounding to the nearest
// representable 5/6-bit level.
func Pack(r, g, b uint8) RGB565Color {
	r5 := (uint32(r)*max5Bit + 127) / 255
	g6 := (uint32(g)*max6Bit + 127) / 255
	b5 := (uint32(b)*max5Bit + 127) / 255
	return RGB565Color(r5<<11 | g6<<5 | b5)
}

// RGB565Model is the color model for RGB565 colors.
var RGB565Model color.Model = color.ModelFunc(rgb565Model)

func rgb565Model(c color.Color) color.Color {
	if _, ok := c.(RGB565Color); ok {
		return c
	}

	r, g, b, _ := c.RGBA()
	return Pack(uint8(r>>8), uint8(g>>8), uint8(b>>8))
}

// LittleEndian reads a packed color stored little-endian at the start of b.
func LittleEndian(b []byte) RGB565Color {
	return RGB565Color(uint16(b[0]) | uint16(b[1])<<8)
}
