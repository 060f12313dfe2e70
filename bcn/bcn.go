// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package bcn decodes single 4x4 blocks of the BC1, BC2 and BC3 (DXT1, DXT3, DXT5)
// block-compressed pixel formats into RGBA pixels.
//
// Every decoder is a pure function of the block bytes. All fields inside a block
// are little-endian, regardless of the byte order of the container around it.
package bcn

import (
	"encoding/binary"
	"image/color"

	"github.com/kelindar/gtx-sdk/internal/bitmap"
)

// Block sizes in bytes
const (
	BC1BlockSize = 8
	BC2BlockSize = 16
	BC3BlockSize = 16
)

// Pixels holds 16 decoded RGBA pixels of a 4x4 block in row-major order.
type Pixels [16 * 4]uint8

// At returns the pixel at (x, y) inside the block.
func (p *Pixels) At(x, y int) color.RGBA {
	i := (y*4 + x) * 4
	return color.RGBA{R: p[i], G: p[i+1], B: p[i+2], A: p[i+3]}
}

// Row returns the 16 bytes of row y.
func (p *Pixels) Row(y int) []uint8 {
	return p[y*16 : y*16+16]
}

// palette is four RGBA entries, 4 bytes each
type palette [16]uint8

// colorPalette builds the RGB palette from two packed reference colors. When
// fourColor is false and c0 <= c1, the third entry is the average and the fourth is
// transparent black.
func colorPalette(c0, c1 bitmap.RGB565Color, fourColor bool) (p palette) {
	r0, g0, b0 := c0.Expand()
	r1, g1, b1 := c1.Expand()

	p[0], p[1], p[2], p[3] = r0, g0, b0, 0xFF
	p[4], p[5], p[6], p[7] = r1, g1, b1, 0xFF
	if fourColor || c0 > c1 {
		p[8], p[9], p[10], p[11] = lerp3(r0, r1), lerp3(g0, g1), lerp3(b0, b1), 0xFF
		p[12], p[13], p[14], p[15] = lerp3(r1, r0), lerp3(g1, g0), lerp3(b1, b0), 0xFF
		return
	}

	p[8], p[9], p[10], p[11] = avg(r0, r1), avg(g0, g1), avg(b0, b1), 0xFF
	return // entry 3 stays {0, 0, 0, 0}
}

// lerp3 returns (2a + b) / 3, truncated
func lerp3(a, b uint8) uint8 {
	return uint8((2*uint16(a) + uint16(b)) / 3)
}

// avg returns (a + b) / 2, truncated
func avg(a, b uint8) uint8 {
	return uint8((uint16(a) + uint16(b)) / 2)
}

// writeColors writes the RGB channels selected by the 2-bit indices. Alpha is written
// too when withAlpha is set.
func writeColors(out *Pixels, p *palette, indices uint32, withAlpha bool) {
	for i := 0; i < 16; i++ {
		ci := (indices >> (2 * i)) & 3
		src := p[ci*4 : ci*4+4]
		out[i*4+0] = src[0]
		out[i*4+1] = src[1]
		out[i*4+2] = src[2]
		if withAlpha {
			out[i*4+3] = src[3]
		}
	}
}

// DecodeBC1 decodes an 8-byte BC1 block. The block must hold at least BC1BlockSize bytes.
func DecodeBC1(block []byte) (out Pixels) {
	_ = block[BC1BlockSize-1]
	c0 := bitmap.LittleEndian(block[0:2])
	c1 := bitmap.LittleEndian(block[2:4])
	p := colorPalette(c0, c1, false)

	writeColors(&out, &p, binary.LittleEndian.Uint32(block[4:8]), true)
	return
}

// DecodeBC2 decodes a 16-byte BC2 block with explicit 4-bit alpha. The color part
// always uses four-color interpolation. The block must hold at least BC2BlockSize bytes.
func DecodeBC2(block []byte) (out Pixels) {
	_ = block[BC2BlockSize-1]
	for i := 0; i < 16; i++ {
		nibble := block[i>>1]
		if i&1 == 1 {
			nibble >>= 4
		}
		out[i*4+3] = (nibble & 0x0F) * 17
	}

	c0 := bitmap.LittleEndian(block[8:10])
	c1 := bitmap.LittleEndian(block[10:12])
	p := colorPalette(c0, c1, true)

	writeColors(&out, &p, binary.LittleEndian.Uint32(block[12:16]), false)
	return
}

// DecodeBC3 decodes a 16-byte BC3 block with interpolated alpha. The color part
// always uses four-color interpolation. The block must hold at least BC3BlockSize bytes.
func DecodeBC3(block []byte) (out Pixels) {
	_ = block[BC3BlockSize-1]
	alpha := AlphaPalette(block[0], block[1])

	// 48-bit little-endian field of 3-bit indices
	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(block[2+i]) << (8 * i)
	}

	for i := 0; i < 16; i++ {
		out[i*4+3] = alpha[(bits>>(3*i))&0x07]
	}

	c0 := bitmap.LittleEndian(block[8:10])
	c1 := bitmap.LittleEndian(block[10:12])
	p := colorPalette(c0, c1, true)

	writeColors(&out, &p, binary.LittleEndian.Uint32(block[12:16]), false)
	return
}

// AlphaPalette returns the 8-entry BC3 alpha palette for the two reference alphas.
// Intermediate values are rounded to nearest.
func AlphaPalette(a0, a1 uint8) (p [8]uint8) {
	x0, x1 := uint32(a0), uint32(a1)
	p[0], p[1] = a0, a1
	if a0 > a1 {
		for i := uint32(1); i <= 6; i++ {
			p[i+1] = uint8(((7-i)*x0 + i*x1 + 3) / 7)
		}
		return
	}

	for i := uint32(1); i <= 4; i++ {
		p[i+1] = uint8(((5-i)*x0 + i*x1 + 2) / 5)
	}
	p[6], p[7] = 0, 255
	return
}
