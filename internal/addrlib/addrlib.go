// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package addrlib translates coordinates of a GX2 macro-tiled surface (tile mode 4,
// 2D thin1) into byte offsets of its raw buffer, for the fixed memory configuration
// of 2 pipes, 4 banks and a 256 byte pipe interleave.
//
// All arithmetic is uint32 and wraps like the hardware does.
package addrlib

import "fmt"

const (
	numPipes        = 2
	numBanks        = 4
	groupMask       = 0xFF // 256 byte pipe interleave
	macroTilePitch  = 8 * numBanks
	macroTileHeight = 8 * numPipes
	pipeBankMask    = 0x7 << 8 // pipe bit 8, bank bits 9-10
)

// Variant selects how the pipe and bank bits are spliced into the final address.
// Both encodings are observed in real dumps, neither can be derived from the other.
type Variant uint8

const (
	Standard Variant = iota
	Legacy
)

// String returns the name of the variant
func (v Variant) String() string {
	switch v {
	case Standard:
		return "standard"
	case Legacy:
		return "legacy"
	default:
		return fmt.Sprintf("variant(%d)", uint8(v))
	}
}

// Address returns the byte offset of element (x, y) for this variant. The element
// is a pixel for uncompressed formats and a 4x4 block for compressed ones; bpp is
// the element size in bits and pitch the surface pitch in elements.
func (v Variant) Address(x, y, bpp, pitch, swizzle uint32) uint32 {
	if v == Legacy {
		return AddressLegacy(x, y, bpp, pitch, swizzle)
	}
	return AddressStandard(x, y, bpp, pitch, swizzle)
}

// AddressStandard computes the base address inside the surface and then replaces
// bits 8-10 with the pipe and bank bits.
func AddressStandard(x, y, bpp, pitch, swizzle uint32) uint32 {
	elem, macro, pipe, bank := locate(x, y, bpp, pitch, swizzle)
	base := macro + elem
	return (base &^ 0x7FF) | bank<<9 | pipe<<8 | (base & groupMask)
}

// AddressLegacy keeps the low group bits of the element offset, shifts the rest
// above the pipe and bank bits and inserts those in between. The macro-tile offset
// enters in units of 8 bytes.
func AddressLegacy(x, y, bpp, pitch, swizzle uint32) uint32 {
	elem, macro, pipe, bank := locate(x, y, bpp, pitch, swizzle)
	total := elem + macro>>3
	high := (total &^ groupMask) << 3
	low := total & groupMask
	return bank<<9 | pipe<<8 | low | high
}

// locate computes the shared part of both variants: the element offset within its
// micro-tile, the byte offset of its macro-tile and the swizzled pipe and bank.
func locate(x, y, bpp, pitch, swizzle uint32) (elem, macro, pipe, bank uint32) {
	elem = (bpp * pixelIndex(x, y, bpp)) >> 3

	pipeSwizzle := (swizzle >> 8) & 1
	bankSwizzle := (swizzle >> 9) & 3
	bankPipe := computePipe(x, y) + numPipes*computeBank(x, y)
	bankPipe ^= pipeSwizzle + numPipes*bankSwizzle
	bankPipe %= numPipes * numBanks
	pipe = bankPipe % numPipes
	bank = bankPipe / numPipes

	tilesPerRow := pitch / macroTilePitch
	tileBytes := (macroTileHeight * macroTilePitch * bpp) >> 3
	macro = tileBytes * (x/macroTilePitch + tilesPerRow*(y/macroTileHeight))
	return
}

// pixelIndex interleaves the low 3 bits of x and y into the 6-bit index of the
// element within its 8x8 micro-tile (displayable, non-depth ordering).
func pixelIndex(x, y, bpp uint32) uint32 {
	x0, x1, x2 := bit(x, 0), bit(x, 1), bit(x, 2)
	y0, y1, y2 := bit(y, 0), bit(y, 1), bit(y, 2)

	var b [6]uint32
	switch bpp {
	case 8:
		b = [6]uint32{x0, x1, x2, y1, y0, y2}
	case 16:
		b = [6]uint32{x0, x1, x2, y0, y1, y2}
	case 64:
		b = [6]uint32{x0, y0, x1, x2, y1, y2}
	case 128:
		b = [6]uint32{y0, x0, x1, x2, y1, y2}
	default: // 32
		b = [6]uint32{x0, x1, y0, x2, y1, y2}
	}

	return b[0] | b[1]<<1 | b[2]<<2 | b[3]<<3 | b[4]<<4 | b[5]<<5
}

// computePipe returns y3 ^ x3
func computePipe(x, y uint32) uint32 {
	return bit(y, 3) ^ bit(x, 3)
}

// computeBank mixes bits 3-4 of x with bits 3-4 of y/2
func computeBank(x, y uint32) uint32 {
	ty := y / numPipes
	b0 := bit(ty, 4) ^ bit(x, 3)
	b1 := bit(ty, 3) ^ bit(x, 4)
	return b0 | b1<<1
}

func bit(v, b uint32) uint32 {
	return (v >> b) & 1
}
