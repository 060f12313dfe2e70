// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package gfd

import (
	"encoding/binary"
	"fmt"
)

// SurfaceSize is the size of a GX2 surface record, 39 big-endian uint32 fields.
const SurfaceSize = 0x9C

// Format is a GX2 surface pixel format code.
type Format uint32

// Pixel formats
const (
	FormatR5G6B5   Format = 0x07
	FormatR8G8B8A8 Format = 0x1A
	FormatBC1      Format = 0x31
	FormatBC2      Format = 0x32
	FormatBC3      Format = 0x33
	FormatBC4      Format = 0x34
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatR5G6B5:
		return "R5_G6_B5"
	case FormatR8G8B8A8:
		return "R8_G8_B8_A8"
	case FormatBC1:
		return "BC1"
	case FormatBC2:
		return "BC2"
	case FormatBC3:
		return "BC3"
	case FormatBC4:
		return "BC4"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", uint32(f))
	}
}

// TileMode is a GX2 surface tile mode.
type TileMode uint32

// Tile modes
const (
	TileLinearGeneral TileMode = 0
	TileLinearAligned TileMode = 1
	Tile2DThin1       TileMode = 4
)

// String returns a human-readable name for the tile mode.
func (m TileMode) String() string {
	switch m {
	case TileLinearGeneral:
		return "linear_general"
	case TileLinearAligned:
		return "linear_aligned"
	case Tile2DThin1:
		return "2d_thin1"
	default:
		return fmt.Sprintf("tile_mode(%d)", uint32(m))
	}
}

// Surface describes one texture: its dimensions, pixel format and memory layout.
type Surface struct {
	Dim            uint32     // +0x00: Dimension kind (1 = 2D)
	Width          uint32     // +0x04: Width in pixels
	Height         uint32     // +0x08: Height in pixels
	Depth          uint32     // +0x0C: Depth or array slices
	NumMips        uint32     // +0x10: Number of mip levels
	Format         Format     // +0x14: Pixel format
	AA             uint32     // +0x18: Anti-alias mode
	Use            uint32     // +0x1C: Usage flags
	ImageSize      uint32     // +0x20: Declared image size in bytes
	ImagePtr       uint32     // +0x24: Image pointer, zero in files
	MipSize        uint32     // +0x28: Declared mip chain size in bytes
	MipPtr         uint32     // +0x2C: Mip pointer, zero in files
	TileMode       TileMode   // +0x30: Tile mode
	Swizzle        uint32     // +0x34: Pipe/bank swizzle in bits 8-10
	Alignment      uint32     // +0x38: Alignment in bytes
	Pitch          uint32     // +0x3C: Pitch, in pixels or in 4x4 blocks for BCn
	MipOffsets     [13]uint32 // +0x40: Mip level offsets
	ViewFirstMip   uint32     // +0x74
	ViewNumMips    uint32     // +0x78
	ViewFirstSlice uint32     // +0x7C
	ViewNumSlices  uint32     // +0x80
	CompSel        uint32     // +0x84: Component selector
	Regs           [5]uint32  // +0x88: Texture registers
}

// UnmarshalBinary decodes a surface record from its big-endian form.
func (s *Surface) UnmarshalBinary(data []byte) error {
	if len(data) < SurfaceSize {
		return fmt.Errorf("%w: need %d bytes, got %d", ErrMalformed, SurfaceSize, len(data))
	}

	u32 := func(off int) uint32 {
		return binary.BigEndian.Uint32(data[off : off+4])
	}

	s.Dim = u32(0x00)
	s.Width = u32(0x04)
	s.Height = u32(0x08)
	s.Depth = u32(0x0C)
	s.NumMips = u32(0x10)
	s.Format = Format(u32(0x14))
	s.AA = u32(0x18)
	s.Use = u32(0x1C)
	s.ImageSize = u32(0x20)
	s.ImagePtr = u32(0x24)
	s.MipSize = u32(0x28)
	s.MipPtr = u32(0x2C)
	s.TileMode = TileMode(u32(0x30))
	s.Swizzle = u32(0x34)
	s.Alignment = u32(0x38)
	s.Pitch = u32(0x3C)
	for i := range s.MipOffsets {
		s.MipOffsets[i] = u32(0x40 + 4*i)
	}
	s.ViewFirstMip = u32(0x74)
	s.ViewNumMips = u32(0x78)
	s.ViewFirstSlice = u32(0x7C)
	s.ViewNumSlices = u32(0x80)
	s.CompSel = u32(0x84)
	for i := range s.Regs {
		s.Regs[i] = u32(0x88 + 4*i)
	}
	return nil
}

// String returns a human-readable representation.
func (s *Surface) String() string {
	return fmt.Sprintf(
		"Surface: %dx%d, %d mips, format=%s, tile=%s, swizzle=0x%x, pitch=%d, size=%d",
		s.Width, s.Height, s.NumMips, s.Format, s.TileMode, s.Swizzle, s.Pitch, s.ImageSize,
	)
}
