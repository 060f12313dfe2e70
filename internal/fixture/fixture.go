// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package fixture builds synthetic GX2 containers for tests.
package fixture

import (
	"bytes"
	"encoding/binary"

	"github.com/kelindar/gtx-sdk/internal/gfd"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Container accumulates the bytes of a container file.
type Container struct {
	buf []byte
}

// New starts a container with a 0x20 byte file header.
func New() *Container {
	head := make([]byte, gfd.HeaderSize)
	copy(head, "Gfx2")
	binary.BigEndian.PutUint32(head[4:], gfd.HeaderSize)
	binary.BigEndian.PutUint32(head[8:], 7) // major version
	binary.BigEndian.PutUint32(head[12:], 1)
	binary.BigEndian.PutUint32(head[16:], 2)
	return &Container{buf: head}
}

// Block appends a block with the given type and payload.
func (c *Container) Block(kind gfd.BlockType, payload []byte) *Container {
	head := make([]byte, gfd.HeaderSize)
	copy(head, "BLK{")
	binary.BigEndian.PutUint32(head[4:], gfd.HeaderSize)
	binary.BigEndian.PutUint32(head[8:], 1)
	binary.BigEndian.PutUint32(head[16:], uint32(kind))
	binary.BigEndian.PutUint32(head[20:], uint32(len(payload)))
	c.buf = append(c.buf, head...)
	c.buf = append(c.buf, payload...)
	return c
}

// Surface appends a surface block.
func (c *Container) Surface(s gfd.Surface) *Container {
	return c.Block(gfd.BlockSurface, EncodeSurface(s))
}

// Image appends an image block.
func (c *Container) Image(data []byte) *Container {
	return c.Block(gfd.BlockImage, data)
}

// End appends the end-of-file block.
func (c *Container) End() *Container {
	return c.Block(0x01, nil)
}

// Bytes returns the container bytes.
func (c *Container) Bytes() []byte {
	return bytes.Clone(c.buf)
}

// EncodeSurface writes the big-endian surface record.
func EncodeSurface(s gfd.Surface) []byte {
	data := make([]byte, gfd.SurfaceSize)
	fields := []uint32{
		s.Dim, s.Width, s.Height, s.Depth, s.NumMips, uint32(s.Format), s.AA, s.Use,
		s.ImageSize, s.ImagePtr, s.MipSize, s.MipPtr, uint32(s.TileMode), s.Swizzle,
		s.Alignment, s.Pitch,
	}
	fields = append(fields, s.MipOffsets[:]...)
	fields = append(fields, s.ViewFirstMip, s.ViewNumMips, s.ViewFirstSlice, s.ViewNumSlices, s.CompSel)
	fields = append(fields, s.Regs[:]...)
	for i, v := range fields {
		binary.BigEndian.PutUint32(data[4*i:], v)
	}
	return data
}

// Linear returns a surface record for a linear 2D texture.
func Linear(format gfd.Format, width, height, pitch uint32) gfd.Surface {
	return gfd.Surface{
		Dim:     1,
		Width:   width,
		Height:  height,
		Depth:   1,
		NumMips: 1,
		Format:  format,
		Pitch:   pitch,
	}
}

// Tiled returns a surface record for a macro-tiled 2D texture.
func Tiled(format gfd.Format, width, height, pitch, swizzle uint32) gfd.Surface {
	s := Linear(format, width, height, pitch)
	s.TileMode = gfd.Tile2DThin1
	s.Swizzle = swizzle
	return s
}

// Gzip compresses the data with gzip.
func Gzip(data []byte) []byte {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	w.Write(data)
	w.Close()
	return buf.Bytes()
}

// Zstd compresses the data with zstd.
func Zstd(data []byte) []byte {
	enc, _ := zstd.NewWriter(nil)
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}
