// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package gfd reads GX2 texture containers (.gtx), the "Gfx2" file format made of a
// header followed by "BLK{" blocks. Surface blocks describe a texture and the image
// block that follows carries its pixels.
//
// Container and surface fields are big-endian.
package gfd

import (
	"encoding/binary"
	"errors"
	"fmt"
	"iter"
)

// Standard container format errors
var (
	ErrBadMagic  = errors.New("gfd: bad magic")
	ErrTruncated = errors.New("gfd: truncated")
	ErrMalformed = errors.New("gfd: malformed")
)

const (
	fileMagic  = "Gfx2"
	blockMagic = "BLK{"

	// HeaderSize is the fixed size of a block header, also the minimum file size.
	HeaderSize = 0x20
)

// BlockType identifies the content of a block.
type BlockType uint32

// Block types
const (
	BlockSurface BlockType = 0x0B
	BlockImage   BlockType = 0x0C
	BlockMip     BlockType = 0x0D
)

// Block is a single block of the container.
type Block struct {
	Offset int       // Offset of the block header in the file
	Type   BlockType // Type of the payload
	Data   []byte    // Payload, shares memory with the file
}

// Pair is a surface along with the image payload that followed it.
type Pair struct {
	Surface *Surface
	Image   []byte
}

// Blocks returns an iterator over the blocks of the container. Iteration stops at the
// first position that does not start with a block tag or leaves less than a block
// header. A block whose payload would run past the end yields ErrTruncated and ends
// the iteration.
func Blocks(data []byte) iter.Seq2[Block, error] {
	return func(yield func(Block, error) bool) {
		if err := validate(data); err != nil {
			yield(Block{}, err)
			return
		}

		offset := uint64(binary.BigEndian.Uint32(data[4:8]))
		size := uint64(len(data))
		for offset+HeaderSize <= size && string(data[offset:offset+4]) == blockMagic {
			head := data[offset : offset+HeaderSize]
			headSize := uint64(binary.BigEndian.Uint32(head[4:8]))
			kind := BlockType(binary.BigEndian.Uint32(head[16:20]))
			dataSize := uint64(binary.BigEndian.Uint32(head[20:24]))

			start := offset + headSize
			end := start + dataSize
			switch {
			case end > size:
				yield(Block{}, fmt.Errorf("%w: block at 0x%x needs %d bytes, file has %d",
					ErrTruncated, offset, end, size))
				return
			case end <= offset:
				yield(Block{}, fmt.Errorf("%w: empty block at 0x%x", ErrMalformed, offset))
				return
			}

			if !yield(Block{
				Offset: int(offset),
				Type:   kind,
				Data:   data[start:end],
			}, nil) {
				return
			}

			offset = end
		}
	}
}

// Parse walks the container and pairs every image block with the surface block
// most recently seen before it, in file order. Image blocks without a preceding
// surface and blocks of other types are skipped, as are surface records that are
// too short. Finding no pairs is not an error.
func Parse(data []byte) ([]Pair, error) {
	var pairs []Pair
	var current *Surface
	for block, err := range Blocks(data) {
		if err != nil {
			return nil, err
		}

		switch block.Type {
		case BlockSurface:
			surface := new(Surface)
			if err := surface.UnmarshalBinary(block.Data); err != nil {
				continue
			}
			current = surface
		case BlockImage:
			if current != nil {
				pairs = append(pairs, Pair{Surface: current, Image: block.Data})
			}
		}
	}

	return pairs, nil
}

// validate checks the file header
func validate(data []byte) error {
	switch {
	case len(data) < 4:
		return fmt.Errorf("%w: file is %d bytes", ErrTruncated, len(data))
	case string(data[0:4]) != fileMagic:
		return fmt.Errorf("%w: expected %q, got %q", ErrBadMagic, fileMagic, data[0:4])
	case len(data) < HeaderSize:
		return fmt.Errorf("%w: file is %d bytes, need at least %d", ErrTruncated, len(data), HeaderSize)
	default:
		return nil
	}
}
