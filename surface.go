// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package gtx

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"github.com/kelindar/gtx-sdk/bcn"
	"github.com/kelindar/gtx-sdk/internal/addrlib"
	"github.com/kelindar/gtx-sdk/internal/bitmap"
	"github.com/kelindar/gtx-sdk/internal/gfd"
)

// maxDimension bounds the width and height of a decoded surface
const maxDimension = 16384

// blockDecoder decodes one compressed 4x4 block
type blockDecoder func(block []byte) bcn.Pixels

// blockLayout describes a block-compressed format
type blockLayout struct {
	size   int          // Bytes per block
	bpp    uint32       // Element size in bits for tiled addressing
	decode blockDecoder // Block decompressor
}

var (
	layoutBC1 = blockLayout{size: bcn.BC1BlockSize, bpp: 64, decode: bcn.DecodeBC1}
	layoutBC3 = blockLayout{size: bcn.BC3BlockSize, bpp: 128, decode: bcn.DecodeBC3}
)

// unsupported is a (format, tile mode) combination which was already reported
type unsupported struct {
	format gfd.Format
	tile   gfd.TileMode
}

// reported keeps the unsupported combinations logged so far
var reported sync.Map

// placeholder returns a 1x1 transparent image
func placeholder() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// decodeOrPlaceholder decodes a surface and degrades to a placeholder on failure.
func decodeOrPlaceholder(hint string, surface *gfd.Surface, data []byte, rules addrlib.Rules) *image.RGBA {
	img, err := decodeSurface(hint, surface, data, rules)
	switch {
	case err == nil:
		return img
	case surface != nil && errors.Is(err, ErrUnsupportedFormat):
		key := unsupported{format: surface.Format, tile: surface.TileMode}
		if _, loaded := reported.LoadOrStore(key, struct{}{}); !loaded {
			Logger().Info("gtx: unsupported surface",
				"format", surface.Format.String(),
				"tile", surface.TileMode.String(),
				"path", hint)
		}
	default:
		Logger().Info("gtx: unable to decode surface", "path", hint, "error", err)
	}

	return placeholder()
}

// decodeSurface decodes one surface and its image payload into an RGBA image. The
// hint is the asset path used to pick the tiled addressing variant.
func decodeSurface(hint string, surface *gfd.Surface, data []byte, rules addrlib.Rules) (*image.RGBA, error) {
	switch {
	case surface == nil:
		return nil, fmt.Errorf("%w: missing surface", gfd.ErrMalformed)
	case surface.Width == 0 || surface.Height == 0:
		return nil, fmt.Errorf("%w: invalid dimensions %dx%d", gfd.ErrMalformed, surface.Width, surface.Height)
	case surface.Width > maxDimension || surface.Height > maxDimension:
		return nil, fmt.Errorf("%w: dimensions %dx%d exceed %d", gfd.ErrMalformed, surface.Width, surface.Height, maxDimension)
	}

	var tiled bool
	switch surface.TileMode {
	case gfd.TileLinearGeneral, gfd.TileLinearAligned:
	case gfd.Tile2DThin1:
		tiled = true
	default:
		return nil, fmt.Errorf("%w: %s with %s", ErrUnsupportedFormat, surface.Format, surface.TileMode)
	}

	variant := rules.Select(hint)
	switch surface.Format {
	case gfd.FormatR5G6B5:
		return decodeLinearRGB565(surface, data), nil
	case gfd.FormatR8G8B8A8:
		if tiled {
			return decodeTiledRGBA8(surface, data, variant), nil
		}
		return decodeLinearRGBA8(surface, data), nil
	case gfd.FormatBC1:
		if tiled {
			return decodeTiledBlocks(surface, data, layoutBC1, variant), nil
		}
		return decodeLinearBlocks(surface, data, layoutBC1), nil
	case gfd.FormatBC2, gfd.FormatBC3, gfd.FormatBC4:
		if tiled {
			return decodeTiledBlocks(surface, data, layoutBC3, variant), nil
		}
		return decodeLinearBlocks(surface, data, layoutBC3), nil
	default:
		return nil, fmt.Errorf("%w: %s with %s", ErrUnsupportedFormat, surface.Format, surface.TileMode)
	}
}

// byteAt returns the byte at the offset, or zero when it lies outside of the data
func byteAt(data []byte, offset int) uint8 {
	if offset >= 0 && offset < len(data) {
		return data[offset]
	}
	return 0
}

// copyPixel copies a 4-byte pixel from the source offset, reading zero past the end
func copyPixel(dst []uint8, data []byte, src int) {
	if src >= 0 && src+4 <= len(data) {
		copy(dst[:4], data[src:src+4])
		return
	}

	for i := 0; i < 4; i++ {
		dst[i] = byteAt(data, src+i)
	}
}

// decodeLinearRGBA8 copies rows of 32-bit pixels, the pitch is in pixels
func decodeLinearRGBA8(surface *gfd.Surface, data []byte) *image.RGBA {
	width, height := int(surface.Width), int(surface.Height)
	pitch := int(surface.Pitch)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := y * pitch * 4
		for x := 0; x < width; x++ {
			copyPixel(img.Pix[img.PixOffset(x, y):], data, row+x*4)
		}
	}
	return img
}

// decodeTiledRGBA8 reads every 32-bit pixel through the tiled address translation
func decodeTiledRGBA8(surface *gfd.Surface, data []byte, variant addrlib.Variant) *image.RGBA {
	width, height := int(surface.Width), int(surface.Height)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			addr := variant.Address(uint32(x), uint32(y), 32, surface.Pitch, surface.Swizzle)
			copyPixel(img.Pix[img.PixOffset(x, y):], data, int(addr))
		}
	}
	return img
}

// decodeLinearRGB565 expands little-endian 16-bit pixels, the pitch is in pixels
func decodeLinearRGB565(surface *gfd.Surface, data []byte) *image.RGBA {
	width, height := int(surface.Width), int(surface.Height)
	pitch := int(surface.Pitch)
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		row := y * pitch * 2
		for x := 0; x < width; x++ {
			var c bitmap.RGB565Color
			switch src := row + x*2; {
			case src+2 <= len(data):
				c = bitmap.LittleEndian(data[src:])
			default:
				c = bitmap.RGB565Color(uint16(byteAt(data, src)) | uint16(byteAt(data, src+1))<<8)
			}

			r, g, b := c.Expand()
			i := img.PixOffset(x, y)
			img.Pix[i+0] = r
			img.Pix[i+1] = g
			img.Pix[i+2] = b
			img.Pix[i+3] = 0xFF
		}
	}
	return img
}

// decodeLinearBlocks decodes compressed blocks stored row by row, the pitch is in
// blocks. Blocks that are not fully present are left transparent.
func decodeLinearBlocks(surface *gfd.Surface, data []byte, layout blockLayout) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(surface.Width), int(surface.Height)))
	blocksX, blocksY := blockCount(surface)
	pitch := int(surface.Pitch)
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			src := (by*pitch + bx) * layout.size
			if src < 0 || src+layout.size > len(data) {
				continue
			}

			pixels := layout.decode(data[src : src+layout.size])
			putBlock(img, bx, by, &pixels)
		}
	}
	return img
}

// decodeTiledBlocks decodes compressed blocks located through the tiled address
// translation, with the pitch in blocks.
func decodeTiledBlocks(surface *gfd.Surface, data []byte, layout blockLayout, variant addrlib.Variant) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, int(surface.Width), int(surface.Height)))
	blocksX, blocksY := blockCount(surface)
	for by := 0; by < blocksY; by++ {
		for bx := 0; bx < blocksX; bx++ {
			src := int(variant.Address(uint32(bx), uint32(by), layout.bpp, surface.Pitch, surface.Swizzle))
			if src+layout.size > len(data) {
				continue
			}

			pixels := layout.decode(data[src : src+layout.size])
			putBlock(img, bx, by, &pixels)
		}
	}
	return img
}

// blockCount returns the number of 4x4 blocks covering the surface
func blockCount(surface *gfd.Surface) (int, int) {
	return int(surface.Width+3) / 4, int(surface.Height+3) / 4
}

// putBlock writes the decoded block at block coordinates, clipped to the image
func putBlock(img *image.RGBA, bx, by int, pixels *bcn.Pixels) {
	bounds := img.Bounds()
	x0, y0 := bx*4, by*4
	n := min(4, bounds.Dx()-x0) * 4
	for py := 0; py < 4 && y0+py < bounds.Dy(); py++ {
		i := img.PixOffset(x0, y0+py)
		copy(img.Pix[i:i+n], pixels.Row(py)[:n])
	}
}
