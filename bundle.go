// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package gtx

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"slices"
	"strings"

	"github.com/kelindar/gtx-sdk/internal/addrlib"
	"github.com/kelindar/gtx-sdk/internal/codec"
	"github.com/kelindar/gtx-sdk/internal/gfd"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// bundle is a cache entry, pending until done is closed
type bundle struct {
	done   chan struct{}
	images []*image.RGBA
	err    error
}

// Load returns the images of the bundle at the path. The first request for a path
// starts the retrieval and decode, concurrent and later requests share its result.
// Both successful and failed loads are cached for the lifetime of the SDK.
//
// Decode problems never fail a load, they yield 1x1 transparent placeholders instead.
// Retrieval and decompression failures are returned. The returned images are shared
// with other callers and must not be modified.
func (s *SDK) Load(ctx context.Context, name string) ([]*image.RGBA, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}

	key, err := normalize(name)
	if err != nil {
		return nil, err
	}

	pending := &bundle{done: make(chan struct{})}
	actual, loaded := s.bundles.LoadOrStore(key, pending)
	entry := actual.(*bundle)
	if !loaded {
		go func(ctx context.Context) {
			defer close(entry.done)
			entry.images, entry.err = s.build(ctx, key)
		}(context.WithoutCancel(ctx))
	}

	select {
	case <-entry.done:
		if entry.err != nil {
			return nil, entry.err
		}
		return slices.Clone(entry.images), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// LoadOrPlaceholder loads the bundle at the path, returning a single 1x1 placeholder
// if the load fails for any reason.
func (s *SDK) LoadOrPlaceholder(ctx context.Context, name string) []*image.RGBA {
	images, err := s.Load(ctx, name)
	if err != nil || len(images) == 0 {
		Logger().Info("gtx: using placeholder for bundle", "path", name, "error", err)
		return []*image.RGBA{placeholder()}
	}
	return images
}

// Decode decodes a container held in memory. The name selects the transport
// decompression by its suffix and the tiled addressing variant.
func Decode(name string, data []byte) ([]*image.RGBA, error) {
	raw, err := codec.Decode(data, codec.ForPath(name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompress, name, err)
	}

	return decodeBundle(name, raw, addrlib.DefaultRules()), nil
}

// build runs the retrieval and decode pipeline for a normalized path
func (s *SDK) build(ctx context.Context, name string) ([]*image.RGBA, error) {
	if isRaster(name) {
		return s.loadRaster(ctx, name)
	}

	data, actual, err := s.fetch(ctx, name)
	if err != nil {
		return nil, err
	}

	raw, err := codec.Decode(data, codec.ForPath(actual))
	if err != nil {
		Logger().Warn("gtx: unable to decompress bundle", "path", actual, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrDecompress, actual, err)
	}

	images := decodeBundle(actual, raw, s.rules)
	Logger().Debug("gtx: bundle decoded", "path", actual, "images", len(images))
	if s.slicing {
		if frames := s.slice(ctx, actual, images[0]); len(frames) > 0 {
			return frames, nil
		}
	}

	return images, nil
}

// fetch retrieves the bytes of the path. A failed .gtx retrieval is retried once
// with the .gz suffix, in which case the suffixed path is returned.
func (s *SDK) fetch(ctx context.Context, name string) ([]byte, string, error) {
	if s.fetcher == nil {
		return nil, "", fmt.Errorf("%w: %s: no fetcher configured", ErrFetch, name)
	}

	data, err := s.fetcher.Fetch(ctx, name)
	if err == nil {
		return data, name, nil
	}

	if strings.HasSuffix(strings.ToLower(name), ".gtx") {
		retry := name + codec.CompressionGzip.Suffix()
		Logger().Debug("gtx: retrying with compressed suffix", "path", retry, "error", err)
		if data, err = s.fetcher.Fetch(ctx, retry); err == nil {
			return data, retry, nil
		}
	}

	Logger().Warn("gtx: unable to fetch bundle", "path", name, "error", err)
	return nil, "", fmt.Errorf("%w: %s: %w", ErrFetch, name, err)
}

// decodeBundle parses the container and decodes every surface in file order, the
// result always contains at least one image.
func decodeBundle(name string, data []byte, rules addrlib.Rules) []*image.RGBA {
	pairs, err := gfd.Parse(data)
	switch {
	case err != nil:
		Logger().Info("gtx: unable to parse container", "path", name, "error", err)
		return []*image.RGBA{placeholder()}
	case len(pairs) == 0:
		Logger().Info("gtx: no surface and image pairs in container", "path", name)
		return []*image.RGBA{placeholder()}
	}

	images := make([]*image.RGBA, 0, len(pairs))
	for i, pair := range pairs {
		hint := fmt.Sprintf("%s#%d", name, i)
		images = append(images, decodeOrPlaceholder(hint, pair.Surface, pair.Image, rules))
	}
	return images
}

// ---------------------------------- Raster ----------------------------------

// isRaster returns whether the path is an ordinary image which bypasses the container
func isRaster(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".png", ".jpg", ".jpeg", ".webp":
		return true
	default:
		return false
	}
}

// loadRaster retrieves and decodes an ordinary image into a single RGBA image
func (s *SDK) loadRaster(ctx context.Context, name string) ([]*image.RGBA, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("%w: %s: no fetcher configured", ErrFetch, name)
	}

	data, err := s.fetcher.Fetch(ctx, name)
	if err != nil {
		Logger().Warn("gtx: unable to fetch image", "path", name, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, name, err)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}

	Logger().Debug("gtx: image decoded", "path", name, "format", format)
	return []*image.RGBA{toRGBA(src)}, nil
}

// toRGBA converts an image to RGBA with its origin at (0, 0)
func toRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	if rgba, ok := src.(*image.RGBA); ok && bounds.Min == (image.Point{}) {
		return rgba
	}

	dst := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), src, bounds.Min, draw.Src)
	return dst
}

// ---------------------------------- Paths ----------------------------------

// normalize converts a request path into the form used for retrieval and caching
func normalize(name string) (string, error) {
	p := strings.TrimSpace(name)
	p = strings.ReplaceAll(p, "\\", "/")
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}

	p = strings.TrimLeft(p, "/")
	switch p {
	case "", "null", "undefined":
		return "", fmt.Errorf("%w: '%s'", ErrInvalidPath, name)
	default:
		return p, nil
	}
}
