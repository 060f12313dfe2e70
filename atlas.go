// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package gtx

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/tidwall/jsonc"
	"golang.org/x/image/draw"
)

// atlasDocument is the part of an actor description used for slicing. Actor files
// look like {"animations":[{"cells":[{"size":{...},"imageTable":[{"x":0,"y":0}]}]}]}.
type atlasDocument struct {
	Animations []*struct {
		Cells []*atlasCell `json:"cells"`
	} `json:"animations"`
}

// atlasCell describes equally sized frames and their origin in the atlas
type atlasCell struct {
	Size       *atlasSize     `json:"size"`
	ImageTable []*atlasOrigin `json:"imageTable"`
}

// atlasSize is the frame size, either as x/y or as width/height
type atlasSize struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// atlasOrigin is the top-left corner of a frame in the atlas
type atlasOrigin struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// sidecarPath returns the .json path next to an actor atlas, or false if the
// path is not an actor atlas.
func sidecarPath(name string) (string, bool) {
	lower := strings.ToLower(name)
	if !strings.HasPrefix(lower, "actor2ddata/") && !strings.Contains(lower, "/actor2ddata/") {
		return "", false
	}

	for _, ext := range []string{".gtx.gz", ".gtx.zst", ".gtx"} {
		if strings.HasSuffix(lower, ext) {
			return name[:len(name)-len(ext)] + ".json", true
		}
	}
	return "", false
}

// slice crops the atlas into the frames described by its sidecar. It returns nil
// when there is no usable sidecar.
func (s *SDK) slice(ctx context.Context, name string, atlas *image.RGBA) []*image.RGBA {
	sidecar, ok := sidecarPath(name)
	if !ok {
		return nil
	}

	data, err := s.fetcher.Fetch(ctx, sidecar)
	if err != nil || len(data) == 0 {
		return nil
	}

	frames, err := sliceAtlas(atlas, data)
	if err != nil {
		Logger().Info("gtx: unable to slice atlas", "path", name, "sidecar", sidecar, "error", err)
		return nil
	}

	Logger().Debug("gtx: atlas sliced", "path", name, "frames", len(frames))
	return frames
}

// sliceAtlas crops the atlas according to the first cell with a size and at least one
// frame. Parts of a frame outside of the atlas are transparent.
func sliceAtlas(atlas *image.RGBA, data []byte) ([]*image.RGBA, error) {
	var doc atlasDocument
	if err := json.Unmarshal(jsonc.ToJSON(data), &doc); err != nil {
		return nil, fmt.Errorf("invalid sidecar: %w", err)
	}

	cell := firstCell(&doc)
	if cell == nil {
		return nil, nil
	}

	width := dimension(cell.Size.X, cell.Size.Width)
	height := dimension(cell.Size.Y, cell.Size.Height)
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return nil, fmt.Errorf("invalid frame size %dx%d", width, height)
	}

	frames := make([]*image.RGBA, 0, len(cell.ImageTable))
	for _, origin := range cell.ImageTable {
		if origin == nil {
			continue
		}

		frame := image.NewRGBA(image.Rect(0, 0, width, height))
		at := image.Pt(truncate(origin.X), truncate(origin.Y))
		draw.Draw(frame, frame.Bounds(), atlas, at, draw.Src)
		frames = append(frames, frame)
	}
	return frames, nil
}

// firstCell returns the first cell with a size and a non-empty image table
func firstCell(doc *atlasDocument) *atlasCell {
	for _, anim := range doc.Animations {
		if anim == nil {
			continue
		}

		for _, cell := range anim.Cells {
			if cell != nil && cell.Size != nil && len(cell.ImageTable) > 0 {
				return cell
			}
		}
	}
	return nil
}

// dimension picks the primary value, falling back to the alternative when it is zero
func dimension(primary, alternative float64) int {
	if primary != 0 {
		return truncate(primary)
	}
	return truncate(alternative)
}

// truncate converts a coordinate to an integer, dropping the fraction
func truncate(v float64) int {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > math.MaxInt32 {
		return 0
	}
	return int(math.Trunc(v))
}
