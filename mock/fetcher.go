// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package mock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"github.com/kelindar/gtx-sdk"
)

var ErrNotFound = errors.New("mock: not found")

var _ gtx.Fetcher = (*Fetcher)(nil)

// Fetcher is an in-memory gtx.Fetcher which counts the requests it serves.
type Fetcher struct {
	mu    sync.Mutex
	files map[string][]byte
	calls map[string]int
	gate  chan struct{}
}

// New creates an empty mock fetcher.
func New() *Fetcher {
	return &Fetcher{
		files: make(map[string][]byte),
		calls: make(map[string]int),
	}
}

// Add registers the given value under the path. Byte slices and strings are stored
// as is, images are encoded as PNG.
func (f *Fetcher) Add(path string, v any) *Fetcher {
	var data []byte
	switch x := v.(type) {
	case []byte:
		data = x
	case string:
		data = []byte(x)
	case image.Image:
		var buffer bytes.Buffer
		if err := png.Encode(&buffer, x); err != nil {
			panic(fmt.Errorf("mock: unable to encode image: %w", err))
		}
		data = buffer.Bytes()
	default:
		panic(fmt.Errorf("mock: unsupported value %T", v))
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = data
	return f
}

// Hold blocks every subsequent fetch until the returned release function is called.
func (f *Fetcher) Hold() (release func()) {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gate = gate
	f.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			f.gate = nil
			f.mu.Unlock()
			close(gate)
		})
	}
}

// Calls returns the number of fetches requested for the path.
func (f *Fetcher) Calls(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

// Total returns the number of fetches requested for all paths.
func (f *Fetcher) Total() (n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.calls {
		n += c
	}
	return
}

// Fetch returns a copy of the data registered under the path.
func (f *Fetcher) Fetch(ctx context.Context, path string) ([]byte, error) {
	f.mu.Lock()
	f.calls[path]++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return bytes.Clone(data), nil
}
