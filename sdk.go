// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package gtx

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kelindar/gtx-sdk/internal/addrlib"
	"github.com/kelindar/gtx-sdk/internal/source"
)

// Standard errors returned by the SDK
var (
	ErrUnsupportedFormat = errors.New("gtx: unsupported surface format")
	ErrFetch             = errors.New("gtx: unable to fetch")
	ErrDecompress        = errors.New("gtx: unable to decompress")
	ErrDecode            = errors.New("gtx: unable to decode image")
	ErrInvalidPath       = errors.New("gtx: invalid path")
	ErrClosed            = errors.New("gtx: sdk is closed")
)

// Fetcher retrieves the raw bytes of an asset by its relative path.
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Option configures the SDK
type Option func(*SDK)

// WithAtlasSlicing enables cropping of actor atlases into frames described by a
// sibling .json file.
func WithAtlasSlicing(enabled bool) Option {
	return func(s *SDK) {
		s.slicing = enabled
	}
}

// WithLegacyPaths adds path substrings whose tiled surfaces use the legacy addressing.
// They are matched case-insensitively, before the built-in table.
func WithLegacyPaths(patterns ...string) Option {
	return func(s *SDK) {
		rules := make(addrlib.Rules, 0, len(patterns)+len(s.rules))
		for _, p := range patterns {
			if p = strings.TrimSpace(p); p != "" {
				rules = append(rules, addrlib.Rule{
					Match:   strings.ToLower(strings.ReplaceAll(p, "\\", "/")),
					Variant: addrlib.Legacy,
				})
			}
		}
		s.rules = append(rules, s.rules...)
	}
}

// WithHTTPClient sets the client used by OpenURL.
func WithHTTPClient(client *http.Client) Option {
	return func(s *SDK) {
		s.client = client
	}
}

// SDK loads and decodes texture bundles. Every distinct path is retrieved and decoded
// at most once, results are kept for the lifetime of the SDK.
type SDK struct {
	fetcher Fetcher       // Source of raw asset bytes
	rules   addrlib.Rules // Addressing variant table
	client  *http.Client  // Client for the HTTP source
	slicing bool          // Whether actor atlases are sliced
	bundles sync.Map      // Normalized path to *bundle
	closed  atomic.Bool
}

// Open creates an SDK reading assets from a local directory. It verifies that the
// provided path exists and is a directory.
func Open(directory string, opts ...Option) (*SDK, error) {
	dir, err := source.NewDir(directory)
	if err != nil {
		return nil, err
	}

	return New(dir, opts...), nil
}

// OpenURL creates an SDK reading assets relative to a base URL.
func OpenURL(baseURL string, opts ...Option) (*SDK, error) {
	sdk := New(nil, opts...)
	remote, err := source.NewHTTP(baseURL, sdk.client)
	if err != nil {
		return nil, err
	}

	sdk.fetcher = remote
	return sdk, nil
}

// New creates an SDK reading assets through the provided fetcher.
func New(fetcher Fetcher, opts ...Option) *SDK {
	sdk := &SDK{
		fetcher: fetcher,
		rules:   addrlib.DefaultRules(),
	}

	for _, opt := range opts {
		opt(sdk)
	}
	return sdk
}

// Close drops every cached bundle. Loads issued afterwards fail with ErrClosed.
func (s *SDK) Close() error {
	s.closed.Store(true)
	s.bundles.Range(func(key, _ any) bool {
		s.bundles.Delete(key)
		return true
	})
	return nil
}
