// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package source retrieves raw asset bytes by relative path, either from a local
// directory or from an HTTP origin.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/go-mmap/mmap"
)

// Standard source errors
var (
	ErrNotFound    = errors.New("source: not found")
	ErrInvalidPath = errors.New("source: invalid path")
)

// clean converts a request path into a slash separated path relative to the root
func clean(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimLeft(name, "/")
	if name == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}

	cleaned := path.Clean(name)
	if !filepath.IsLocal(filepath.FromSlash(cleaned)) {
		return "", fmt.Errorf("%w: '%s' escapes the root", ErrInvalidPath, name)
	}
	return cleaned, nil
}

// ---------------------------------- Directory ----------------------------------

// Dir reads assets from a local directory through memory-mapped files.
type Dir struct {
	root string
}

// NewDir creates a directory source, verifying that the root exists and is a directory.
func NewDir(root string) (*Dir, error) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("source: directory '%s' does not exist: %w", root, err)
		}
		return nil, fmt.Errorf("source: failed to access directory '%s': %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("source: provided path '%s' is not a directory", root)
	}

	return &Dir{root: root}, nil
}

// Root returns the directory the source reads from.
func (d *Dir) Root() string {
	return d.root
}

// Fetch reads the whole file at the relative path.
func (d *Dir) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rel, err := clean(name)
	if err != nil {
		return nil, err
	}

	filename := filepath.Join(d.root, filepath.FromSlash(rel))
	switch info, err := os.Stat(filename); {
	case errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	case err != nil:
		return nil, fmt.Errorf("source: unable to access '%s': %w", rel, err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: '%s' is a directory", ErrInvalidPath, rel)
	case info.Size() == 0:
		return []byte{}, nil
	}

	file, err := mmap.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("source: unable to open '%s': %w", rel, err)
	}
	defer file.Close()

	// Copy out of the mapping so the result outlives the file
	data := make([]byte, file.Len())
	if _, err := file.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, fmt.Errorf("source: unable to read '%s': %w", rel, err)
	}
	return data, nil
}

// ---------------------------------- HTTP ----------------------------------

// HTTP reads assets relative to a base URL.
type HTTP struct {
	base   *url.URL
	client *http.Client
}

// NewHTTP creates an HTTP source for the base URL. A nil client uses a client with
// a 30 second timeout.
func NewHTTP(base string, client *http.Client) (*HTTP, error) {
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("source: invalid base url '%s': %w", base, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("source: unsupported url scheme '%s'", u.Scheme)
	}

	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTP{base: u, client: client}, nil
}

// Fetch downloads the asset at the relative path.
func (h *HTTP) Fetch(ctx context.Context, name string) ([]byte, error) {
	rel, err := clean(name)
	if err != nil {
		return nil, err
	}

	target := h.base.JoinPath(rel)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("source: unable to create request for '%s': %w", rel, err)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("source: unable to fetch '%s': %w", rel, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrNotFound, rel)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("source: unexpected status %d for '%s'", resp.StatusCode, rel)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("source: unable to read '%s': %w", rel, err)
	}
	return data, nil
}
