// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// Package codec undoes the transport compression that asset files are shipped with,
// chosen by the suffix of their path.
package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// ErrUnknown is returned for a compression the codec does not implement.
var ErrUnknown = errors.New("codec: unknown compression")

// Compression identifies a transport compression.
type Compression int

// Compression constants
const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
)

// String returns the name of the compression
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// Suffix returns the path suffix that marks this compression.
func (c Compression) Suffix() string {
	switch c {
	case CompressionGzip:
		return ".gz"
	case CompressionZstd:
		return ".zst"
	default:
		return ""
	}
}

// ForPath returns the compression marked by the suffix of the path, ignoring case.
func ForPath(path string) Compression {
	p := strings.ToLower(path)
	switch {
	case strings.HasSuffix(p, ".gz"):
		return CompressionGzip
	case strings.HasSuffix(p, ".zst"):
		return CompressionZstd
	default:
		return CompressionNone
	}
}

// Decode decompresses the data. Uncompressed data is returned as is.
func Decode(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompressionNone:
		return data, nil
	case CompressionGzip:
		return decodeGzip(data)
	case CompressionZstd:
		return decodeZstd(data)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknown, int(c))
	}
}

// decodeGzip decompresses gzip data, including multi-member streams
func decodeGzip(data []byte) ([]byte, error) {
	reader, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create gzip reader: %w", err)
	}
	defer reader.Close()

	out, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to inflate gzip data: %w", err)
	}
	return out, nil
}

// decoder is shared since zstd decoders are safe for concurrent DecodeAll
var decoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

// decodeZstd decompresses zstd data
func decodeZstd(data []byte) ([]byte, error) {
	out, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decode zstd data: %w", err)
	}
	return out, nil
}
