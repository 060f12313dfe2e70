// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

// gtxconv decodes GX2 texture bundles into PNG files.
//
// Usage:
//
//	gtxconv [flags] <root> <path>...
//
// The root is either a local asset directory or an http(s) URL. Every decoded image
// of a bundle is written as <name>.<index>.png into the output directory.
package main

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/kelindar/gtx-sdk"
	"github.com/spf13/pflag"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	var output string
	var slice, verbose bool
	var timeout time.Duration

	flagSet := pflag.NewFlagSet("gtxconv", pflag.ContinueOnError)
	flagSet.StringVarP(&output, "out", "o", ".", "directory to write the PNG files into")
	flagSet.BoolVar(&slice, "slice", false, "slice actor atlases using their sidecar .json")
	flagSet.BoolVarP(&verbose, "verbose", "v", false, "log decoder diagnostics to stderr")
	flagSet.DurationVar(&timeout, "timeout", time.Minute, "timeout for loading each bundle")
	flagSet.BoolP("help", "h", false, "show help")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			printHelp(flagSet)
			return nil
		}
		return err
	}

	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}

	rest := flagSet.Args()
	if len(rest) < 2 {
		printHelp(flagSet)
		return errors.New("expected a root and at least one path")
	}

	if verbose {
		gtx.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	sdk, err := open(rest[0], gtx.WithAtlasSlicing(slice))
	if err != nil {
		return err
	}
	defer sdk.Close()

	if err := os.MkdirAll(output, 0o755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	var failed int
	for _, name := range rest[1:] {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		images, err := sdk.Load(ctx, name)
		cancel()
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}

		for i, img := range images {
			target := filepath.Join(output, fmt.Sprintf("%s.%d.png", baseName(name), i))
			if err := writePNG(target, img); err != nil {
				return err
			}
			fmt.Printf("%s -> %s (%dx%d)\n", name, target, img.Bounds().Dx(), img.Bounds().Dy())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d bundles failed to load", failed, len(rest)-1)
	}
	return nil
}

// open creates an SDK for a directory or an http(s) URL
func open(root string, opts ...gtx.Option) (*gtx.SDK, error) {
	if strings.HasPrefix(root, "http://") || strings.HasPrefix(root, "https://") {
		return gtx.OpenURL(root, opts...)
	}
	return gtx.Open(root, opts...)
}

// baseName returns the file name of the path without its extensions
func baseName(name string) string {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if i := strings.IndexByte(base, '.'); i > 0 {
		base = base[:i]
	}
	return base
}

// writePNG encodes the image into the file
func writePNG(filename string, img image.Image) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", filename, err)
	}

	if err := png.Encode(file, img); err != nil {
		file.Close()
		return fmt.Errorf("unable to encode %s: %w", filename, err)
	}
	return file.Close()
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `gtxconv decodes GX2 texture bundles into PNG files.

Usage:
  gtxconv [flags] <root> <path>...

The root is a local asset directory or an http(s) URL. Paths are relative to it,
a missing .gtx is retried as .gtx.gz.

Flags:
`)
	flagSet.PrintDefaults()
}
