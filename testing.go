// Copyright (c) Roman Atachiants and contributors. All rights reserved.
// Licensed under the MIT license. See LICENSE file in the project root for details.

package gtx

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestWith writes the files into a temporary asset directory, opens an SDK on it and
// passes it to the test function. The SDK is closed once the test function returns.
func TestWith(t *testing.T, files map[string][]byte, testFn func(*testing.T, *SDK), opts ...Option) {
	t.Helper()
	root := t.TempDir()
	for name, data := range files {
		require.NoError(t, writeFile(root, name, data), "failed to write asset file")
	}

	sdk, err := Open(root, opts...)
	require.NoError(t, err, "failed to open SDK with test asset directory")
	require.NotNil(t, sdk, "SDK instance should not be nil")
	defer sdk.Close()

	testFn(t, sdk)
}

// writeFile writes an asset file under the root, creating its directories
func writeFile(root, name string, data []byte) error {
	path := filepath.Join(root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
