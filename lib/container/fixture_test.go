// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

type fixtureEntry struct {
	name   string
	body   string
	method uint16
}

// writeArchive writes a zip file with the given entries, in order.
func writeArchive(t *testing.T, path string, entries ...fixtureEntry) string {
	t.Helper()
	file, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	defer file.Close()

	writer := zip.NewWriter(file)
	writer.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())
	for _, entry := range entries {
		method := entry.method
		if method == 0 {
			method = zip.Deflate
		}
		part, err := writer.CreateHeader(&zip.FileHeader{Name: entry.name, Method: method})
		if err != nil {
			t.Fatalf("creating entry %s: %v", entry.name, err)
		}
		if _, err := io.WriteString(part, entry.body); err != nil {
			t.Fatalf("writing entry %s: %v", entry.name, err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("finishing %s: %v", path, err)
	}
	return path
}

func readEntry(t *testing.T, entry Entry) string {
	t.Helper()
	reader, err := entry.Open()
	if err != nil {
		t.Fatalf("opening %s: %v", entry.Name(), err)
	}
	defer reader.Close()
	data, err := io.ReadAll(reader)
	if err != nil {
		t.Fatalf("reading %s: %v", entry.Name(), err)
	}
	return string(data)
}

func findString(t *testing.T, c Container, name string) string {
	t.Helper()
	entry, err := c.Find(name)
	if err != nil {
		t.Fatalf("Find(%q) on %s: %v", name, c, err)
	}
	return readEntry(t, entry)
}

func requireNotFound(t *testing.T, c Container, name string) {
	t.Helper()
	if _, err := c.Find(name); !errors.Is(err, ErrEntryNotFound) {
		t.Fatalf("Find(%q) error = %v, want ErrEntryNotFound", name, err)
	}
}

func tempPath(t *testing.T, name string) string {
	t.Helper()
	return filepath.Join(t.TempDir(), name)
}
