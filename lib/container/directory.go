// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// DirectoryContainer serves entries from a filesystem tree. Every Find
// is a filesystem existence check; nothing is cached.
type DirectoryContainer struct {
	root string
	url  string
}

// Directory returns a container rooted at path. The directory is not
// checked until the first Find.
func Directory(path string) *DirectoryContainer {
	return &DirectoryContainer{root: path, url: fileURL(path) + "/"}
}

// Find stats the file at name below the root. Names that would escape
// the root, and names of anything other than a regular file, are
// reported as ErrEntryNotFound.
func (d *DirectoryContainer) Find(name string) (Entry, error) {
	if !filepath.IsLocal(filepath.FromSlash(name)) {
		return nil, ErrEntryNotFound
	}
	path := filepath.Join(d.root, filepath.FromSlash(name))
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, ErrEntryNotFound
		}
		return nil, &IOError{Container: d.url, Op: "stat " + name, Err: err}
	}
	if !info.Mode().IsRegular() {
		return nil, ErrEntryNotFound
	}
	return &fileEntry{name: name, path: path, size: info.Size(), source: d.url}, nil
}

// Metadata always returns the zero value; directories carry no
// manifest identity.
func (d *DirectoryContainer) Metadata(string) PackageMetadata { return PackageMetadata{} }

// Close is a no-op.
func (d *DirectoryContainer) Close() error { return nil }

func (d *DirectoryContainer) String() string { return d.url }

type fileEntry struct {
	name   string
	path   string
	size   int64
	source string
}

func (e *fileEntry) Name() string             { return e.name }
func (e *fileEntry) Size() int64              { return e.size }
func (e *fileEntry) Source() string           { return e.source }
func (e *fileEntry) Signers() []Signer        { return nil }
func (e *fileEntry) Package() PackageMetadata { return PackageMetadata{} }

func (e *fileEntry) Open() (io.ReadCloser, error) {
	file, err := os.Open(e.path)
	if err != nil {
		return nil, &IOError{Container: e.source, Op: "open " + e.name, Err: err}
	}
	return file, nil
}
