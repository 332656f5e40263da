// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/klauspost/compress/zip"
)

// backing is the byte source of an opened archive.
type backing interface {
	io.ReaderAt
	io.Closer
}

// openBacking opens an archive file for reading. Tests replace it to
// observe how many backing handles are opened and closed.
var openBacking = func(path string) (backing, int64, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, 0, err
	}
	return file, info.Size(), nil
}

// archiveState is everything an archive builds when it opens.
type archiveState struct {
	backing backing
	index   *archiveIndex
}

// Archive is a zip-format container opened lazily on first use.
//
// Concurrent first uses may each open the backing file. Exactly one
// opened state is published with a compare-and-swap; every loser
// closes its own state before using the winner's, so at most one
// backing handle stays live.
type Archive struct {
	path    string
	url     string
	options ArchiveOptions

	state  atomic.Pointer[archiveState]
	closed atomic.Bool
}

// NewArchive returns an archive container for the file at path. The
// file is not opened until the first Find or Metadata call.
func NewArchive(path string, options ArchiveOptions) *Archive {
	return &Archive{path: path, url: fileURL(path), options: options}
}

func (a *Archive) open() (*archiveState, error) {
	for {
		if a.closed.Load() {
			return nil, &IOError{Container: a.url, Op: "open", Err: ErrClosed}
		}
		if state := a.state.Load(); state != nil {
			return state, nil
		}

		state, err := openArchiveState(a.path, a.options)
		if err != nil {
			return nil, &IOError{Container: a.url, Op: "open", Err: err}
		}
		if !a.state.CompareAndSwap(nil, state) {
			state.backing.Close()
			continue
		}
		// A Close that ran before the swap saw no state to release.
		if a.closed.Load() && a.state.CompareAndSwap(state, nil) {
			state.backing.Close()
			return nil, &IOError{Container: a.url, Op: "open", Err: ErrClosed}
		}
		return state, nil
	}
}

func openArchiveState(path string, options ArchiveOptions) (*archiveState, error) {
	source, size, err := openBacking(path)
	if err != nil {
		return nil, err
	}
	reader, err := zip.NewReader(source, size)
	if err != nil {
		source.Close()
		return nil, fmt.Errorf("reading central directory: %w", err)
	}
	index, err := buildIndex(reader, options)
	if err != nil {
		source.Close()
		return nil, err
	}
	return &archiveState{backing: source, index: index}, nil
}

// Find returns the entry stored under name, after overlay resolution.
func (a *Archive) Find(name string) (Entry, error) {
	state, err := a.open()
	if err != nil {
		return nil, err
	}
	file, ok := state.index.entries[name]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return newZipEntry(name, file, a.url, state.index.manifest, nil), nil
}

// Metadata returns the manifest metadata for pkg, or the zero value
// when the archive cannot be opened or has no manifest.
func (a *Archive) Metadata(pkg string) PackageMetadata {
	state, err := a.open()
	if err != nil {
		return PackageMetadata{}
	}
	return state.index.manifest.PackageMetadata(pkg)
}

// Manifest returns the parsed manifest, or nil when the archive has
// none.
func (a *Archive) Manifest() (*Manifest, error) {
	state, err := a.open()
	if err != nil {
		return nil, err
	}
	return state.index.manifest, nil
}

// Close releases the backing file. Later operations fail with an
// IOError wrapping ErrClosed. Close is idempotent.
func (a *Archive) Close() error {
	a.closed.Store(true)
	state := a.state.Swap(nil)
	if state == nil {
		return nil
	}
	if err := state.backing.Close(); err != nil {
		return &IOError{Container: a.url, Op: "close", Err: err}
	}
	return nil
}

func (a *Archive) String() string { return a.url }
