// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

//go:build darwin || linux

package container

import (
	"fmt"
	"net/url"
	"sync"

	"github.com/klauspost/compress/zip"
)

// SecureArchive is a zip-format container read from a SecureFile.
// The central directory and manifest are parsed once, under the
// snapshot, and every entry carries the snapshot digest as its signer.
//
// Unlike Archive, the first use opens under a mutex, so the directory
// is parsed exactly once.
type SecureArchive struct {
	file    *SecureFile
	url     string
	options ArchiveOptions

	mu      sync.Mutex
	index   *archiveIndex
	signers []Signer
	closed  bool
}

// NewSecureArchive returns a container over file. Closing the archive
// releases only the parsed directory; the caller owns file and closes
// it when the snapshot is no longer needed.
func NewSecureArchive(file *SecureFile, options ArchiveOptions) *SecureArchive {
	source := (&url.URL{Scheme: "secure", Path: fileURLPath(file.Path())}).String()
	return &SecureArchive{file: file, url: source, options: options}
}

func (s *SecureArchive) open() (*archiveIndex, []Signer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, &IOError{Container: s.url, Op: "open", Err: ErrClosed}
	}
	if s.index != nil {
		return s.index, s.signers, nil
	}

	digest, err := s.file.Digest()
	if err != nil {
		return nil, nil, &IOError{Container: s.url, Op: "digest", Err: err}
	}
	reader, err := zip.NewReader(s.file, s.file.Size())
	if err != nil {
		return nil, nil, &IOError{Container: s.url, Op: "open", Err: fmt.Errorf("reading central directory: %w", err)}
	}
	index, err := buildIndex(reader, s.options)
	if err != nil {
		return nil, nil, &IOError{Container: s.url, Op: "open", Err: err}
	}
	s.index = index
	s.signers = []Signer{{Algorithm: digestAlgorithm, Digest: digest}}
	return s.index, s.signers, nil
}

// Find returns the entry stored under name.
func (s *SecureArchive) Find(name string) (Entry, error) {
	index, signers, err := s.open()
	if err != nil {
		return nil, err
	}
	file, ok := index.entries[name]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return newZipEntry(name, file, s.url, index.manifest, signers), nil
}

// Metadata returns the manifest metadata for pkg.
func (s *SecureArchive) Metadata(pkg string) PackageMetadata {
	index, _, err := s.open()
	if err != nil {
		return PackageMetadata{}
	}
	return index.manifest.PackageMetadata(pkg)
}

// Digest returns the snapshot digest that entries report as signer.
func (s *SecureArchive) Digest() (Digest, error) {
	return s.file.Digest()
}

// Close drops the parsed directory. It does not close the SecureFile.
func (s *SecureArchive) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.index = nil
	s.signers = nil
	return nil
}

func (s *SecureArchive) String() string { return s.url }
