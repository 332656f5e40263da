// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
)

// ErrEntryNotFound is returned by Find when the container has no entry
// with the requested name.
var ErrEntryNotFound = errors.New("entry not found")

// ErrClosed is wrapped in the IOError returned by operations on a
// container after Close.
var ErrClosed = errors.New("container closed")

// Container is a read-only source of named entries.
type Container interface {
	// Find returns the entry stored under name. It returns
	// ErrEntryNotFound on a miss and an *IOError when the backing
	// source cannot be read.
	Find(name string) (Entry, error)

	// Metadata returns the package metadata that applies to the dotted
	// package pkg. Containers without a manifest return the zero value.
	Metadata(pkg string) PackageMetadata

	// Close releases the backing source. Close is idempotent.
	Close() error

	// String returns the provenance URL of the container.
	String() string
}

// Entry is one named artifact inside a container. Entries are
// immutable once returned.
type Entry interface {
	// Name is the entry name used to find it.
	Name() string

	// Size is the uncompressed size in bytes, or -1 when unknown.
	Size() int64

	// Open streams the entry's bytes.
	Open() (io.ReadCloser, error)

	// Source is the provenance URL of the originating container.
	Source() string

	// Signers is opaque signer data. Only entries from secure
	// archives carry any.
	Signers() []Signer

	// Package is the metadata of the entry's owning package.
	Package() PackageMetadata
}

// PackageMetadata is the identity a manifest assigns to a package.
type PackageMetadata struct {
	SpecTitle   string `json:"spec_title,omitempty"`
	SpecVersion string `json:"spec_version,omitempty"`
	SpecVendor  string `json:"spec_vendor,omitempty"`
	ImplTitle   string `json:"impl_title,omitempty"`
	ImplVersion string `json:"impl_version,omitempty"`
	ImplVendor  string `json:"impl_vendor,omitempty"`
	Sealed      bool   `json:"sealed,omitempty"`
}

// Signer identifies the verified snapshot an entry was read from.
type Signer struct {
	// Algorithm names the digest algorithm, e.g. "blake3-keyed".
	Algorithm string `json:"algorithm"`

	// Digest is the digest of the whole snapshot.
	Digest Digest `json:"digest"`
}

// IOError reports a failure to open or read a container's backing
// source.
type IOError struct {
	Container string
	Op        string
	Err       error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("container %s: %s: %v", e.Container, e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// fileURL returns the file:// URL of path, made absolute when possible.
func fileURL(path string) string {
	return (&url.URL{Scheme: "file", Path: fileURLPath(path)}).String()
}

func fileURLPath(path string) string {
	if absolute, err := filepath.Abs(path); err == nil {
		path = absolute
	}
	return filepath.ToSlash(path)
}
