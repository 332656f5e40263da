// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"

	"github.com/vestige-java/vestige.core/lib/classify"
)

// DefaultPlatformVersion is the platform feature version used for
// multi-release overlay selection when ArchiveOptions.PlatformVersion
// is zero.
const DefaultPlatformVersion = 21

// DefaultVersionPrefix is the directory holding version-qualified
// overlay entries.
const DefaultVersionPrefix = "META-INF/versions/"

// maxManifestSize bounds how much of a manifest entry is read.
const maxManifestSize = 1 << 20

// MultiReleaseMode controls whether the version overlay is applied.
type MultiReleaseMode int

const (
	// MultiReleaseAuto applies the overlay when the manifest declares
	// "Multi-Release: true".
	MultiReleaseAuto MultiReleaseMode = iota

	// MultiReleaseForce applies the overlay regardless of the manifest.
	MultiReleaseForce

	// MultiReleaseDisable never applies the overlay.
	MultiReleaseDisable
)

// ArchiveOptions configures archive and secure archive containers.
type ArchiveOptions struct {
	// PlatformVersion is the running platform's feature version.
	// Overlay entries under VersionPrefix/<N>/ apply only when
	// N <= PlatformVersion. Zero selects DefaultPlatformVersion; a
	// negative value disables the overlay.
	PlatformVersion int

	// VersionPrefix is the overlay directory. Empty selects
	// DefaultVersionPrefix. A missing trailing slash is added.
	VersionPrefix string

	// MultiRelease overrides the manifest's Multi-Release attribute.
	MultiRelease MultiReleaseMode
}

func (o ArchiveOptions) platformVersion() int {
	if o.PlatformVersion == 0 {
		return DefaultPlatformVersion
	}
	return o.PlatformVersion
}

func (o ArchiveOptions) versionPrefix() string {
	prefix := o.VersionPrefix
	if prefix == "" {
		prefix = DefaultVersionPrefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return prefix
}

// archiveIndex is the immutable result of one pass over an archive's
// central directory.
type archiveIndex struct {
	entries  map[string]*zip.File
	manifest *Manifest
}

// registerDecompressors installs the decompressors this package reads
// on one zip reader. Registration is per reader so nothing global is
// mutated.
func registerDecompressors(reader *zip.Reader) {
	reader.RegisterDecompressor(zip.Deflate, flate.NewReader)
	reader.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	reader.RegisterDecompressor(zstd.ZipMethodPKWare, zstd.ZipDecompressor())
}

// buildIndex reads the manifest and resolves the multi-release overlay.
// For every logical name the highest qualifying version wins; the
// qualified entries stay reachable under their full names as well.
func buildIndex(reader *zip.Reader, options ArchiveOptions) (*archiveIndex, error) {
	registerDecompressors(reader)

	index := &archiveIndex{entries: make(map[string]*zip.File, len(reader.File))}
	for _, file := range reader.File {
		if strings.HasSuffix(file.Name, "/") {
			continue
		}
		// First entry wins when an archive repeats a name.
		if _, exists := index.entries[file.Name]; !exists {
			index.entries[file.Name] = file
		}
	}

	if file, ok := index.entries[ManifestName]; ok {
		manifest, err := readManifest(file)
		if err != nil {
			return nil, err
		}
		index.manifest = manifest
	}

	if !overlayEnabled(index.manifest, options) {
		return index, nil
	}

	platform := options.platformVersion()
	prefix := options.versionPrefix()
	chosen := make(map[string]int)
	overrides := make(map[string]*zip.File)
	for name, file := range index.entries {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok {
			continue
		}
		versionText, logical, ok := strings.Cut(rest, "/")
		if !ok || logical == "" {
			continue
		}
		version, err := strconv.Atoi(versionText)
		if err != nil || version <= 0 || version > platform {
			continue
		}
		if best, seen := chosen[logical]; seen && best >= version {
			continue
		}
		chosen[logical] = version
		overrides[logical] = file
	}
	for logical, file := range overrides {
		index.entries[logical] = file
	}
	return index, nil
}

func overlayEnabled(manifest *Manifest, options ArchiveOptions) bool {
	if options.PlatformVersion < 0 {
		return false
	}
	switch options.MultiRelease {
	case MultiReleaseForce:
		return true
	case MultiReleaseDisable:
		return false
	default:
		return manifest.MultiRelease()
	}
}

func readManifest(file *zip.File) (*Manifest, error) {
	reader, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	defer reader.Close()
	data, err := io.ReadAll(io.LimitReader(reader, maxManifestSize))
	if err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	return ParseManifest(data)
}

// zipEntry is an entry of an archive or secure archive.
type zipEntry struct {
	name     string
	file     *zip.File
	source   string
	signers  []Signer
	metadata PackageMetadata
}

func newZipEntry(name string, file *zip.File, source string, manifest *Manifest, signers []Signer) *zipEntry {
	return &zipEntry{
		name:     name,
		file:     file,
		source:   source,
		signers:  signers,
		metadata: manifest.PackageMetadata(classify.PackageOfResource(name)),
	}
}

func (e *zipEntry) Name() string             { return e.name }
func (e *zipEntry) Source() string           { return e.source }
func (e *zipEntry) Signers() []Signer        { return e.signers }
func (e *zipEntry) Package() PackageMetadata { return e.metadata }

func (e *zipEntry) Size() int64 {
	if e.file.UncompressedSize64 > 1<<62 {
		return -1
	}
	return int64(e.file.UncompressedSize64)
}

func (e *zipEntry) Open() (io.ReadCloser, error) {
	reader, err := e.file.Open()
	if err != nil {
		return nil, &IOError{Container: e.source, Op: "open " + e.name, Err: err}
	}
	return reader, nil
}
