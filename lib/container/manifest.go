// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"bufio"
	"bytes"
	"fmt"
	"strings"

	"github.com/vestige-java/vestige.core/lib/classify"
)

// ManifestName is the entry holding an archive's manifest.
const ManifestName = "META-INF/MANIFEST.MF"

// Manifest attribute names used by this package. Lookups are
// case-insensitive.
const (
	AttributeSpecTitle    = "Specification-Title"
	AttributeSpecVersion  = "Specification-Version"
	AttributeSpecVendor   = "Specification-Vendor"
	AttributeImplTitle    = "Implementation-Title"
	AttributeImplVersion  = "Implementation-Version"
	AttributeImplVendor   = "Implementation-Vendor"
	AttributeSealed       = "Sealed"
	AttributeMultiRelease = "Multi-Release"
)

// Attributes is one manifest section. Keys are stored lowercased.
type Attributes map[string]string

// Get returns the value of the named attribute and whether it is set.
func (a Attributes) Get(name string) (string, bool) {
	value, ok := a[strings.ToLower(name)]
	return value, ok
}

// Manifest is a parsed JAR-style manifest: a main section followed by
// per-entry sections introduced by a "Name:" attribute.
type Manifest struct {
	Main     Attributes
	Sections map[string]Attributes
}

// ParseManifest parses manifest bytes. Lines are "Key: value";
// a line starting with a single space continues the previous value;
// blank lines separate sections. LF, CRLF and CR line endings are all
// accepted.
func ParseManifest(data []byte) (*Manifest, error) {
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	data = bytes.ReplaceAll(data, []byte("\r"), []byte("\n"))

	manifest := &Manifest{Main: Attributes{}, Sections: map[string]Attributes{}}
	current := manifest.Main
	var section Attributes
	lastKey := ""

	// Section names may continue onto later lines, so a section is
	// indexed only once it is complete.
	flush := func() {
		if section != nil {
			manifest.Sections[section["name"]] = section
		}
		section = nil
		current = nil
		lastKey = ""
	}

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 4096), 1<<20)
	lineNumber := 0
	for scanner.Scan() {
		lineNumber++
		line := scanner.Text()

		if line == "" {
			flush()
			continue
		}

		if strings.HasPrefix(line, " ") {
			if lastKey == "" {
				return nil, fmt.Errorf("manifest line %d: continuation without attribute", lineNumber)
			}
			current[lastKey] += line[1:]
			continue
		}

		key, value, found := strings.Cut(line, ":")
		if !found || key == "" {
			return nil, fmt.Errorf("manifest line %d: missing ':' separator", lineNumber)
		}
		key = strings.ToLower(key)

		if current == nil {
			if key != "name" {
				return nil, fmt.Errorf("manifest line %d: section must start with Name, got %q", lineNumber, key)
			}
			section = Attributes{}
			current = section
		}
		current[key] = strings.TrimPrefix(value, " ")
		lastKey = key
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading manifest: %w", err)
	}
	flush()
	return manifest, nil
}

// MultiRelease reports whether the main section declares the archive
// multi-release.
func (m *Manifest) MultiRelease() bool {
	if m == nil {
		return false
	}
	value, _ := m.Main.Get(AttributeMultiRelease)
	return strings.EqualFold(strings.TrimSpace(value), "true")
}

// PackageMetadata returns the metadata for the dotted package pkg: the
// main section's values, overridden attribute by attribute by the
// section named after the package directory ("a/b/" for "a.b").
func (m *Manifest) PackageMetadata(pkg string) PackageMetadata {
	if m == nil {
		return PackageMetadata{}
	}
	metadata := metadataFrom(m.Main, PackageMetadata{})
	if pkg == "" {
		return metadata
	}
	section, ok := m.Sections[classify.PackageDirectory(pkg)]
	if !ok {
		return metadata
	}
	return metadataFrom(section, metadata)
}

func metadataFrom(attributes Attributes, fallback PackageMetadata) PackageMetadata {
	pick := func(name, fallbackValue string) string {
		if value, ok := attributes.Get(name); ok {
			return value
		}
		return fallbackValue
	}
	metadata := PackageMetadata{
		SpecTitle:   pick(AttributeSpecTitle, fallback.SpecTitle),
		SpecVersion: pick(AttributeSpecVersion, fallback.SpecVersion),
		SpecVendor:  pick(AttributeSpecVendor, fallback.SpecVendor),
		ImplTitle:   pick(AttributeImplTitle, fallback.ImplTitle),
		ImplVersion: pick(AttributeImplVersion, fallback.ImplVersion),
		ImplVendor:  pick(AttributeImplVendor, fallback.ImplVendor),
		Sealed:      fallback.Sealed,
	}
	if value, ok := attributes.Get(AttributeSealed); ok {
		metadata.Sealed = strings.EqualFold(strings.TrimSpace(value), "true")
	}
	return metadata
}
