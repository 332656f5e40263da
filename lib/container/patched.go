// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"errors"
	"fmt"

	"github.com/vestige-java/vestige.core/lib/classify"
)

// PatchedContainer overlays the entries of a patch container on an
// original container.
type PatchedContainer struct {
	original          Container
	patch             Container
	metadataFromPatch bool
}

// Patched returns a container that asks patch first and falls back to
// original on a miss. Package metadata always comes from one side:
// patch when metadataFromPatch is set, original otherwise.
func Patched(original, patch Container, metadataFromPatch bool) *PatchedContainer {
	return &PatchedContainer{original: original, patch: patch, metadataFromPatch: metadataFromPatch}
}

// Find asks the patch, then the original. An IO failure in the patch
// is returned rather than masked by the original's entry.
func (p *PatchedContainer) Find(name string) (Entry, error) {
	entry, err := p.patch.Find(name)
	if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return nil, err
	}
	if err != nil {
		entry, err = p.original.Find(name)
		if err != nil {
			return nil, err
		}
	}
	return &patchedEntry{Entry: entry, metadata: p.metadataSide()}, nil
}

func (p *PatchedContainer) metadataSide() Container {
	if p.metadataFromPatch {
		return p.patch
	}
	return p.original
}

// Metadata returns the designated side's metadata for pkg.
func (p *PatchedContainer) Metadata(pkg string) PackageMetadata {
	return p.metadataSide().Metadata(pkg)
}

// Close closes the patch, then the original, and joins their errors.
func (p *PatchedContainer) Close() error {
	return errors.Join(p.patch.Close(), p.original.Close())
}

func (p *PatchedContainer) String() string {
	return fmt.Sprintf("%s+%s", p.original, p.patch)
}

// patchedEntry reports package metadata from the designated side
// regardless of which side supplied the bytes.
type patchedEntry struct {
	Entry
	metadata Container
}

func (e *patchedEntry) Package() PackageMetadata {
	return e.metadata.Metadata(classify.PackageOfResource(e.Name()))
}
