// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import "github.com/vestige-java/vestige.core/lib/container"

// DefinedPackage is the identity a node recorded for a package when it
// first served one of its code units.
type DefinedPackage struct {
	Name     string
	Metadata container.PackageMetadata

	// SealBase is the source of the defining entry when the package is
	// sealed, and empty otherwise.
	SealBase string
}

// Sealed reports whether the package is sealed.
func (p DefinedPackage) Sealed() bool { return p.SealBase != "" }

// DefinedPackage returns the identity recorded for the dotted package
// pkg, if any code unit of it has been served by this node.
func (n *Node) DefinedPackage(pkg string) (DefinedPackage, bool) {
	n.packagesMu.Lock()
	defer n.packagesMu.Unlock()
	defined, ok := n.packages[pkg]
	return defined, ok
}

// checkPackage defines pkg from entry on first use and verifies later
// entries against the recorded identity. Packages owned by a named
// scope and code units outside any package are exempt.
func (n *Node) checkPackage(pkg string, entry container.Entry) error {
	if pkg == "" || n.policy.Owner(pkg) != "" {
		return nil
	}
	metadata := entry.Package()

	n.packagesMu.Lock()
	defer n.packagesMu.Unlock()

	defined, ok := n.packages[pkg]
	if !ok {
		defined = DefinedPackage{Name: pkg, Metadata: metadata}
		if metadata.Sealed {
			defined.SealBase = entry.Source()
		}
		n.packages[pkg] = defined
		return nil
	}
	if defined.Sealed() {
		if defined.SealBase != entry.Source() {
			return &SealViolationError{Package: pkg, Reason: "is sealed"}
		}
		return nil
	}
	if metadata.Sealed {
		return &SealViolationError{Package: pkg, Reason: "cannot be sealed: already defined"}
	}
	return nil
}
