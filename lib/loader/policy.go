// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"fmt"
	"maps"
	"slices"

	"github.com/vestige-java/vestige.core/lib/classify"
)

// AnyContainer is returned by Policy.Locate when every container of
// the node may answer.
const AnyContainer = classify.NoRoute

// Policy hides packages from requests made outside their owning scope.
// A Policy is immutable.
type Policy struct {
	owners map[string]string

	// scopes maps a scope name to an index into containers. When nil,
	// every permitted request may use any container.
	scopes classify.Classifier

	// containers maps an entry name to a container index, one
	// classifier per scope index. When nil, the scope index itself is
	// the container index.
	containers []classify.Classifier
}

// NewPolicy returns a policy over a package to owning-scope map. The
// map is copied. scopes and containers may be nil; see Locate.
func NewPolicy(owners map[string]string, scopes classify.Classifier, containers []classify.Classifier) *Policy {
	return &Policy{owners: maps.Clone(owners), scopes: scopes, containers: containers}
}

// DeriveOwners inverts a scope to packages map. A package claimed by
// two scopes is an error.
func DeriveOwners(packagesByScope map[string][]string) (map[string]string, error) {
	owners := make(map[string]string)
	for _, scope := range slices.Sorted(maps.Keys(packagesByScope)) {
		for _, pkg := range packagesByScope[scope] {
			if previous, exists := owners[pkg]; exists && previous != scope {
				return nil, fmt.Errorf("package %s is owned by both %s and %s", pkg, previous, scope)
			}
			owners[pkg] = scope
		}
	}
	return owners, nil
}

// Owner returns the scope owning the dotted package pkg, or "" when the
// package is unowned.
func (p *Policy) Owner(pkg string) string {
	if p == nil || pkg == "" {
		return ""
	}
	return p.owners[pkg]
}

// Locate decides where a request from scope may find the entry name.
// It returns classify.Denied when name's package belongs to another
// scope, AnyContainer when any container may answer, and otherwise
// the index of the one container allowed to answer.
func (p *Policy) Locate(scope, name string) int {
	if owner := p.Owner(classify.PackageOfResource(name)); owner != "" && owner != scope {
		return classify.Denied
	}
	if p.scopes == nil {
		return AnyContainer
	}
	match := p.scopes.Classify(scope)
	if match < 0 {
		return match
	}
	if p.containers != nil {
		if match >= len(p.containers) || p.containers[match] == nil {
			return AnyContainer
		}
		match = p.containers[match].Classify(name)
	}
	return match
}
