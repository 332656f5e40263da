// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

// ResourceEncapsulationClassifier forces a fixed code for resources in
// encapsulated packages and defers to a delegate for everything else.
type ResourceEncapsulationClassifier struct {
	delegate Classifier
	packages map[string]struct{}
	code     int
}

// ResourceEncapsulation wraps delegate. Resources whose package is in
// packages classify as code. Code unit entries (names ending in
// [CodeUnitSuffix]) and names without a package always go to the
// delegate.
func ResourceEncapsulation(delegate Classifier, packages []string, code int) *ResourceEncapsulationClassifier {
	set := make(map[string]struct{}, len(packages))
	for _, pkg := range packages {
		set[pkg] = struct{}{}
	}
	return &ResourceEncapsulationClassifier{delegate: delegate, packages: set, code: code}
}

// Classify applies the encapsulation override.
func (r *ResourceEncapsulationClassifier) Classify(name string) int {
	if IsCodeUnitEntry(name) {
		return r.delegate.Classify(name)
	}
	pkg := PackageOfResource(name)
	if pkg != "" {
		if _, encapsulated := r.packages[pkg]; encapsulated {
			return r.code
		}
	}
	return r.delegate.Classify(name)
}
