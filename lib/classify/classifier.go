// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

// Route code sentinels. Any negative code means "no route"; these two
// are the values produced by the classifiers in this package.
const (
	// NoRoute is returned when a name matches no configured route.
	NoRoute = -1

	// Denied is returned by encapsulation checks that hide a name from
	// the requester. It is never shown to callers as anything other
	// than a failed lookup.
	Denied = -2
)

// Classifier maps a name to a route code. Implementations must be safe
// for concurrent use and must not retain name.
type Classifier interface {
	Classify(name string) int
}

// Func adapts an ordinary function to the Classifier interface.
type Func func(name string) int

// Classify calls f(name).
func (f Func) Classify(name string) int { return f(name) }

// Constant is a classifier that ignores the name.
type Constant int

// Classify returns the constant code.
func (c Constant) Classify(string) int { return int(c) }
