// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

// ListClassifier returns the position of a name in an ordered list of
// candidates.
type ListClassifier struct {
	positions map[string]int
	mismatch  int
}

// List builds a classifier over candidates. When a candidate appears
// more than once, its first position is used. Names that are not
// candidates classify as mismatch.
func List(candidates []string, mismatch int) *ListClassifier {
	positions := make(map[string]int, len(candidates))
	for position, candidate := range candidates {
		if _, ok := positions[candidate]; !ok {
			positions[candidate] = position
		}
	}
	return &ListClassifier{positions: positions, mismatch: mismatch}
}

// Classify returns the candidate position of name, or the mismatch code.
func (l *ListClassifier) Classify(name string) int {
	if position, ok := l.positions[name]; ok {
		return position
	}
	return l.mismatch
}
