// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"fmt"

	"github.com/dlclark/regexp2"
)

// PatternClassifier returns one code when the whole name matches a
// regular expression and another otherwise.
//
// Expressions use regexp2 syntax (backtracking, lookaround and
// backreferences), which accepts the rule sets launchers write for
// JVM-style pattern engines. The match is anchored at both ends.
type PatternClassifier struct {
	expression *regexp2.Regexp
	match      int
	mismatch   int
}

// Pattern compiles expression into a full-match classifier.
func Pattern(expression string, match, mismatch int) (*PatternClassifier, error) {
	compiled, err := regexp2.Compile(`\A(?:`+expression+`)\z`, regexp2.None)
	if err != nil {
		return nil, fmt.Errorf("compiling classifier pattern %q: %w", expression, err)
	}
	return &PatternClassifier{
		expression: compiled,
		match:      match,
		mismatch:   mismatch,
	}, nil
}

// Classify returns the match code when name matches in full. A match
// that errors (regexp2 only errors on timeout) counts as a mismatch.
func (p *PatternClassifier) Classify(name string) int {
	matched, err := p.expression.MatchString(name)
	if err != nil || !matched {
		return p.mismatch
	}
	return p.match
}
