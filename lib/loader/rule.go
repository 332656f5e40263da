// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import "fmt"

// NodeID identifies a node within a Graph. IDs start at 1; the zero
// value means "no node".
type NodeID int

// RuleKind is the kind of a delegation rule.
type RuleKind int

const (
	// RuleLocal searches the node's own containers, after the parent's
	// ordinary resolution when ParentSearched is set.
	RuleLocal RuleKind = iota

	// RuleDelegate asks the Target node's ordinary resolution.
	RuleDelegate

	// RuleParentOnly asks the structural parent only.
	RuleParentOnly
)

// Rule is one step of a route.
type Rule struct {
	Kind           RuleKind
	Target         NodeID
	ParentSearched bool
}

// Self searches only the node's own containers.
func Self() Rule { return Rule{Kind: RuleLocal} }

// ParentThenSelf asks the parent's ordinary resolution, then searches
// the node's own containers.
func ParentThenSelf() Rule { return Rule{Kind: RuleLocal, ParentSearched: true} }

// Delegate asks target to search its own containers. With
// parentSearched, target's parent chain is asked first.
func Delegate(target NodeID, parentSearched bool) Rule {
	return Rule{Kind: RuleDelegate, Target: target, ParentSearched: parentSearched}
}

// ParentOnly asks the structural parent and nothing else.
func ParentOnly() Rule { return Rule{Kind: RuleParentOnly} }

func (r Rule) String() string {
	switch r.Kind {
	case RuleLocal:
		if r.ParentSearched {
			return "parent-then-self"
		}
		return "self"
	case RuleDelegate:
		if r.ParentSearched {
			return fmt.Sprintf("delegate(%d, parent-searched)", r.Target)
		}
		return fmt.Sprintf("delegate(%d)", r.Target)
	case RuleParentOnly:
		return "parent-only"
	default:
		return fmt.Sprintf("RuleKind(%d)", int(r.Kind))
	}
}
