// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import (
	"fmt"
	"math"
	"slices"
	"strings"
)

// AutomatonRule routes names matching Pattern to Route. A pattern is
// either an exact name or a prefix followed by a single trailing '*',
// which matches the prefix followed by anything (including nothing).
//
// When several rules match, an exact rule wins over wildcards and the
// longest wildcard prefix wins over shorter ones.
type AutomatonRule struct {
	Pattern string
	Route   int
}

// Characters in this range are always mapped, so names that wander off
// the rule alphabet inside a wildcard still reach the wildcard's route.
const (
	alphabetLow  = ' '
	alphabetHigh = '~'
)

type trieNode struct {
	children map[rune]*trieNode

	exact    int
	hasExact bool

	wildcard    int
	hasWildcard bool

	// inherited is the route of the nearest wildcard at or above this
	// node.
	inherited    int
	hasInherited bool

	state int32
}

func (n *trieNode) child(character rune) *trieNode {
	if n.children == nil {
		n.children = make(map[rune]*trieNode)
	}
	next, ok := n.children[character]
	if !ok {
		next = &trieNode{}
		n.children[character] = next
	}
	return next
}

// shortCircuits reports whether every continuation from this node
// yields the same route, so traversal can stop on entering it.
func (n *trieNode) shortCircuits() bool {
	return n.hasWildcard && !n.hasExact && len(n.children) == 0
}

func (n *trieNode) sortedCharacters() []rune {
	characters := make([]rune, 0, len(n.children))
	for character := range n.children {
		characters = append(characters, character)
	}
	slices.Sort(characters)
	return characters
}

// CompileAutomaton builds an [Automaton] recognising rules. Names
// matching no rule classify as defaultRoute. Characters outside the
// printable ASCII range that do not appear in any rule are unmapped:
// a name containing one classifies as defaultRoute even inside a
// wildcard.
func CompileAutomaton(rules []AutomatonRule, defaultRoute int) (*Automaton, error) {
	root := &trieNode{}
	seen := make(map[string]struct{}, len(rules))
	alphabetSet := make(map[rune]struct{})

	for _, rule := range rules {
		if _, duplicate := seen[rule.Pattern]; duplicate {
			return nil, fmt.Errorf("duplicate automaton pattern %q", rule.Pattern)
		}
		seen[rule.Pattern] = struct{}{}

		literal := rule.Pattern
		wildcard := false
		if star := strings.IndexByte(literal, '*'); star >= 0 {
			if star != len(literal)-1 {
				return nil, fmt.Errorf("automaton pattern %q: '*' is only allowed as the last character", rule.Pattern)
			}
			literal = literal[:star]
			wildcard = true
		}

		node := root
		for _, character := range literal {
			alphabetSet[character] = struct{}{}
			node = node.child(character)
		}
		if wildcard {
			node.wildcard, node.hasWildcard = rule.Route, true
		} else {
			node.exact, node.hasExact = rule.Route, true
		}
	}

	alphabet := make([]rune, 0, len(alphabetSet))
	for character := range alphabetSet {
		alphabet = append(alphabet, character)
	}
	slices.Sort(alphabet)

	first, last := rune(alphabetLow), rune(alphabetHigh)
	if len(alphabet) > 0 {
		first = min(first, alphabet[0])
		last = max(last, alphabet[len(alphabet)-1])
	}
	if last-first+1 > math.MaxUint16 {
		return nil, fmt.Errorf("automaton character range %U..%U is too wide", first, last)
	}
	if len(alphabet)+1 > math.MaxInt16 {
		return nil, fmt.Errorf("automaton alphabet has %d characters, limit is %d", len(alphabet), math.MaxInt16-1)
	}

	// Every rule character gets its own id; every other character in
	// range shares the trailing "other" id.
	otherID := int16(len(alphabet))
	characterIDs := make([]int16, last-first+1)
	for index := range characterIDs {
		characterIDs[index] = otherID
	}
	for id, character := range alphabet {
		characterIDs[character-first] = int16(id)
	}

	// Number trie states breadth first so the tables are deterministic.
	var nodes []*trieNode
	queue := []*trieNode{root}
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		nodes = append(nodes, node)
		node.state = int32(len(nodes))
		if node.hasWildcard {
			node.inherited, node.hasInherited = node.wildcard, true
		}
		for _, character := range node.sortedCharacters() {
			child := node.children[character]
			child.inherited, child.hasInherited = node.inherited, node.hasInherited
			queue = append(queue, child)
		}
	}

	// One sink state per distinct wildcard route, entered with a
	// negative transition.
	sinks := make(map[int]int32)
	var sinkRoutes []int
	for _, node := range nodes {
		if !node.hasInherited {
			continue
		}
		if _, ok := sinks[node.inherited]; !ok {
			sinkRoutes = append(sinkRoutes, node.inherited)
			sinks[node.inherited] = int32(len(nodes) + len(sinkRoutes))
		}
	}

	stateCount := int32(len(nodes) + len(sinkRoutes))
	if int64(stateCount)*int64(otherID+1) > math.MaxInt32 {
		return nil, fmt.Errorf("automaton with %d states and %d character ids is too large", stateCount, otherID+1)
	}

	outputs := make([]int, stateCount)
	for _, node := range nodes {
		switch {
		case node.hasExact:
			outputs[node.state-1] = node.exact
		case node.hasInherited:
			outputs[node.state-1] = node.inherited
		default:
			outputs[node.state-1] = defaultRoute
		}
	}
	for index, route := range sinkRoutes {
		outputs[len(nodes)+index] = route
	}

	transitions := make([]int32, int32(otherID+1)*stateCount)
	for _, node := range nodes {
		for id := int16(0); id <= otherID; id++ {
			var target int32
			var child *trieNode
			if id < otherID {
				child = node.children[alphabet[id]]
			}
			switch {
			case child != nil && child.shortCircuits():
				target = -child.state
			case child != nil:
				target = child.state
			case node.hasInherited:
				target = -sinks[node.inherited]
			}
			transitions[int32(id)*stateCount+node.state-1] = target
		}
	}

	return NewAutomaton(AutomatonTables{
		FirstCharacter: first,
		CharacterIDs:   characterIDs,
		InitialState:   root.state,
		Transitions:    transitions,
		StateCount:     stateCount,
		Outputs:        outputs,
		Default:        defaultRoute,
	})
}
