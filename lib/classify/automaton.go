// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package classify

import "fmt"

// Automaton is a deterministic finite automaton with precomputed flat
// transition tables. States are numbered from 1; state 0 is the dead
// state. A negative transition target -s means "move to s and stop
// reading": the route is fully decided before the end of the name.
//
// Characters are first compressed to a small id through
// CharacterIDs[c-FirstCharacter]. Characters outside that range, or
// mapped to a negative id, are unmapped and yield Default at once.
//
// The zero value is not usable. Build one with [NewAutomaton] from
// explicit tables or with [CompileAutomaton] from rules.
type Automaton struct {
	firstCharacter rune
	characterIDs   []int16
	initialState   int32
	// transitions is indexed by characterID*stateCount + state - 1.
	transitions []int32
	stateCount  int32
	// outputs is indexed by state - 1.
	outputs      []int
	defaultValue int
}

// AutomatonTables holds the raw tables of an [Automaton].
type AutomatonTables struct {
	FirstCharacter rune
	CharacterIDs   []int16
	InitialState   int32
	Transitions    []int32
	StateCount     int32
	Outputs        []int
	Default        int
}

// NewAutomaton validates tables and returns the automaton they describe.
func NewAutomaton(tables AutomatonTables) (*Automaton, error) {
	if tables.StateCount <= 0 {
		return nil, fmt.Errorf("automaton state count must be positive, got %d", tables.StateCount)
	}
	if tables.InitialState < 1 || tables.InitialState > tables.StateCount {
		return nil, fmt.Errorf("automaton initial state %d outside 1..%d", tables.InitialState, tables.StateCount)
	}
	maxID := int16(-1)
	for _, id := range tables.CharacterIDs {
		if id > maxID {
			maxID = id
		}
	}
	needed := (int(maxID) + 1) * int(tables.StateCount)
	if len(tables.Transitions) < needed {
		return nil, fmt.Errorf("automaton transition table has %d cells, character ids need %d",
			len(tables.Transitions), needed)
	}
	for index, target := range tables.Transitions {
		if target > tables.StateCount || target < -tables.StateCount {
			return nil, fmt.Errorf("automaton transition %d targets state %d outside 0..%d",
				index, target, tables.StateCount)
		}
	}
	return &Automaton{
		firstCharacter: tables.FirstCharacter,
		characterIDs:   tables.CharacterIDs,
		initialState:   tables.InitialState,
		transitions:    tables.Transitions,
		stateCount:     tables.StateCount,
		outputs:        tables.Outputs,
		defaultValue:   tables.Default,
	}, nil
}

func (a *Automaton) next(state int32, character rune) int32 {
	position := int(character - a.firstCharacter)
	if position < 0 || position >= len(a.characterIDs) {
		return 0
	}
	id := a.characterIDs[position]
	if id < 0 {
		return 0
	}
	return a.transitions[int32(id)*a.stateCount+state-1]
}

// Classify runs the automaton over name.
func (a *Automaton) Classify(name string) int {
	state := a.initialState
	for _, character := range name {
		state = a.next(state, character)
		if state == 0 {
			return a.defaultValue
		}
		if state < 0 {
			state = -state
			break
		}
	}
	if int(state) > len(a.outputs) {
		return a.defaultValue
	}
	return a.outputs[state-1]
}

// Tables returns a copy of the automaton's tables, suitable for
// persisting a compiled automaton and reloading it with [NewAutomaton].
func (a *Automaton) Tables() AutomatonTables {
	return AutomatonTables{
		FirstCharacter: a.firstCharacter,
		CharacterIDs:   append([]int16(nil), a.characterIDs...),
		InitialState:   a.initialState,
		Transitions:    append([]int32(nil), a.transitions...),
		StateCount:     a.stateCount,
		Outputs:        append([]int(nil), a.outputs...),
		Default:        a.defaultValue,
	}
}
