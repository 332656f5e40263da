// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package handle

import (
	"sync"
	"weak"
)

// Referent is implemented by values registered in a Table. A referent
// remembers the slot it was given so repeated registrations return the
// same slot. Table calls these methods only while holding its lock.
type Referent interface {
	HandleSlot() (slot int, ok bool)
	SetHandleSlot(slot int)
}

// Table maps small integers to weakly held referents. One mutex guards
// both allocation and lookup.
type Table[T any, P interface {
	*T
	Referent
}] struct {
	mu    sync.Mutex
	slots []weak.Pointer[T]
}

// Slot returns the slot of referent, assigning one on first use. A slot
// whose previous referent has been collected is reused before the
// table grows.
func (t *Table[T, P]) Slot(referent P) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot, ok := referent.HandleSlot(); ok {
		return slot
	}
	pointer := weak.Make((*T)(referent))
	for slot, existing := range t.slots {
		if existing.Value() == nil {
			t.slots[slot] = pointer
			referent.SetHandleSlot(slot)
			return slot
		}
	}
	t.slots = append(t.slots, pointer)
	slot := len(t.slots) - 1
	referent.SetHandleSlot(slot)
	return slot
}

// Lookup returns the live referent in slot, or false when the slot was
// never assigned or its referent has been collected.
func (t *Table[T, P]) Lookup(slot int) (P, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if slot < 0 || slot >= len(t.slots) {
		return nil, false
	}
	value := t.slots[slot].Value()
	if value == nil {
		return nil, false
	}
	return P(value), true
}

// Len returns the number of slots, live or not.
func (t *Table[T, P]) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.slots)
}
