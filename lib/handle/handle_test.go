// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package handle

import (
	"errors"
	"runtime"
	"testing"
)

func TestFormatParse(t *testing.T) {
	tests := []struct {
		address Address
		want    string
	}{
		{Address{Slot: 0, Container: 0, Name: "a/b/C.class"}, "vrt:/0/0!/a/b/C.class"},
		{Address{Slot: 12, Container: 3, Name: "dir/with space/x#y?.txt"}, "vrt:/12/3!/dir/with%20space/x%23y%3F.txt"},
		{Address{Slot: 1, Container: 2, Name: "root.properties"}, "vrt:/1/2!/root.properties"},
		{Address{Slot: 4, Container: 0, Name: ""}, "vrt:/4/0!/"},
		{Address{Slot: 5, Container: 1, Name: "café/100%.txt"}, "vrt:/5/1!/caf%C3%A9/100%25.txt"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := Format(tt.address)
			if got != tt.want {
				t.Fatalf("Format(%+v) = %q, want %q", tt.address, got, tt.want)
			}
			parsed, err := Parse(got)
			if err != nil {
				t.Fatalf("Parse(%q): %v", got, err)
			}
			if parsed != tt.address {
				t.Errorf("Parse(%q) = %+v, want %+v", got, parsed, tt.address)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name   string
		handle string
	}{
		{"wrong scheme", "file:/0/0!/a"},
		{"no scheme", "/0/0!/a"},
		{"authority", "vrt://host/0/0!/a"},
		{"query", "vrt:/0/0!/a?x=1"},
		{"empty query", "vrt:/0/0!/a?"},
		{"fragment", "vrt:/0/0!/a#frag"},
		{"negative slot", "vrt:/-1/0!/a"},
		{"missing separator", "vrt:/0/0/a"},
		{"missing container", "vrt:/0!/a"},
		{"non-numeric", "vrt:/x/0!/a"},
		{"overflow", "vrt:/99999999999999999999999/0!/a"},
		{"bad escape", "vrt:/0/0!/a%zz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.handle)
			var formatErr *FormatError
			if !errors.As(err, &formatErr) {
				t.Fatalf("Parse(%q) error = %v, want *FormatError", tt.handle, err)
			}
			if !errors.Is(err, ErrInvalidHandle) {
				t.Errorf("Parse(%q) error does not match ErrInvalidHandle", tt.handle)
			}
		})
	}
}

type referent struct {
	slot    int
	hasSlot bool
	payload [64]byte
}

func (r *referent) HandleSlot() (int, bool) { return r.slot, r.hasSlot }

func (r *referent) SetHandleSlot(slot int) {
	r.slot = slot
	r.hasSlot = true
}

// registerTransient registers a referent that nothing else retains.
func registerTransient(table *Table[referent, *referent]) int {
	return table.Slot(&referent{})
}

func TestTableSlotStable(t *testing.T) {
	var table Table[referent, *referent]
	first := &referent{}
	second := &referent{}

	if got := table.Slot(first); got != 0 {
		t.Errorf("first slot = %d, want 0", got)
	}
	if got := table.Slot(second); got != 1 {
		t.Errorf("second slot = %d, want 1", got)
	}
	if got := table.Slot(first); got != 0 {
		t.Errorf("repeat slot = %d, want 0", got)
	}
	if found, ok := table.Lookup(1); !ok || found != second {
		t.Errorf("Lookup(1) = %p, %v; want %p", found, ok, second)
	}
	for _, slot := range []int{-1, 2} {
		if _, ok := table.Lookup(slot); ok {
			t.Errorf("Lookup(%d) succeeded", slot)
		}
	}
	runtime.KeepAlive(first)
	runtime.KeepAlive(second)
}

func TestTableReusesCollectedSlots(t *testing.T) {
	var table Table[referent, *referent]
	kept := &referent{}
	table.Slot(kept)
	slot := registerTransient(&table)

	collected := false
	for range 20 {
		runtime.GC()
		if _, ok := table.Lookup(slot); !ok {
			collected = true
			break
		}
	}
	if !collected {
		t.Fatalf("slot %d still live after repeated GC", slot)
	}

	replacement := &referent{}
	if got := table.Slot(replacement); got != slot {
		t.Errorf("replacement slot = %d, want reused %d", got, slot)
	}
	if table.Len() != 2 {
		t.Errorf("Len() = %d, want 2", table.Len())
	}
	if found, ok := table.Lookup(0); !ok || found != kept {
		t.Error("live slot 0 lost its referent")
	}
	runtime.KeepAlive(kept)
	runtime.KeepAlive(replacement)
}
