// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"errors"
	"io"

	"github.com/vestige-java/vestige.core/lib/container"
	"github.com/vestige-java/vestige.core/lib/handle"
)

// registry is the process-wide table of nodes that have handed out
// handles.
var registry handle.Table[Node, *Node]

// HandleSlot returns the node's registry slot. It is called by the
// handle registry under its lock.
func (n *Node) HandleSlot() (int, bool) { return n.handleSlot, n.hasHandleSlot }

// SetHandleSlot records the node's registry slot. It is called by the
// handle registry under its lock.
func (n *Node) SetHandleSlot(slot int) {
	n.handleSlot = slot
	n.hasHandleSlot = true
}

// Address returns a handle string that re-opens the entry later for as
// long as the node stays reachable.
func (l Located) Address() string {
	slot := registry.Slot(l.Node)
	return handle.Format(handle.Address{Slot: slot, Container: l.Container, Name: l.Entry.Name()})
}

// Lookup re-finds the entry named by a handle string. Only the
// recorded container of the recorded node is searched.
func Lookup(handleString string) (container.Entry, error) {
	address, err := handle.Parse(handleString)
	if err != nil {
		return nil, err
	}
	node, ok := registry.Lookup(address.Slot)
	if !ok {
		return nil, &handle.InvalidHandleError{Handle: handleString, Reason: "node is no longer reachable"}
	}
	if node.Closed() {
		return nil, &handle.InvalidHandleError{Handle: handleString, Reason: "node " + node.name + " is closed"}
	}
	source := node.Container(address.Container)
	if source == nil {
		return nil, &handle.InvalidHandleError{Handle: handleString, Reason: "container index out of range"}
	}
	entry, err := source.Find(address.Name)
	if errors.Is(err, container.ErrEntryNotFound) {
		return nil, &handle.InvalidHandleError{Handle: handleString, Reason: "entry no longer present"}
	}
	if err != nil {
		return nil, &handle.InvalidHandleError{Handle: handleString, Reason: err.Error()}
	}
	return entry, nil
}

// Dereference opens the entry named by a handle string.
func Dereference(handleString string) (io.ReadCloser, error) {
	entry, err := Lookup(handleString)
	if err != nil {
		return nil, err
	}
	return entry.Open()
}
