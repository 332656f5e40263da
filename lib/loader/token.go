// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package loader

import (
	"errors"
	"sync/atomic"
)

// Token is an owner token. Only the holder of a node's current token
// may read or replace its payload, transfer ownership, or close it.
// A node starts out owned by the nil token.
type Token struct {
	// Tokens must not be zero-sized, or distinct tokens could share an
	// address.
	serial uint64
}

var tokenSerial atomic.Uint64

// NewToken returns a fresh token, distinct from every other.
func NewToken() *Token {
	return &Token{serial: tokenSerial.Add(1)}
}

// Payload returns the node's payload when token is the current owner.
func (n *Node) Payload(token *Token) (any, bool) {
	n.ownerMu.Lock()
	defer n.ownerMu.Unlock()
	if n.owner != token {
		return nil, false
	}
	return n.payload, true
}

// SetPayload replaces the payload when token is the current owner. It
// reports whether the payload was replaced.
func (n *Node) SetPayload(token *Token, payload any) bool {
	n.ownerMu.Lock()
	defer n.ownerMu.Unlock()
	if n.owner != token {
		return false
	}
	n.payload = payload
	return true
}

// TransferOwner makes next the owner when current is the owner. It
// reports whether ownership moved.
func (n *Node) TransferOwner(current, next *Token) bool {
	n.ownerMu.Lock()
	defer n.ownerMu.Unlock()
	if n.owner != current {
		return false
	}
	n.owner = next
	return true
}

// Close releases every container of the node when token is the
// current owner. It does nothing on a token mismatch or when the node
// is already closed. Later resolutions treat the node as empty.
func (n *Node) Close(token *Token) error {
	n.ownerMu.Lock()
	defer n.ownerMu.Unlock()
	if n.owner != token {
		return nil
	}
	if !n.closed.CompareAndSwap(false, true) {
		return nil
	}
	var errs []error
	for _, source := range n.containers {
		errs = append(errs, source.Close())
	}
	return errors.Join(errs...)
}

// Closed reports whether the node has been closed.
func (n *Node) Closed() bool { return n.closed.Load() }
