// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package loader resolves code units and resources through a graph of
// isolated loader nodes.
//
// A [Node] owns an ordered list of containers, a classifier for code
// unit names, a classifier for resource names, an optional
// encapsulation [Policy], an optional structural parent, and a route
// table mapping route codes to ordered [Rule] lists. Nodes live in an
// immutable [Graph] built once by a [GraphBuilder]; nodes refer to each
// other by [NodeID], so parents and delegation targets may form cycles.
//
// Resolution has two tiers. A request made on a node walks that node's
// full route table:
//
//   - [Self] searches the node's own containers, in order.
//   - [ParentThenSelf] asks the parent's ordinary resolution, then
//     searches the node's own containers.
//   - [Delegate] asks another node's ordinary resolution (optionally
//     preceded by that node's parent chain), never its route table.
//   - [ParentOnly] asks the parent's ordinary resolution only.
//
// Ordinary resolution is the bounded second tier: the parent's ordinary
// resolution followed by a self-search. Because a delegated request
// never re-enters a route table, routing cannot loop between nodes.
//
// Every failure to find an entry, whether no route matched, no rule
// found it, or encapsulation hid it, is the same [*NotFoundError].
// A caller in one scope cannot tell an encapsulated package from an
// absent one.
//
// A code unit found by a self-search fixes its package's sealing
// identity in that node. A later hit that conflicts with it returns a
// [*SealViolationError] for that lookup only.
//
// [Located.Address] registers the owning node in a process-wide weak
// table and returns a handle string; [Lookup] and [Dereference] re-open
// the entry later by searching only the recorded container. Once the
// node is unreachable, the handle fails with handle.ErrInvalidHandle.
//
// A node's payload, and the right to close it, belong to whoever holds
// its current owner [Token].
package loader
