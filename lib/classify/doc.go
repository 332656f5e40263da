// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package classify turns artifact and resource names into route codes.
//
// A route code is a small integer that a loader node uses to select a
// list of delegation rules. Non-negative codes index the node's rule
// table. Negative codes are sentinels: [NoRoute] means the lookup fails
// immediately, and [Denied] is returned by encapsulation checks that
// refuse a name outright. Callers never distinguish the two outside
// this package; both surface as "not found".
//
// Every classifier implements [Classifier]. The variants are:
//
//   - [Constant] -- always the same code, for nodes that route
//     everything identically.
//   - [Automaton] -- a precomputed deterministic automaton over a
//     bounded character range. Classification is O(len(name)) with no
//     allocation, which matters for rule sets covering hundreds of
//     packages. [CompileAutomaton] builds one from exact names and
//     "prefix*" wildcards.
//   - [Pattern] -- a full-string match against a regular expression,
//     returning one of two codes.
//   - [List] -- exact membership in an ordered candidate list,
//     returning the candidate's position.
//   - [ResourceEncapsulation] -- wraps another classifier and forces a
//     fixed code for resources that live in an encapsulated package.
//
// Names follow two conventions. Code units are dotted ("a.b.Widget")
// and are stored in containers under a slash-separated entry name with
// [CodeUnitSuffix] appended ("a/b/Widget.class"). Resources are already
// slash-separated entry names ("a/b/widget.properties"). The package of
// either is the dotted directory part: "a.b".
//
// This package depends on no other Vestige packages.
package classify
