// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package handle implements re-openable addresses for entries found
// during resolution.
//
// An [Address] names a slot in a weak-reference [Table], a container
// index within the slot's referent, and an entry name. Its string form
// is
//
//	vrt:/<slot>/<container>!/<escaped-name>
//
// where both integers are non-negative base-10 and every segment of
// the name is percent-encoded. Handles never carry an authority, a
// query or a fragment; [Parse] rejects any of them with a
// [*FormatError].
//
// A [Table] holds its referents weakly. A slot whose referent has been
// collected is reused by the next registration, and looking it up
// before then fails cleanly instead of reviving the referent.
//
// This package depends on no other Vestige packages.
package handle
