// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package container locates and streams named entries from read-only
// byte sources.
//
// A [Container] is an ordered, closeable source of entries identified
// by slash-separated names. Lookups are referentially stable while the
// container is open: repeated calls to Find for the same name return
// entries with identical bytes. The implementations are:
//
//   - [Directory] -- a filesystem tree. Lookup is an existence check;
//     nothing is cached and no package metadata is available.
//   - [Archive] -- a zip archive with a JAR-style manifest. The
//     archive is opened lazily on first use. Two goroutines racing to
//     open it may both build a backing handle; exactly one wins a
//     compare-and-swap and the loser is closed at once, so at most one
//     handle stays live.
//   - [SecureArchive] -- an archive read through a [SecureFile], a
//     single-snapshot byte source (shared advisory lock or private
//     copy-on-write mapping) whose bytes cannot change while it is
//     open. The directory and manifest are parsed once, under the
//     snapshot, and entries carry a BLAKE3 digest of the snapshot as
//     signer data.
//   - [Patched] -- overlays a patch container on an original one.
//
// Archives resolve multi-release overlays once at open time: an entry
// stored as "<prefix><N>/<rest>" replaces "<rest>" when N is at most
// the platform version, and the highest qualifying N wins.
//
// Entry data is decompressed with klauspost/compress. Besides stored
// and deflated entries, archives may carry zstd entries (zip methods
// 93 and 20).
//
// Lookups report a miss with [ErrEntryNotFound]. Failures to open or
// read the backing source are returned as [*IOError] and affect only
// the container that failed.
package container
