// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for Vestige packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that worker, broker and reaper tests do not need direct time.After
// calls. A worker that never runs a task, or a reaper that never fires,
// fails the test instead of hanging it.
//
// [RequireNever] is the inverse: it asserts that a channel stays quiet
// for a short window, for tasks that must never execute.
//
// [UniqueID] generates monotonically increasing identifiers for test
// disambiguation, such as worker and node names shared across
// parallel tests.
//
// All helpers call t.Fatalf on failure rather than returning errors,
// since test setup failures are not recoverable.
//
// This package has no Vestige-internal dependencies.
package testutil
