// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package process provides process-level escalation for failures that
// leave no safe way to continue:
//
//   - Fatal error reporting to stderr when the structured logger may
//     not be initialized (pre-logger), used by main().
//   - Escalation of broken execution infrastructure, such as a worker
//     broker that fails to produce a goroutine it was asked to create.
//
// Ordinary failures, including every resolution failure, are returned
// as errors and never reach this package.
package process
