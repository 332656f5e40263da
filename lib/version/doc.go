// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for Vestige
// binaries.
//
// Four package-level variables may be injected at build time via
// -ldflags -X, for example:
//
//	go build -ldflags "-X github.com/vestige-java/vestige.core/lib/version.GitCommit=$(git rev-parse --short HEAD)"
//
//   - [GitCommit] -- short git SHA of the build
//   - [GitDirty] -- "true" if there were uncommitted changes
//   - [BuildTime] -- UTC timestamp of the build
//   - [Version] -- semantic version string (set manually for releases)
//
// [Current] reads them into a [Build]. Commit, dirty state and time
// that were not injected come from the vcs.* settings of
// debug.ReadBuildInfo, and read "unknown" when the binary has no VCS
// stamp. [Print] formats the --version output.
package version
