// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the description of a loader graph.
//
// Configuration is loaded from a single file specified by either the
// VESTIGE_CONFIG environment variable (via [Load]) or a --config flag
// (via [LoadFile]). There are no fallbacks and no automatic file
// search. Files ending in .json or .jsonc are parsed as JSON with
// comments and trailing commas; everything else is YAML.
//
// A graph file names its containers and classifiers, then lists nodes
// that refer to them by name. Each node carries a route table: for
// every route code a classifier can return, an ordered list of rules
// written as "self", "parent-then-self", "parent-only",
// "delegate:<node>" or "delegate+parent:<node>". [ParseRule] parses one.
//
// The file supports environment-specific sections (development,
// staging, production) that override base values when
// [Config].Environment matches. Production defaults to private-map
// snapshots for secure containers.
//
// Variable expansion is performed on container paths after loading:
// ${HOME}, ${VESTIGE_ROOT}, and ${VAR:-default} patterns are expanded.
//
// [Config.Validate] checks every cross reference and reports all
// problems at once.
//
// This package depends on no other Vestige packages.
package config
