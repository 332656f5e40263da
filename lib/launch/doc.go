// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package launch assembles a loader graph from a [config.Config].
//
// [Build] turns each named container and classifier into its
// lib/container and lib/classify counterpart, derives every node's
// encapsulation policy, reserves node IDs in file order so routes may
// name nodes defined later, and builds the [loader.Graph]. The returned
// [Launch] owns every node through one [loader.Token] and releases the
// containers and secure snapshots on [Launch.Close].
//
// [NewReport] flattens a resolution result into the record that
// vestige-resolve prints as text, JSON or CBOR.
package launch
