// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides Vestige's standard CBOR encoding configuration.
//
// Resolution reports leave vestige-resolve as text, JSON or CBOR. This
// package holds the shared CBOR mode so every report encodes
// identically. The encoder uses Core Deterministic Encoding (RFC 8949
// §4.2): sorted map keys, smallest integer encoding, no
// indefinite-length items. The same report always produces identical
// bytes, so two runs against the same snapshot can be compared with cmp.
//
// [NewEncoder] writes reports as a CBOR sequence. [NewDiagnosticEncoder]
// writes the same items as diagnostic notation, one line per report,
// for reading CBOR output without a decoder:
//
//	encoder := codec.NewEncoder(os.Stdout)
//	encoder := codec.NewDiagnosticEncoder(os.Stdout)
//
// # Struct Tag Rules
//
// Report types carry `json` tags only. fxamacker/cbor v2 reads `json`
// tags as fallback when `cbor` tags are absent, so a single tag
// controls field naming and omitempty for both output formats. Never
// put both tags on the same field.
package codec
