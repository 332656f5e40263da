// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"fmt"
	"io"

	"github.com/fxamacker/cbor/v2"
)

// reportMode encodes with Core Deterministic Encoding and writes
// encoding.TextMarshaler values (container.Digest) as text strings,
// so a digest reads the same in CBOR as in JSON.
var reportMode = func() cbor.EncMode {
	options := cbor.CoreDetEncOptions()
	options.TextMarshaler = cbor.TextMarshalerTextString
	mode, err := options.EncMode()
	if err != nil {
		panic("codec: building CBOR encoding mode: " + err.Error())
	}
	return mode
}()

// Encoder writes a CBOR sequence (RFC 8742): one data item per Encode.
type Encoder = cbor.Encoder

// NewEncoder returns an Encoder writing to w.
func NewEncoder(w io.Writer) *Encoder {
	return reportMode.NewEncoder(w)
}

// DiagnosticEncoder writes each value as one line of CBOR diagnostic
// notation (RFC 8949 §8). The notation describes exactly the bytes
// NewEncoder would produce for the same value.
type DiagnosticEncoder struct {
	w io.Writer
}

// NewDiagnosticEncoder returns a DiagnosticEncoder writing to w.
func NewDiagnosticEncoder(w io.Writer) *DiagnosticEncoder {
	return &DiagnosticEncoder{w: w}
}

// Encode writes the diagnostic notation of v followed by a newline.
func (e *DiagnosticEncoder) Encode(v any) error {
	data, err := reportMode.Marshal(v)
	if err != nil {
		return err
	}
	notation, err := cbor.Diagnose(data)
	if err != nil {
		return fmt.Errorf("describing CBOR item: %w", err)
	}
	_, err = fmt.Fprintln(e.w, notation)
	return err
}
