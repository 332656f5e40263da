// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
)

// sampleReport mirrors the shape of a resolution report: json tags
// only, relying on fxamacker's fallback.
type sampleReport struct {
	Name   string `json:"name"`
	Node   string `json:"node"`
	Handle string `json:"handle,omitempty"`
	Size   int64  `json:"size"`
}

// hexText stands in for a digest: a TextMarshaler with no exported
// fields.
type hexText struct {
	value string
}

func (h hexText) MarshalText() ([]byte, error) { return []byte(h.value), nil }

func encode(t *testing.T, values ...any) []byte {
	t.Helper()
	var buffer bytes.Buffer
	encoder := NewEncoder(&buffer)
	for _, value := range values {
		if err := encoder.Encode(value); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	return buffer.Bytes()
}

func describe(t *testing.T, value any) string {
	t.Helper()
	var output strings.Builder
	if err := NewDiagnosticEncoder(&output).Encode(value); err != nil {
		t.Fatalf("DiagnosticEncoder.Encode: %v", err)
	}
	return output.String()
}

func TestEncoderDeterministic(t *testing.T) {
	report := map[string]any{"size": 3, "node": "plugin", "name": "a/b.txt"}

	first := encode(t, report)
	for range 10 {
		if again := encode(t, report); !bytes.Equal(first, again) {
			t.Fatalf("non-deterministic encoding: %x vs %x", first, again)
		}
	}

	notation := describe(t, report)
	name, node, size := strings.Index(notation, `"name"`), strings.Index(notation, `"node"`), strings.Index(notation, `"size"`)
	if name < 0 || !(name < node && node < size) {
		t.Errorf("map keys not in canonical order: %s", notation)
	}
}

func TestEncoderWritesSequence(t *testing.T) {
	data := encode(t,
		sampleReport{Name: "a.A", Node: "root", Size: 1},
		sampleReport{Name: "b.B", Node: "child", Size: 2},
	)

	var items []string
	for len(data) > 0 {
		notation, rest, err := cbor.DiagnoseFirst(data)
		if err != nil {
			t.Fatalf("DiagnoseFirst: %v", err)
		}
		items = append(items, notation)
		data = rest
	}
	if len(items) != 2 || !strings.Contains(items[0], `"a.A"`) || !strings.Contains(items[1], `"child"`) {
		t.Errorf("sequence items = %q", items)
	}
}

func TestDiagnosticEncoderDescribesEncodedBytes(t *testing.T) {
	report := sampleReport{
		Name:   "org.example.Widget",
		Node:   "platform",
		Handle: "vrt:/0/1!/org/example/Widget.class",
		Size:   512,
	}
	want, err := cbor.Diagnose(encode(t, report))
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}

	var output strings.Builder
	encoder := NewDiagnosticEncoder(&output)
	for range 2 {
		if err := encoder.Encode(report); err != nil {
			t.Fatalf("Encode: %v", err)
		}
	}
	if got := output.String(); got != want+"\n"+want+"\n" {
		t.Errorf("diagnostic output = %q, want two lines of %q", got, want)
	}
}

func TestTextMarshalerAsTextString(t *testing.T) {
	type signer struct {
		Digest hexText `json:"digest"`
	}
	notation := describe(t, signer{Digest: hexText{value: "00ff"}})
	if !strings.Contains(notation, `"00ff"`) || strings.Contains(notation, "h'") {
		t.Errorf("notation = %s, want the digest as a text string", notation)
	}
}

func TestOmitemptyRespected(t *testing.T) {
	if notation := describe(t, sampleReport{Name: "a", Handle: "vrt:/0/0!/a"}); !strings.Contains(notation, `"handle"`) {
		t.Errorf("handle missing from %s", notation)
	}
	if notation := describe(t, sampleReport{Name: "a"}); strings.Contains(notation, `"handle"`) {
		t.Errorf("empty handle encoded in %s", notation)
	}
}

func TestDiagnosticEncoderErrors(t *testing.T) {
	if err := NewDiagnosticEncoder(io.Discard).Encode(make(chan int)); err == nil {
		t.Error("Encode accepted a channel")
	}
	if err := NewDiagnosticEncoder(failingWriter{}).Encode("x"); err == nil {
		t.Error("Encode ignored a write failure")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, io.ErrClosedPipe }

func BenchmarkEncode(b *testing.B) {
	report := sampleReport{Name: "org.example.Widget", Node: "platform", Size: 512}
	encoder := NewEncoder(io.Discard)

	b.ReportAllocs()
	for b.Loop() {
		encoder.Encode(report)
	}
}
