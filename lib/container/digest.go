// Copyright 2026 The Vestige Authors
// SPDX-License-Identifier: Apache-2.0

package container

import (
	"encoding/hex"
	"fmt"
	"io"

	"github.com/zeebo/blake3"
)

// Digest is a 32-byte BLAKE3 keyed digest.
type Digest [32]byte

// snapshotDomainKey separates secure archive snapshot digests from any
// other BLAKE3 use of the same bytes. The value is the ASCII domain
// name zero-padded to 32 bytes; changing it changes every digest.
var snapshotDomainKey = [32]byte{
	'v', 'e', 's', 't', 'i', 'g', 'e', '.', 's', 'e', 'c', 'u', 'r', 'e', '.',
	's', 'n', 'a', 'p', 's', 'h', 'o', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// digestAlgorithm is the Signer.Algorithm value for snapshot digests.
const digestAlgorithm = "blake3-keyed"

// digestReader streams r through a keyed BLAKE3 hasher.
func digestReader(r io.Reader) (Digest, error) {
	hasher, err := blake3.NewKeyed(snapshotDomainKey[:])
	if err != nil {
		return Digest{}, fmt.Errorf("initializing blake3: %w", err)
	}
	if _, err := io.Copy(hasher, r); err != nil {
		return Digest{}, err
	}
	var digest Digest
	copy(digest[:], hasher.Sum(nil))
	return digest, nil
}

// String returns the lowercase hex encoding of the digest.
func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// MarshalText encodes the digest as hex so reports show it readably.
func (d Digest) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText parses a 64-character hex digest.
func (d *Digest) UnmarshalText(text []byte) error {
	decoded, err := hex.DecodeString(string(text))
	if err != nil {
		return fmt.Errorf("parsing digest: %w", err)
	}
	if len(decoded) != len(d) {
		return fmt.Errorf("digest is %d bytes, want %d", len(decoded), len(d))
	}
	copy(d[:], decoded)
	return nil
}
