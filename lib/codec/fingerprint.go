// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"encoding/hex"
	"fmt"

	"github.com/zeebo/blake3"
)

// Fingerprint is a 32-byte BLAKE3 digest identifying one logical
// event.
type Fingerprint [32]byte

// eventDomainKey is the BLAKE3 keyed-hashing domain for event
// fingerprints. Domain separation ensures the same bytes hashed in a
// different context can never collide with an event fingerprint. The
// byte values are the ASCII encoding of the domain name, zero-padded
// to 32 bytes, which keeps the key inspectable in hex dumps without
// sacrificing any cryptographic property.
var eventDomainKey = [32]byte{
	'c', 'a', 'p', 's', 't', 'a', 'n', '.',
	'e', 'v', 'e', 'n', 't', 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
}

// FingerprintOf encodes v with deterministic CBOR and returns its
// event-domain BLAKE3 hash. Two values with the same logical content
// always produce the same fingerprint, across processes and
// instances.
func FingerprintOf(v any) (Fingerprint, error) {
	encoded, err := Marshal(v)
	if err != nil {
		return Fingerprint{}, fmt.Errorf("codec: encoding for fingerprint: %w", err)
	}

	hasher, err := blake3.NewKeyed(eventDomainKey[:])
	if err != nil {
		panic("codec: BLAKE3 keyed hasher initialization failed: " + err.Error())
	}
	hasher.Write(encoded)

	var fingerprint Fingerprint
	hasher.Digest().Read(fingerprint[:])
	return fingerprint, nil
}

// String returns the fingerprint as lowercase hex.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, enough for log
// correlation without flooding log lines.
func (f Fingerprint) Short() string {
	return hex.EncodeToString(f[:6])
}
