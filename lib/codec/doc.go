// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides deterministic serialization and content
// fingerprinting for event identity.
//
// Redelivered webhook events must converge to the same end state, so
// the engine identifies an event by a fingerprint of its logical
// content rather than by the delivery ID alone (the platform assigns
// a fresh delivery ID to manual redeliveries). Deterministic CBOR
// (RFC 8949 Core Deterministic Encoding) guarantees the same logical
// event always produces identical bytes; BLAKE3 keyed hashing turns
// those bytes into a stable, domain-separated fingerprint.
package codec
