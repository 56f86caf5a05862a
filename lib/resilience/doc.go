// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package resilience wraps the engine's outbound mutation calls with
// the safety layer that makes stateless, concurrent, repeated
// execution safe: bounded retry with exponential backoff and jitter
// for transient failures, a circuit breaker that stops hammering a
// failing platform, a bounded re-fetch-and-recompute loop for
// optimistic-concurrency conflicts, and a per-repository dispatcher
// that guarantees strict receipt-order execution for events on the
// same repository while letting different repositories proceed
// concurrently.
//
// All timing is clock-injected so every backoff, cooldown, and
// deadline is deterministic under test.
package resilience
