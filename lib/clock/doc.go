// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time for testability. Production code
// injects Real(); tests inject Fake() and advance time explicitly,
// making retry backoff, circuit breaker cooldowns, and branch-name
// fallback timestamps deterministic.
package clock
