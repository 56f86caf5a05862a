// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package release is the orchestration engine. An inbound merge event
// is classified and routed: merges into the main branch feed the
// reconciler, which maintains the repository's single release pull
// request (create, version bump, changelog merge, branch rename);
// merges of the release pull request itself feed the publisher, which
// tags the merge commit and publishes the release with the
// accumulated notes.
//
// The engine is stateless: the hosting platform is the system of
// record, and redelivered events converge through existence checks
// and optimistic-concurrency writes rather than local bookkeeping.
// Every port call passes through the resilience layer (retry, circuit
// breaker, per-repository ordering).
package release
