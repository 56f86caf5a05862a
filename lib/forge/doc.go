// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package forge defines the abstract repository-API port the release
// engine drives: provider-agnostic types for pull requests, commits,
// tags, and releases, the Operations interface adapters implement,
// and the error taxonomy (transient, conflict, permanent, not-found)
// that the resilience layer keys its retry decisions on.
//
// The engine never talks to a hosting platform directly — every
// mutation goes through Operations, and every failure an adapter
// returns is classifiable so redelivered events converge instead of
// duplicating work.
package forge
