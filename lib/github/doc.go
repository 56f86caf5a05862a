// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package github adapts the GitHub REST API to the forge.Operations
// port. The client pins the API version, enforces HTTPS, backs off on
// rate limits, and translates every non-2xx response into a
// classified forge error so the resilience layer never inspects
// GitHub-specific failures.
//
// Optimistic concurrency uses the pull request's updated_at timestamp
// as the concurrency token: a conditional update refetches the
// resource, compares tokens, and reports a conflict when the resource
// changed since it was read.
package github
