// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers: channel operations
// with timeout safety valves so that a hung dispatcher or worker
// fails a test instead of hanging the run.
package testutil
