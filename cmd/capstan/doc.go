// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Capstan is the operator CLI for the release orchestrator. It
// processes a single pull request event from a file (for replaying
// missed webhook deliveries), checks configuration files, and prints
// build information.
package main
