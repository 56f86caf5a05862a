// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package service provides the HTTP serving layer for webhook
// ingestion. It owns listener lifecycle and graceful shutdown, and
// verifies webhook payload signatures; routing and payload handling
// belong to the caller.
package service
