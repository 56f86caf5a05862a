// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Capstan-webhook-service is the long-running release orchestrator.
// It listens for GitHub pull request webhooks, verifies their HMAC
// signatures, and feeds merge events to the release engine, which
// maintains release pull requests and publishes tagged releases.
//
// Configuration is read from the YAML file named by CAPSTAN_CONFIG;
// the file's settings merge over built-in defaults. The GitHub API
// token and the webhook secret come from the environment variables
// named in the configuration.
package main
