// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Capstan.
//
// Engine configuration is loaded from a single YAML file named by
// the CAPSTAN_CONFIG environment variable (or an explicit path via
// LoadFile, as the check-config command's --file flag does).
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// Individual repositories may carry a JSONC override file (comments
// and trailing commas permitted) that merges over the engine defaults
// for that repository only.
package config
