// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package semver implements the semantic version value type used
// throughout the release engine: strict fail-closed parsing, the full
// semver 2.0.0 total order (including prerelease identifier
// comparison), and bump arithmetic.
//
// A Version is only ever constructed by Parse or by bump arithmetic on
// an already-valid Version. There is no lenient mode: a string that
// does not conform to the grammar is an error, never a default.
package semver
