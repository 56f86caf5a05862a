// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package changelog builds, parses, and merges the markdown changelog
// carried in a release pull request's body.
//
// A changelog is an ordered list of sections ("### Features",
// "### Bug Fixes", ...), each an ordered list of entries. Entry
// identity is the commit SHA embedded in the rendered line, which
// makes merging idempotent: merging the same changelog twice yields
// the same entry set as merging it once.
package changelog
