// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package conventional parses conventional-commit messages and
// calculates the version bump a commit set implies.
//
// Parsing never discards a commit: messages that do not conform to
// the type(scope)!: description grammar are retained as unparsed
// commits. Unparsed commits never influence the bump decision but are
// always present in the categorized output so the changelog can route
// them to its "Other Changes" bucket.
package conventional
