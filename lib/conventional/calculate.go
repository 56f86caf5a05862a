// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package conventional

import (
	"fmt"

	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/semver"
)

// Result is the outcome of a version calculation.
type Result struct {
	// Current is the version the calculation started from: the
	// supplied current version, or 0.0.0 when the repository has no
	// prior release.
	Current semver.Version

	// Next is the calculated next version. Equal to Current when no
	// qualifying commit was found.
	Next semver.Version

	// Bump is the applied increment severity. BumpNone means no
	// release is needed.
	Bump semver.Bump

	// Commits is every input commit with its conventional
	// interpretation, in input order. Unparsed commits are included
	// for changelog use.
	Commits []Commit
}

// ReleaseNeeded reports whether the commit set qualifies for a
// release. A commit set with no feat, fix, or breaking commits does
// not — this is a normal outcome, not an error.
func (r Result) ReleaseNeeded() bool { return r.Bump != semver.BumpNone }

// Calculate computes the next version for a commit set. current is
// the repository's current version string, or empty when there is no
// prior release (baseline 0.0.0). A non-empty current version that
// fails to parse is an error: the calculation fails closed rather
// than substituting a default.
//
// Pure function of its inputs: no side effects, deterministic output.
func Calculate(infos []forge.CommitInfo, current string) (Result, error) {
	base := semver.Version{}
	if current != "" {
		parsed, err := semver.Parse(current)
		if err != nil {
			return Result{}, fmt.Errorf("conventional: current version: %w", err)
		}
		base = parsed
	}

	commits := ParseCommits(infos)

	bump := semver.BumpNone
	for _, commit := range commits {
		if severity := commitSeverity(commit); severity > bump {
			bump = severity
		}
	}

	return Result{
		Current: base,
		Next:    base.Bumped(bump),
		Bump:    bump,
		Commits: commits,
	}, nil
}

// commitSeverity maps one commit to its bump severity. Unparsed
// commits and types other than feat/fix never qualify on their own;
// a breaking marker on any parsed commit forces major.
func commitSeverity(commit Commit) semver.Bump {
	if !commit.Parsed {
		return semver.BumpNone
	}
	if commit.Breaking {
		return semver.BumpMajor
	}
	switch commit.Type {
	case "feat":
		return semver.BumpMinor
	case "fix":
		return semver.BumpPatch
	default:
		return semver.BumpNone
	}
}
