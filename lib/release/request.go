// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"strconv"
	"strings"

	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/semver"
)

// Request is the engine's release-in-progress record, projected from
// the platform's pull request. The platform is the system of record;
// nothing here is persisted locally.
type Request struct {
	Number           int
	BranchName       string
	BaseBranch       string
	Version          semver.Version
	Body             string
	ConcurrencyToken string
}

// projectRequest builds a Request from a pull request if its head
// branch is one the engine owns. Ownership is the exact branch naming
// pattern, never mere prefix similarity: the text after the prefix
// must itself be a valid version (plus at most a collision suffix).
func projectRequest(pullRequest forge.PullRequest, branchPrefix string) (Request, bool) {
	version, owned := branchVersion(pullRequest.HeadBranch, branchPrefix)
	if !owned {
		return Request{}, false
	}
	return Request{
		Number:           pullRequest.Number,
		BranchName:       pullRequest.HeadBranch,
		BaseBranch:       pullRequest.BaseBranch,
		Version:          version,
		Body:             pullRequest.Body,
		ConcurrencyToken: pullRequest.ConcurrencyToken,
	}, true
}

// branchName returns the primary release branch name for a version:
// "<prefix><version>", e.g. "release/v1.2.0" or
// "release/v2.0.0-beta.1".
func branchName(branchPrefix string, version semver.Version) string {
	return branchPrefix + version.String()
}

// fallbackBranchName returns the collision-fallback branch name for a
// version. The suffix is separated by a dot so the result is not
// itself a parseable version: version extraction stays unambiguous,
// and ownership matching strips the suffix explicitly.
func fallbackBranchName(branchPrefix string, version semver.Version, unixTimestamp int64) string {
	return branchName(branchPrefix, version) + "." + strconv.FormatInt(unixTimestamp, 10)
}

// branchVersion extracts the version from an owned release branch
// name. Reports false for branches the engine does not own.
func branchVersion(branch, branchPrefix string) (semver.Version, bool) {
	remainder, hasPrefix := strings.CutPrefix(branch, branchPrefix)
	if !hasPrefix || remainder == "" {
		return semver.Version{}, false
	}
	if version, err := semver.Parse(remainder); err == nil {
		return version, true
	}
	// Collision-fallback branches carry a ".<unix timestamp>" tail.
	lastDot := strings.LastIndex(remainder, ".")
	if lastDot < 0 {
		return semver.Version{}, false
	}
	suffix := remainder[lastDot+1:]
	if suffix == "" || !isAllDigits(suffix) {
		return semver.Version{}, false
	}
	version, err := semver.Parse(remainder[:lastDot])
	if err != nil {
		return semver.Version{}, false
	}
	return version, true
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
