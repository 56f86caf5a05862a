// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "time"

// RepoName identifies a repository on the hosting platform.
type RepoName struct {
	Owner string
	Name  string
}

// String returns the "owner/name" form used in logs and branch keys.
func (r RepoName) String() string { return r.Owner + "/" + r.Name }

// IsZero reports whether the repository name is unset.
func (r RepoName) IsZero() bool { return r.Owner == "" && r.Name == "" }

// CommitInfo is a commit as fetched from the platform. Immutable;
// never persisted by the engine.
type CommitInfo struct {
	SHA       string
	Message   string
	Author    string
	Timestamp time.Time
}

// PullRequest is the platform's pull-request resource as seen through
// the port. The engine projects its ReleaseRequest record from this.
type PullRequest struct {
	Number     int
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
	Merged     bool
	MergeSHA   string

	// ConcurrencyToken is an opaque value proving the holder last
	// read the current state. Updates must carry it back; a stale
	// token is rejected with a conflict error.
	ConcurrencyToken string
}

// NewPullRequest carries the fields for creating a pull request.
type NewPullRequest struct {
	Title      string
	Body       string
	HeadBranch string
	BaseBranch string
}

// PullRequestUpdate carries the mutable fields for updating a pull
// request. Nil fields are left unchanged.
type PullRequestUpdate struct {
	Title *string
	Body  *string
	// HeadBranch repoints the pull request to a different head
	// branch (used for release-branch renames on version change).
	HeadBranch *string

	// ExpectedToken is the concurrency token obtained on read. The
	// adapter rejects the update with a conflict error if the
	// resource has changed since.
	ExpectedToken string
}

// Branch is a branch ref with its head commit.
type Branch struct {
	Name string
	SHA  string
}

// Tag is a tag ref.
type Tag struct {
	Name string
	SHA  string
}

// NewRelease carries the fields for publishing a release.
type NewRelease struct {
	TagName    string
	TargetSHA  string
	Name       string
	Notes      string
	Prerelease bool
}

// Release is a published release.
type Release struct {
	ID         int64
	TagName    string
	Name       string
	Notes      string
	Prerelease bool
	URL        string
}
