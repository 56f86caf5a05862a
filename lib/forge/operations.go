// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import "context"

// Operations is the repository-API port. Every method reports
// failures as a *Error so the caller can distinguish transient,
// conflict, permanent, and not-found conditions.
//
// All methods are safe to call from concurrent goroutines; the
// per-repository ordering guarantee is the dispatcher's job, not the
// adapter's.
type Operations interface {
	// GetPullRequest retrieves a pull request by number, including
	// its current concurrency token.
	GetPullRequest(ctx context.Context, repo RepoName, number int) (*PullRequest, error)

	// FindReleasePullRequests returns the open pull requests whose
	// head branch starts with the given prefix. The caller filters
	// the result down to branches it actually owns — the adapter
	// performs only the coarse prefix search the platform supports.
	FindReleasePullRequests(ctx context.Context, repo RepoName, branchPrefix string) ([]PullRequest, error)

	// CreatePullRequest opens a new pull request.
	CreatePullRequest(ctx context.Context, repo RepoName, request NewPullRequest) (*PullRequest, error)

	// UpdatePullRequest applies a conditional update. Returns a
	// conflict error if update.ExpectedToken no longer matches the
	// resource's current state.
	UpdatePullRequest(ctx context.Context, repo RepoName, number int, update PullRequestUpdate) (*PullRequest, error)

	// GetBranch resolves a branch to its head commit. Not-found if
	// the branch does not exist.
	GetBranch(ctx context.Context, repo RepoName, name string) (*Branch, error)

	// CreateBranch creates a branch ref at the given commit.
	// Conflict if the ref already exists.
	CreateBranch(ctx context.Context, repo RepoName, name, sha string) error

	// DeleteBranch deletes a branch ref. Used for best-effort
	// cleanup; callers treat its failure as non-fatal.
	DeleteBranch(ctx context.Context, repo RepoName, name string) error

	// ListCommits returns the commits reachable from head but not
	// from base, oldest first. An empty base means the beginning of
	// history (no prior release baseline exists).
	ListCommits(ctx context.Context, repo RepoName, base, head string) ([]CommitInfo, error)

	// GetTag resolves a tag by name. Not-found if absent — the
	// publisher uses this as its idempotency check before CreateTag.
	GetTag(ctx context.Context, repo RepoName, name string) (*Tag, error)

	// CreateTag creates a tag ref at the given commit. Conflict if
	// the tag already exists; the engine never overwrites a tag.
	CreateTag(ctx context.Context, repo RepoName, name, sha string) error

	// CreateRelease publishes a release for an existing tag.
	CreateRelease(ctx context.Context, repo RepoName, release NewRelease) (*Release, error)

	// GetReleaseByTag returns the release published for the given
	// tag, or not-found. The publisher uses it to resume an event
	// whose tag was created but whose release was not.
	GetReleaseByTag(ctx context.Context, repo RepoName, tag string) (*Release, error)

	// GetLatestRelease returns the most recent published release,
	// or not-found when the repository has never released. The
	// engine derives the current version baseline from it.
	GetLatestRelease(ctx context.Context, repo RepoName) (*Release, error)
}
