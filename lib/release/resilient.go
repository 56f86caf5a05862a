// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"log/slog"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/resilience"
)

// resilientOperations decorates a forge.Operations with the circuit
// breaker and transient-failure retry. Every outbound port call from
// the reconciler and publisher goes through here.
type resilientOperations struct {
	inner   forge.Operations
	breaker *resilience.Breaker
	policy  resilience.RetryPolicy
	clock   clock.Clock
	logger  *slog.Logger
}

var _ forge.Operations = (*resilientOperations)(nil)

// call runs fn under the breaker and retry policy. Only transient
// outcomes count against the breaker: conflicts and not-founds are
// the platform answering, not the platform failing.
func (r *resilientOperations) call(ctx context.Context, op string, fn func(context.Context) error) error {
	if err := r.breaker.Allow(); err != nil {
		return &forge.Error{Kind: forge.KindTransient, Op: op, Message: "circuit open", Err: err}
	}
	err := resilience.Retry(ctx, r.clock, r.logger, r.policy, op, fn)
	if err != nil && forge.IsTransient(err) {
		r.breaker.RecordFailure()
	} else {
		r.breaker.RecordSuccess()
	}
	return err
}

func (r *resilientOperations) GetPullRequest(ctx context.Context, repo forge.RepoName, number int) (*forge.PullRequest, error) {
	var result *forge.PullRequest
	err := r.call(ctx, "get pull request", func(ctx context.Context) error {
		var err error
		result, err = r.inner.GetPullRequest(ctx, repo, number)
		return err
	})
	return result, err
}

func (r *resilientOperations) FindReleasePullRequests(ctx context.Context, repo forge.RepoName, branchPrefix string) ([]forge.PullRequest, error) {
	var result []forge.PullRequest
	err := r.call(ctx, "find release pull requests", func(ctx context.Context) error {
		var err error
		result, err = r.inner.FindReleasePullRequests(ctx, repo, branchPrefix)
		return err
	})
	return result, err
}

func (r *resilientOperations) CreatePullRequest(ctx context.Context, repo forge.RepoName, request forge.NewPullRequest) (*forge.PullRequest, error) {
	var result *forge.PullRequest
	err := r.call(ctx, "create pull request", func(ctx context.Context) error {
		var err error
		result, err = r.inner.CreatePullRequest(ctx, repo, request)
		return err
	})
	return result, err
}

func (r *resilientOperations) UpdatePullRequest(ctx context.Context, repo forge.RepoName, number int, update forge.PullRequestUpdate) (*forge.PullRequest, error) {
	var result *forge.PullRequest
	err := r.call(ctx, "update pull request", func(ctx context.Context) error {
		var err error
		result, err = r.inner.UpdatePullRequest(ctx, repo, number, update)
		return err
	})
	return result, err
}

func (r *resilientOperations) GetBranch(ctx context.Context, repo forge.RepoName, name string) (*forge.Branch, error) {
	var result *forge.Branch
	err := r.call(ctx, "get branch", func(ctx context.Context) error {
		var err error
		result, err = r.inner.GetBranch(ctx, repo, name)
		return err
	})
	return result, err
}

func (r *resilientOperations) CreateBranch(ctx context.Context, repo forge.RepoName, name, sha string) error {
	return r.call(ctx, "create branch", func(ctx context.Context) error {
		return r.inner.CreateBranch(ctx, repo, name, sha)
	})
}

func (r *resilientOperations) DeleteBranch(ctx context.Context, repo forge.RepoName, name string) error {
	return r.call(ctx, "delete branch", func(ctx context.Context) error {
		return r.inner.DeleteBranch(ctx, repo, name)
	})
}

func (r *resilientOperations) ListCommits(ctx context.Context, repo forge.RepoName, base, head string) ([]forge.CommitInfo, error) {
	var result []forge.CommitInfo
	err := r.call(ctx, "list commits", func(ctx context.Context) error {
		var err error
		result, err = r.inner.ListCommits(ctx, repo, base, head)
		return err
	})
	return result, err
}

func (r *resilientOperations) GetTag(ctx context.Context, repo forge.RepoName, name string) (*forge.Tag, error) {
	var result *forge.Tag
	err := r.call(ctx, "get tag", func(ctx context.Context) error {
		var err error
		result, err = r.inner.GetTag(ctx, repo, name)
		return err
	})
	return result, err
}

func (r *resilientOperations) CreateTag(ctx context.Context, repo forge.RepoName, name, sha string) error {
	return r.call(ctx, "create tag", func(ctx context.Context) error {
		return r.inner.CreateTag(ctx, repo, name, sha)
	})
}

func (r *resilientOperations) CreateRelease(ctx context.Context, repo forge.RepoName, release forge.NewRelease) (*forge.Release, error) {
	var result *forge.Release
	err := r.call(ctx, "create release", func(ctx context.Context) error {
		var err error
		result, err = r.inner.CreateRelease(ctx, repo, release)
		return err
	})
	return result, err
}

func (r *resilientOperations) GetReleaseByTag(ctx context.Context, repo forge.RepoName, tag string) (*forge.Release, error) {
	var result *forge.Release
	err := r.call(ctx, "get release by tag", func(ctx context.Context) error {
		var err error
		result, err = r.inner.GetReleaseByTag(ctx, repo, tag)
		return err
	})
	return result, err
}

func (r *resilientOperations) GetLatestRelease(ctx context.Context, repo forge.RepoName) (*forge.Release, error) {
	var result *forge.Release
	err := r.call(ctx, "get latest release", func(ctx context.Context) error {
		var err error
		result, err = r.inner.GetLatestRelease(ctx, repo)
		return err
	})
	return result, err
}
