// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/capstan-release/capstan/lib/forge"
)

// fakeForge is an in-memory forge.Operations with real conflict
// semantics: branch and tag creation reject duplicates, and pull
// request updates enforce the concurrency token.
type fakeForge struct {
	mu sync.Mutex

	branches map[string]string // name -> sha
	tags     map[string]string // name -> sha
	pulls    map[int]*forge.PullRequest
	releases []forge.NewRelease

	nextNumber   int
	tokenCounter int

	commits       []forge.CommitInfo // since the latest release
	latestRelease *forge.Release

	// failures injects an error for a named operation. The count
	// decrements per call; zero means always.
	failures     map[string]error
	failureCount map[string]int

	deletedBranches []string

	// Call counts, incremented before failure injection.
	createBranchCalls int
	listCommitsCalls  int
}

func newFakeForge() *fakeForge {
	return &fakeForge{
		branches:     map[string]string{"main": "mainhead"},
		tags:         map[string]string{},
		pulls:        map[int]*forge.PullRequest{},
		nextNumber:   100,
		failures:     map[string]error{},
		failureCount: map[string]int{},
	}
}

func (f *fakeForge) failOnce(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
	f.failureCount[op] = 1
}

func (f *fakeForge) failAlways(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[op] = err
	f.failureCount[op] = 0
}

// injected returns the injected failure for op, if armed.
func (f *fakeForge) injected(op string) error {
	err, armed := f.failures[op]
	if !armed {
		return nil
	}
	if count := f.failureCount[op]; count > 0 {
		f.failureCount[op] = count - 1
		if count == 1 {
			delete(f.failures, op)
			delete(f.failureCount, op)
		}
	}
	return err
}

func (f *fakeForge) newToken() string {
	f.tokenCounter++
	return "token-" + strconv.Itoa(f.tokenCounter)
}

func (f *fakeForge) GetPullRequest(ctx context.Context, repo forge.RepoName, number int) (*forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("get pull request"); err != nil {
		return nil, err
	}
	pullRequest, ok := f.pulls[number]
	if !ok {
		return nil, &forge.Error{Kind: forge.KindNotFound, Op: "get pull request", Message: "no such pull request"}
	}
	copied := *pullRequest
	return &copied, nil
}

func (f *fakeForge) FindReleasePullRequests(ctx context.Context, repo forge.RepoName, branchPrefix string) ([]forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("find release pull requests"); err != nil {
		return nil, err
	}
	var matches []forge.PullRequest
	for _, pullRequest := range f.pulls {
		if !pullRequest.Merged && strings.HasPrefix(pullRequest.HeadBranch, branchPrefix) {
			matches = append(matches, *pullRequest)
		}
	}
	return matches, nil
}

func (f *fakeForge) CreatePullRequest(ctx context.Context, repo forge.RepoName, request forge.NewPullRequest) (*forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("create pull request"); err != nil {
		return nil, err
	}
	f.nextNumber++
	pullRequest := &forge.PullRequest{
		Number:           f.nextNumber,
		Title:            request.Title,
		Body:             request.Body,
		HeadBranch:       request.HeadBranch,
		BaseBranch:       request.BaseBranch,
		ConcurrencyToken: f.newToken(),
	}
	f.pulls[pullRequest.Number] = pullRequest
	copied := *pullRequest
	return &copied, nil
}

func (f *fakeForge) UpdatePullRequest(ctx context.Context, repo forge.RepoName, number int, update forge.PullRequestUpdate) (*forge.PullRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("update pull request"); err != nil {
		return nil, err
	}
	pullRequest, ok := f.pulls[number]
	if !ok {
		return nil, &forge.Error{Kind: forge.KindNotFound, Op: "update pull request", Message: "no such pull request"}
	}
	if update.ExpectedToken != "" && update.ExpectedToken != pullRequest.ConcurrencyToken {
		return nil, &forge.Error{Kind: forge.KindConflict, Op: "update pull request", Message: "stale concurrency token"}
	}
	if update.Title != nil {
		pullRequest.Title = *update.Title
	}
	if update.Body != nil {
		pullRequest.Body = *update.Body
	}
	if update.HeadBranch != nil {
		pullRequest.HeadBranch = *update.HeadBranch
	}
	pullRequest.ConcurrencyToken = f.newToken()
	copied := *pullRequest
	return &copied, nil
}

func (f *fakeForge) GetBranch(ctx context.Context, repo forge.RepoName, name string) (*forge.Branch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("get branch"); err != nil {
		return nil, err
	}
	sha, ok := f.branches[name]
	if !ok {
		return nil, &forge.Error{Kind: forge.KindNotFound, Op: "get branch", Message: "no such branch"}
	}
	return &forge.Branch{Name: name, SHA: sha}, nil
}

func (f *fakeForge) CreateBranch(ctx context.Context, repo forge.RepoName, name, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createBranchCalls++
	if err := f.injected("create branch"); err != nil {
		return err
	}
	if _, exists := f.branches[name]; exists {
		return &forge.Error{Kind: forge.KindConflict, Op: "create branch", Message: "reference already exists"}
	}
	f.branches[name] = sha
	return nil
}

func (f *fakeForge) DeleteBranch(ctx context.Context, repo forge.RepoName, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("delete branch"); err != nil {
		return err
	}
	if _, exists := f.branches[name]; !exists {
		return &forge.Error{Kind: forge.KindNotFound, Op: "delete branch", Message: "no such branch"}
	}
	delete(f.branches, name)
	f.deletedBranches = append(f.deletedBranches, name)
	return nil
}

func (f *fakeForge) ListCommits(ctx context.Context, repo forge.RepoName, base, head string) ([]forge.CommitInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCommitsCalls++
	if err := f.injected("list commits"); err != nil {
		return nil, err
	}
	return append([]forge.CommitInfo(nil), f.commits...), nil
}

func (f *fakeForge) GetTag(ctx context.Context, repo forge.RepoName, name string) (*forge.Tag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("get tag"); err != nil {
		return nil, err
	}
	sha, ok := f.tags[name]
	if !ok {
		return nil, &forge.Error{Kind: forge.KindNotFound, Op: "get tag", Message: "no such tag"}
	}
	return &forge.Tag{Name: name, SHA: sha}, nil
}

func (f *fakeForge) CreateTag(ctx context.Context, repo forge.RepoName, name, sha string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("create tag"); err != nil {
		return err
	}
	if _, exists := f.tags[name]; exists {
		return &forge.Error{Kind: forge.KindConflict, Op: "create tag", Message: "tag already exists"}
	}
	f.tags[name] = sha
	return nil
}

func (f *fakeForge) CreateRelease(ctx context.Context, repo forge.RepoName, release forge.NewRelease) (*forge.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("create release"); err != nil {
		return nil, err
	}
	f.releases = append(f.releases, release)
	return &forge.Release{
		ID:         int64(len(f.releases)),
		TagName:    release.TagName,
		Name:       release.Name,
		Notes:      release.Notes,
		Prerelease: release.Prerelease,
		URL:        fmt.Sprintf("https://example.test/releases/%s", release.TagName),
	}, nil
}

func (f *fakeForge) GetReleaseByTag(ctx context.Context, repo forge.RepoName, tag string) (*forge.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("get release by tag"); err != nil {
		return nil, err
	}
	for i, release := range f.releases {
		if release.TagName == tag {
			return &forge.Release{
				ID:         int64(i + 1),
				TagName:    release.TagName,
				Name:       release.Name,
				Notes:      release.Notes,
				Prerelease: release.Prerelease,
			}, nil
		}
	}
	return nil, &forge.Error{Kind: forge.KindNotFound, Op: "get release by tag", Message: "no release for tag"}
}

func (f *fakeForge) GetLatestRelease(ctx context.Context, repo forge.RepoName) (*forge.Release, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.injected("get latest release"); err != nil {
		return nil, err
	}
	if f.latestRelease == nil {
		return nil, &forge.Error{Kind: forge.KindNotFound, Op: "get latest release", Message: "no releases"}
	}
	copied := *f.latestRelease
	return &copied, nil
}

var _ forge.Operations = (*fakeForge)(nil)
