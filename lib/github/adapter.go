// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/capstan-release/capstan/lib/forge"
)

// listPageSize is the page size for paginated list endpoints (GitHub
// caps per_page at 100).
const listPageSize = 100

// wirePullRequest is GitHub's pull request representation, reduced to
// the fields the engine reads. updated_at doubles as the optimistic
// concurrency token.
type wirePullRequest struct {
	Number         int     `json:"number"`
	Title          string  `json:"title"`
	Body           string  `json:"body"`
	State          string  `json:"state"`
	Merged         bool    `json:"merged"`
	MergedAt       *string `json:"merged_at"`
	MergeCommitSHA string  `json:"merge_commit_sha"`
	UpdatedAt      string  `json:"updated_at"`
	Head           wireRef `json:"head"`
	Base           wireRef `json:"base"`
}

type wireRef struct {
	Ref string `json:"ref"`
	SHA string `json:"sha"`
}

func (pr wirePullRequest) toPort() *forge.PullRequest {
	return &forge.PullRequest{
		Number:           pr.Number,
		Title:            pr.Title,
		Body:             pr.Body,
		HeadBranch:       pr.Head.Ref,
		BaseBranch:       pr.Base.Ref,
		Merged:           pr.Merged || pr.MergedAt != nil,
		MergeSHA:         pr.MergeCommitSHA,
		ConcurrencyToken: pr.UpdatedAt,
	}
}

// wireGitRef is GitHub's git reference representation (branches and
// tags under refs/).
type wireGitRef struct {
	Ref    string `json:"ref"`
	Object struct {
		SHA string `json:"sha"`
	} `json:"object"`
}

// wireComparison is the relevant part of GitHub's commit comparison
// response. Commits are ordered oldest first.
type wireComparison struct {
	Commits []wireCommit `json:"commits"`
}

type wireCommit struct {
	SHA    string `json:"sha"`
	Commit struct {
		Message string `json:"message"`
		Author  struct {
			Name string    `json:"name"`
			Date time.Time `json:"date"`
		} `json:"author"`
	} `json:"commit"`
}

// wireRelease is GitHub's release representation.
type wireRelease struct {
	ID         int64  `json:"id"`
	TagName    string `json:"tag_name"`
	Name       string `json:"name"`
	Body       string `json:"body"`
	Prerelease bool   `json:"prerelease"`
	HTMLURL    string `json:"html_url"`
}

func (release wireRelease) toPort() *forge.Release {
	return &forge.Release{
		ID:         release.ID,
		TagName:    release.TagName,
		Name:       release.Name,
		Notes:      release.Body,
		Prerelease: release.Prerelease,
		URL:        release.HTMLURL,
	}
}

// GetPullRequest implements forge.Operations.
func (client *Client) GetPullRequest(ctx context.Context, repo forge.RepoName, number int) (*forge.PullRequest, error) {
	var pullRequest wirePullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", repo.Owner, repo.Name, number)
	if err := client.get(ctx, path, &pullRequest); err != nil {
		return nil, classify("get pull request", err)
	}
	return pullRequest.toPort(), nil
}

// FindReleasePullRequests implements forge.Operations. It pages
// through the repository's open pull requests and keeps those whose
// head branch starts with branchPrefix.
func (client *Client) FindReleasePullRequests(ctx context.Context, repo forge.RepoName, branchPrefix string) ([]forge.PullRequest, error) {
	var matches []forge.PullRequest
	for page := 1; ; page++ {
		var pagePullRequests []wirePullRequest
		path := fmt.Sprintf("/repos/%s/%s/pulls?state=open&per_page=%d&page=%d",
			repo.Owner, repo.Name, listPageSize, page)
		if err := client.get(ctx, path, &pagePullRequests); err != nil {
			return nil, classify("list pull requests", err)
		}
		for _, pullRequest := range pagePullRequests {
			if strings.HasPrefix(pullRequest.Head.Ref, branchPrefix) {
				matches = append(matches, *pullRequest.toPort())
			}
		}
		if len(pagePullRequests) < listPageSize {
			return matches, nil
		}
	}
}

// CreatePullRequest implements forge.Operations.
func (client *Client) CreatePullRequest(ctx context.Context, repo forge.RepoName, request forge.NewPullRequest) (*forge.PullRequest, error) {
	wireRequest := struct {
		Title string `json:"title"`
		Body  string `json:"body"`
		Head  string `json:"head"`
		Base  string `json:"base"`
	}{
		Title: request.Title,
		Body:  request.Body,
		Head:  request.HeadBranch,
		Base:  request.BaseBranch,
	}

	var pullRequest wirePullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls", repo.Owner, repo.Name)
	if err := client.post(ctx, path, wireRequest, &pullRequest); err != nil {
		return nil, classify("create pull request", err)
	}
	return pullRequest.toPort(), nil
}

// UpdatePullRequest implements forge.Operations. The update is
// conditional: the adapter refetches the pull request, and a
// concurrency token that no longer matches update.ExpectedToken means
// another writer got there first, reported as a conflict so the
// caller refetches and recomputes.
func (client *Client) UpdatePullRequest(ctx context.Context, repo forge.RepoName, number int, update forge.PullRequestUpdate) (*forge.PullRequest, error) {
	const op = "update pull request"

	if update.ExpectedToken != "" {
		var current wirePullRequest
		path := fmt.Sprintf("/repos/%s/%s/pulls/%d", repo.Owner, repo.Name, number)
		if err := client.get(ctx, path, &current); err != nil {
			return nil, classify(op, err)
		}
		if current.UpdatedAt != update.ExpectedToken {
			return nil, &forge.Error{
				Kind:    forge.KindConflict,
				Op:      op,
				Message: fmt.Sprintf("pull request #%d changed since it was read", number),
			}
		}
	}

	wireUpdate := struct {
		Title *string `json:"title,omitempty"`
		Body  *string `json:"body,omitempty"`
		Head  *string `json:"head,omitempty"`
	}{
		Title: update.Title,
		Body:  update.Body,
		Head:  update.HeadBranch,
	}

	var pullRequest wirePullRequest
	path := fmt.Sprintf("/repos/%s/%s/pulls/%d", repo.Owner, repo.Name, number)
	if err := client.patch(ctx, path, wireUpdate, &pullRequest); err != nil {
		return nil, classify(op, err)
	}
	return pullRequest.toPort(), nil
}

// GetBranch implements forge.Operations.
func (client *Client) GetBranch(ctx context.Context, repo forge.RepoName, name string) (*forge.Branch, error) {
	var ref wireGitRef
	path := fmt.Sprintf("/repos/%s/%s/git/ref/%s", repo.Owner, repo.Name, url.PathEscape("heads/"+name))
	if err := client.get(ctx, path, &ref); err != nil {
		return nil, classify("get branch", err)
	}
	return &forge.Branch{Name: name, SHA: ref.Object.SHA}, nil
}

// CreateBranch implements forge.Operations.
func (client *Client) CreateBranch(ctx context.Context, repo forge.RepoName, name, sha string) error {
	request := struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}{Ref: "refs/heads/" + name, SHA: sha}

	path := fmt.Sprintf("/repos/%s/%s/git/refs", repo.Owner, repo.Name)
	return classify("create branch", client.post(ctx, path, request, nil))
}

// DeleteBranch implements forge.Operations.
func (client *Client) DeleteBranch(ctx context.Context, repo forge.RepoName, name string) error {
	path := fmt.Sprintf("/repos/%s/%s/git/refs/%s", repo.Owner, repo.Name, url.PathEscape("heads/"+name))
	return classify("delete branch", client.delete(ctx, path))
}

// ListCommits implements forge.Operations using the commit comparison
// endpoint, which returns the commits reachable from head but not
// base, oldest first. An empty base lists head's entire history
// instead, for repositories with no release baseline yet.
func (client *Client) ListCommits(ctx context.Context, repo forge.RepoName, base, head string) ([]forge.CommitInfo, error) {
	if base == "" {
		return client.listAllCommits(ctx, repo, head)
	}

	var comparison wireComparison
	path := fmt.Sprintf("/repos/%s/%s/compare/%s...%s",
		repo.Owner, repo.Name, url.PathEscape(base), url.PathEscape(head))
	if err := client.get(ctx, path, &comparison); err != nil {
		return nil, classify("list commits", err)
	}

	commits := make([]forge.CommitInfo, 0, len(comparison.Commits))
	for _, commit := range comparison.Commits {
		commits = append(commits, forge.CommitInfo{
			SHA:       commit.SHA,
			Message:   commit.Commit.Message,
			Author:    commit.Commit.Author.Name,
			Timestamp: commit.Commit.Author.Date,
		})
	}
	return commits, nil
}

// listAllCommits pages through head's full history. The commits
// endpoint returns newest first; the result is reversed to match the
// oldest-first contract.
func (client *Client) listAllCommits(ctx context.Context, repo forge.RepoName, head string) ([]forge.CommitInfo, error) {
	var all []wireCommit
	for page := 1; ; page++ {
		var pageCommits []wireCommit
		path := fmt.Sprintf("/repos/%s/%s/commits?sha=%s&per_page=%d&page=%d",
			repo.Owner, repo.Name, url.QueryEscape(head), listPageSize, page)
		if err := client.get(ctx, path, &pageCommits); err != nil {
			return nil, classify("list commits", err)
		}
		all = append(all, pageCommits...)
		if len(pageCommits) < listPageSize {
			break
		}
	}

	commits := make([]forge.CommitInfo, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		commit := all[i]
		commits = append(commits, forge.CommitInfo{
			SHA:       commit.SHA,
			Message:   commit.Commit.Message,
			Author:    commit.Commit.Author.Name,
			Timestamp: commit.Commit.Author.Date,
		})
	}
	return commits, nil
}

// GetTag implements forge.Operations.
func (client *Client) GetTag(ctx context.Context, repo forge.RepoName, name string) (*forge.Tag, error) {
	var ref wireGitRef
	path := fmt.Sprintf("/repos/%s/%s/git/ref/%s", repo.Owner, repo.Name, url.PathEscape("tags/"+name))
	if err := client.get(ctx, path, &ref); err != nil {
		return nil, classify("get tag", err)
	}
	return &forge.Tag{Name: name, SHA: ref.Object.SHA}, nil
}

// CreateTag implements forge.Operations. Creates a lightweight tag
// ref pointing at the commit.
func (client *Client) CreateTag(ctx context.Context, repo forge.RepoName, name, sha string) error {
	request := struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}{Ref: "refs/tags/" + name, SHA: sha}

	path := fmt.Sprintf("/repos/%s/%s/git/refs", repo.Owner, repo.Name)
	return classify("create tag", client.post(ctx, path, request, nil))
}

// CreateRelease implements forge.Operations.
func (client *Client) CreateRelease(ctx context.Context, repo forge.RepoName, release forge.NewRelease) (*forge.Release, error) {
	request := struct {
		TagName         string `json:"tag_name"`
		TargetCommitish string `json:"target_commitish,omitempty"`
		Name            string `json:"name"`
		Body            string `json:"body"`
		Prerelease      bool   `json:"prerelease"`
	}{
		TagName:         release.TagName,
		TargetCommitish: release.TargetSHA,
		Name:            release.Name,
		Body:            release.Notes,
		Prerelease:      release.Prerelease,
	}

	var created wireRelease
	path := fmt.Sprintf("/repos/%s/%s/releases", repo.Owner, repo.Name)
	if err := client.post(ctx, path, request, &created); err != nil {
		return nil, classify("create release", err)
	}
	return created.toPort(), nil
}

// GetReleaseByTag implements forge.Operations.
func (client *Client) GetReleaseByTag(ctx context.Context, repo forge.RepoName, tag string) (*forge.Release, error) {
	var release wireRelease
	path := fmt.Sprintf("/repos/%s/%s/releases/tags/%s", repo.Owner, repo.Name, url.PathEscape(tag))
	if err := client.get(ctx, path, &release); err != nil {
		return nil, classify("get release by tag", err)
	}
	return release.toPort(), nil
}

// GetLatestRelease implements forge.Operations.
func (client *Client) GetLatestRelease(ctx context.Context, repo forge.RepoName) (*forge.Release, error) {
	var release wireRelease
	path := fmt.Sprintf("/repos/%s/%s/releases/latest", repo.Owner, repo.Name)
	if err := client.get(ctx, path, &release); err != nil {
		return nil, classify("get latest release", err)
	}
	return release.toPort(), nil
}

// interface conformance check
var _ forge.Operations = (*Client)(nil)
