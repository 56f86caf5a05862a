// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/capstan-release/capstan/lib/changelog"
	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/conventional"
	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/resilience"
	"github.com/capstan-release/capstan/lib/semver"
	"github.com/capstan-release/capstan/lib/template"
)

// branchCreateAttempts bounds release branch creation: the primary
// name plus timestamp-suffixed fallbacks.
const branchCreateAttempts = 5

// Reconciler maintains a repository's single release pull request: it
// recalculates the version and changelog from the commits since the
// last release and creates or updates the release pull request to
// match.
type Reconciler struct {
	operations forge.Operations
	clock      clock.Clock
	logger     *slog.Logger
}

// NewReconciler creates a reconciler over the given port.
func NewReconciler(operations forge.Operations, clk clock.Clock, logger *slog.Logger) *Reconciler {
	return &Reconciler{operations: operations, clock: clk, logger: logger}
}

// Reconcile processes a qualifying merge into the main branch.
func (r *Reconciler) Reconcile(ctx context.Context, processing Context, event Event, configuration *config.Config) Outcome {
	existing, outcome, ok := r.findRequest(ctx, processing, configuration)
	if !ok {
		return outcome
	}
	if existing == nil {
		result, incoming, outcome, ok := r.calculate(ctx, processing, configuration)
		if !ok {
			return outcome
		}
		return r.create(ctx, processing, configuration, result, incoming)
	}
	return r.update(ctx, processing, configuration, existing.Number)
}

// calculate derives the target version and changelog from the
// commits since the last release. The update path calls it once per
// concurrency attempt so a retried cycle never acts on stale
// commits.
func (r *Reconciler) calculate(ctx context.Context, processing Context, configuration *config.Config) (conventional.Result, *changelog.Changelog, Outcome, bool) {
	currentVersion, baseline, outcome, ok := r.releaseBaseline(ctx, processing, configuration)
	if !ok {
		return conventional.Result{}, nil, outcome, false
	}

	commits, err := r.operations.ListCommits(ctx, processing.Repo, baseline, configuration.MainBranch)
	if err != nil {
		return conventional.Result{}, nil, failed(processing, err), false
	}

	result, err := conventional.Calculate(commits, currentVersion)
	if err != nil {
		return conventional.Result{}, nil, failedPermanent(processing, err.Error()), false
	}
	if !result.ReleaseNeeded() {
		return conventional.Result{}, nil, noAction(processing, "no qualifying commits since last release"), false
	}
	return result, changelog.FromCommits(result.Commits), Outcome{}, true
}

// releaseBaseline resolves the repository's current version and the
// ref commits are listed from. A repository with no release yet
// yields an empty version (baseline 0.0.0) and full history.
func (r *Reconciler) releaseBaseline(ctx context.Context, processing Context, configuration *config.Config) (currentVersion, baseline string, outcome Outcome, ok bool) {
	latest, err := r.operations.GetLatestRelease(ctx, processing.Repo)
	if forge.IsNotFound(err) {
		return "", "", Outcome{}, true
	}
	if err != nil {
		return "", "", failed(processing, err), false
	}
	return strings.TrimPrefix(latest.TagName, configuration.VersionPrefix), latest.TagName, Outcome{}, true
}

// findRequest locates the repository's open release pull request, if
// any. Only branches matching the owned naming pattern qualify.
func (r *Reconciler) findRequest(ctx context.Context, processing Context, configuration *config.Config) (*Request, Outcome, bool) {
	candidates, err := r.operations.FindReleasePullRequests(ctx, processing.Repo, configuration.BranchPrefix)
	if err != nil {
		return nil, failed(processing, err), false
	}
	for _, candidate := range candidates {
		request, owned := projectRequest(candidate, configuration.BranchPrefix)
		if owned && request.BaseBranch == configuration.MainBranch {
			return &request, Outcome{}, true
		}
	}
	return nil, Outcome{}, true
}

// create opens a new release pull request with the full changelog.
func (r *Reconciler) create(ctx context.Context, processing Context, configuration *config.Config, result conventional.Result, incoming *changelog.Changelog) Outcome {
	mainHead, err := r.operations.GetBranch(ctx, processing.Repo, configuration.MainBranch)
	if err != nil {
		return failed(processing, err)
	}

	branch, outcome, ok := r.createBranch(ctx, processing, configuration, result.Next, mainHead.SHA)
	if !ok {
		return outcome
	}

	title, body := r.renderSurfaces(configuration, result.Next, incoming, len(result.Commits))
	pullRequest, err := r.operations.CreatePullRequest(ctx, processing.Repo, forge.NewPullRequest{
		Title:      title,
		Body:       body,
		HeadBranch: branch,
		BaseBranch: configuration.MainBranch,
	})
	if err != nil {
		return failed(processing, err)
	}

	r.logger.Info("created release pull request",
		"correlation_id", processing.CorrelationID,
		"repo", processing.Repo.String(),
		"number", pullRequest.Number,
		"version", result.Next.String(),
		"branch", branch,
	)
	return created(processing, pullRequest.Number, result.Next)
}

// createBranch creates the release branch at the given commit, trying
// the primary name first and timestamp-suffixed fallbacks on
// collision. Exhausting the attempts is terminal for this event.
func (r *Reconciler) createBranch(ctx context.Context, processing Context, configuration *config.Config, version semver.Version, sha string) (string, Outcome, bool) {
	for attempt := 0; attempt < branchCreateAttempts; attempt++ {
		name := branchName(configuration.BranchPrefix, version)
		if attempt > 0 {
			name = fallbackBranchName(configuration.BranchPrefix, version, r.clock.Now().Unix())
		}

		err := r.operations.CreateBranch(ctx, processing.Repo, name, sha)
		if err == nil {
			return name, Outcome{}, true
		}
		if !forge.IsConflict(err) {
			return "", failed(processing, err), false
		}
		r.logger.Warn("release branch name in use",
			"correlation_id", processing.CorrelationID,
			"branch", name,
			"attempt", attempt+1,
		)
	}
	return "", Outcome{
		Kind:          OutcomeFailed,
		CorrelationID: processing.CorrelationID,
		Repo:          processing.Repo,
		Reason:        fmt.Sprintf("release branch name conflict persisted after %d attempts", branchCreateAttempts),
		FailureKind:   forge.KindConflict,
	}, false
}

// update applies the calculated version and changelog to an existing
// release pull request. Runs under the optimistic-concurrency loop:
// on a stale token the whole cycle repeats, commit listing and
// version calculation included.
func (r *Reconciler) update(ctx context.Context, processing Context, configuration *config.Config, number int) Outcome {
	var outcome Outcome
	err := resilience.WithConflictRetry(ctx, r.logger, "reconcile release pull request", func(ctx context.Context) error {
		result, incoming, terminal, ok := r.calculate(ctx, processing, configuration)
		if !ok {
			outcome = terminal
			return nil
		}

		fresh, err := r.operations.GetPullRequest(ctx, processing.Repo, number)
		if err != nil {
			return err
		}
		request, owned := projectRequest(*fresh, configuration.BranchPrefix)
		if !owned {
			outcome = skipped(processing, "release pull request no longer owned")
			return nil
		}

		target := request.Version
		updateKind := UpdateChangelogOnly
		downgrade := false
		switch {
		case request.Version.Less(result.Next):
			target = result.Next
			updateKind = UpdateVersionBumped
		case result.Next.Less(request.Version):
			downgrade = true
		}

		merged := changelog.Parse(request.Body).Merge(incoming)
		_, body := r.renderSurfaces(configuration, target, merged, merged.EntryCount())

		if body == request.Body && updateKind == UpdateChangelogOnly {
			outcome = skipped(processing, "already processed")
			return nil
		}

		if updateKind == UpdateVersionBumped {
			if err := r.bumpVersion(ctx, processing, configuration, request, target, merged, body); err != nil {
				return err
			}
		} else {
			if downgrade {
				r.logger.Warn("calculated version lower than release pull request, keeping existing",
					"correlation_id", processing.CorrelationID,
					"calculated", result.Next.String(),
					"existing", request.Version.String(),
				)
			}
			update := forge.PullRequestUpdate{Body: &body, ExpectedToken: request.ConcurrencyToken}
			if _, err := r.operations.UpdatePullRequest(ctx, processing.Repo, request.Number, update); err != nil {
				return err
			}
		}

		outcome = updated(processing, request.Number, target, updateKind)
		if downgrade {
			outcome.Reason = "calculated version lower than existing; version unchanged"
		}
		return nil
	})
	if err != nil {
		return failed(processing, err)
	}
	return outcome
}

// bumpVersion moves the release pull request to a higher version:
// create the new branch at the old branch's head, repoint the pull
// request, then best-effort delete the old branch.
func (r *Reconciler) bumpVersion(ctx context.Context, processing Context, configuration *config.Config, request Request, target semver.Version, merged *changelog.Changelog, body string) error {
	newBranch := branchName(configuration.BranchPrefix, target)
	if newBranch != request.BranchName {
		head, err := r.operations.GetBranch(ctx, processing.Repo, request.BranchName)
		if err != nil {
			return err
		}
		err = r.operations.CreateBranch(ctx, processing.Repo, newBranch, head.SHA)
		// An existing branch means a previous attempt got this far;
		// repointing the pull request converges either way.
		if err != nil && !forge.IsConflict(err) {
			return err
		}
	}

	title, _ := r.renderSurfaces(configuration, target, merged, merged.EntryCount())
	update := forge.PullRequestUpdate{
		Title:         &title,
		Body:          &body,
		ExpectedToken: request.ConcurrencyToken,
	}
	if newBranch != request.BranchName {
		update.HeadBranch = &newBranch
	}
	if _, err := r.operations.UpdatePullRequest(ctx, processing.Repo, request.Number, update); err != nil {
		return err
	}

	if newBranch != request.BranchName {
		if err := r.operations.DeleteBranch(ctx, processing.Repo, request.BranchName); err != nil {
			r.logger.Warn("could not delete superseded release branch",
				"correlation_id", processing.CorrelationID,
				"branch", request.BranchName,
				"error", err,
			)
		}
	}
	return nil
}

// renderSurfaces renders the pull request title and body. A template
// failure falls back to the plain built-in form rather than failing
// the event.
func (r *Reconciler) renderSurfaces(configuration *config.Config, version semver.Version, log *changelog.Changelog, commitCount int) (title, body string) {
	values := template.Values{
		Version:     version.String(),
		VersionTag:  configuration.VersionPrefix + version.String(),
		Changelog:   log.Render(),
		CommitCount: commitCount,
		Date:        r.clock.Now(),
	}

	title, err := template.Render(configuration.Templates.Title, values)
	if err != nil {
		r.logger.Warn("title template failed, using fallback", "error", err)
		title = "chore(release): " + values.Version
	}
	body, err = template.Render(configuration.Templates.Body, values)
	if err != nil {
		r.logger.Warn("body template failed, using fallback", "error", err)
		body = "## Changelog\n\n" + values.Changelog
	}
	return title, body
}
