// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"log/slog"
	"strings"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/semver"
	"github.com/capstan-release/capstan/lib/template"
)

// noteBoundaryMarkers terminate the extracted release notes: content
// runs from just past the matched section marker to the first of
// these, or the end of the body.
var noteBoundaryMarkers = []string{"\n---", "<!-- capstan:"}

// Publisher turns a merged release pull request into a tag and a
// published release carrying the accumulated notes.
type Publisher struct {
	operations forge.Operations
	clock      clock.Clock
	logger     *slog.Logger
}

// NewPublisher creates a publisher over the given port.
func NewPublisher(operations forge.Operations, clk clock.Clock, logger *slog.Logger) *Publisher {
	return &Publisher{operations: operations, clock: clk, logger: logger}
}

// Publish processes the merge of a release pull request. The tag
// targets the event's merge commit; without that SHA nothing is
// mutated. A tag that already exists at a different commit is a
// terminal conflict, never overwritten.
func (p *Publisher) Publish(ctx context.Context, processing Context, event Event, configuration *config.Config) Outcome {
	version, ok := p.extractVersion(event, configuration)
	if !ok {
		return failedPermanent(processing, "cannot determine release version from branch name or title")
	}
	if event.MergeCommitSHA == "" {
		return failedPermanent(processing, "missing merge commit SHA")
	}

	tagName := configuration.VersionPrefix + version.String()

	// Idempotency check before the mutation. A tag already at this
	// merge commit came from a previous attempt; the event is done
	// only if the release exists too, otherwise it resumes at
	// release creation.
	tagExists := false
	existing, err := p.operations.GetTag(ctx, processing.Repo, tagName)
	switch {
	case err == nil && existing.SHA == event.MergeCommitSHA:
		_, releaseErr := p.operations.GetReleaseByTag(ctx, processing.Repo, tagName)
		if releaseErr == nil {
			return skipped(processing, "already processed")
		}
		if !forge.IsNotFound(releaseErr) {
			return failed(processing, releaseErr)
		}
		tagExists = true
	case err == nil:
		return Outcome{
			Kind:          OutcomeFailed,
			CorrelationID: processing.CorrelationID,
			Repo:          processing.Repo,
			Version:       version.String(),
			Reason:        "tag " + tagName + " already exists at a different commit",
			FailureKind:   forge.KindConflict,
		}
	case !forge.IsNotFound(err):
		return failed(processing, err)
	}

	if !tagExists {
		if err := p.operations.CreateTag(ctx, processing.Repo, tagName, event.MergeCommitSHA); err != nil {
			if forge.IsConflict(err) {
				return Outcome{
					Kind:          OutcomeFailed,
					CorrelationID: processing.CorrelationID,
					Repo:          processing.Repo,
					Version:       version.String(),
					Reason:        "tag " + tagName + " already exists",
					FailureKind:   forge.KindConflict,
				}
			}
			return failed(processing, err)
		}
	}

	notes := extractNotes(event.Body, configuration.ChangelogMarkers)
	name := p.releaseName(configuration, version, tagName)

	if _, err := p.operations.CreateRelease(ctx, processing.Repo, forge.NewRelease{
		TagName:    tagName,
		TargetSHA:  event.MergeCommitSHA,
		Name:       name,
		Notes:      notes,
		Prerelease: version.IsPrerelease(),
	}); err != nil {
		return failed(processing, err)
	}

	// Cleanup is best effort: the release exists either way.
	if err := p.operations.DeleteBranch(ctx, processing.Repo, event.HeadRef); err != nil {
		p.logger.Warn("could not delete merged release branch",
			"correlation_id", processing.CorrelationID,
			"branch", event.HeadRef,
			"error", err,
		)
	}

	p.logger.Info("published release",
		"correlation_id", processing.CorrelationID,
		"repo", processing.Repo.String(),
		"tag", tagName,
		"prerelease", version.IsPrerelease(),
	)
	return published(processing, version)
}

// extractVersion resolves the release version: from the branch name
// first, from the title second. A version is never guessed.
func (p *Publisher) extractVersion(event Event, configuration *config.Config) (semver.Version, bool) {
	if version, ok := branchVersion(event.HeadRef, configuration.BranchPrefix); ok {
		return version, true
	}
	return titleVersion(event.Title, configuration.VersionPrefix)
}

// titleVersion scans the title for the first token that parses as a
// version, with or without the configured prefix.
func titleVersion(title, versionPrefix string) (semver.Version, bool) {
	for _, field := range strings.Fields(title) {
		candidate := strings.TrimPrefix(field, versionPrefix)
		if version, err := semver.Parse(candidate); err == nil {
			return version, true
		}
	}
	return semver.Version{}, false
}

// extractNotes pulls the release notes out of the pull request body.
// The first marker from the priority list found anywhere in the body
// wins (list order, not body position); the notes run to the next
// boundary marker or the end. With no marker the whole body is the
// notes.
func extractNotes(body string, markers []string) string {
	for _, marker := range markers {
		index := strings.Index(body, marker)
		if index < 0 {
			continue
		}
		notes := body[index+len(marker):]
		for _, boundary := range noteBoundaryMarkers {
			if cut := strings.Index(notes, boundary); cut >= 0 {
				notes = notes[:cut]
			}
		}
		return strings.TrimSpace(notes)
	}
	return strings.TrimSpace(body)
}

// releaseName renders the release name template, falling back to the
// tag name on failure.
func (p *Publisher) releaseName(configuration *config.Config, version semver.Version, tagName string) string {
	name, err := template.Render(configuration.Templates.ReleaseName, template.Values{
		Version:    version.String(),
		VersionTag: tagName,
		Date:       p.clock.Now(),
	})
	if err != nil {
		p.logger.Warn("release name template failed, using tag name", "error", err)
		return tagName
	}
	return name
}
