// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"fmt"

	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/semver"
)

// OutcomeKind enumerates what processing one event accomplished.
type OutcomeKind int

const (
	// OutcomeNoActionNeeded means the event did not qualify for any
	// release work (not a merge, no qualifying commits).
	OutcomeNoActionNeeded OutcomeKind = iota
	// OutcomeCreated means a new release pull request was opened.
	OutcomeCreated
	// OutcomeUpdated means the existing release pull request was
	// updated; Update says how.
	OutcomeUpdated
	// OutcomeSkipped means the work was already done; Reason says
	// why.
	OutcomeSkipped
	// OutcomeReleasePublished means a tag and release were created.
	OutcomeReleasePublished
	// OutcomeFailed means processing failed; Reason and FailureKind
	// carry the classification.
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeCreated:
		return "created"
	case OutcomeUpdated:
		return "updated"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeReleasePublished:
		return "release_published"
	case OutcomeFailed:
		return "failed"
	default:
		return "no_action_needed"
	}
}

// UpdateKind says what an OutcomeUpdated changed.
type UpdateKind int

const (
	// UpdateChangelogOnly means only the changelog was merged; the
	// version did not change.
	UpdateChangelogOnly UpdateKind = iota
	// UpdateVersionBumped means the version increased (and the
	// branch was renamed to match).
	UpdateVersionBumped
)

func (k UpdateKind) String() string {
	if k == UpdateVersionBumped {
		return "version_bumped"
	}
	return "changelog_only"
}

// Outcome is the engine's result for one event. The entry points
// (CLI, webhook service) render it; nothing else is returned across
// the engine boundary.
type Outcome struct {
	Kind          OutcomeKind
	CorrelationID string
	Repo          forge.RepoName

	// PullRequestNumber is the release pull request involved, when
	// one was.
	PullRequestNumber int

	// Version is the release version the outcome concerns, when
	// known.
	Version string

	// Update qualifies OutcomeUpdated.
	Update UpdateKind

	// Reason carries the specific skip or failure precondition
	// ("already processed", "missing merge commit SHA").
	Reason string

	// FailureKind classifies OutcomeFailed for the transport layer
	// (a transient failure is worth redelivering, a permanent one
	// is not).
	FailureKind forge.ErrorKind
}

// String renders the outcome for logs and CLI output.
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeCreated:
		return fmt.Sprintf("created release PR #%d for %s", o.PullRequestNumber, o.Version)
	case OutcomeUpdated:
		return fmt.Sprintf("updated release PR #%d (%s, version %s)", o.PullRequestNumber, o.Update, o.Version)
	case OutcomeSkipped:
		return fmt.Sprintf("skipped: %s", o.Reason)
	case OutcomeReleasePublished:
		return fmt.Sprintf("published release %s", o.Version)
	case OutcomeFailed:
		return fmt.Sprintf("failed (%s): %s", o.FailureKind, o.Reason)
	default:
		if o.Reason != "" {
			return fmt.Sprintf("no action needed: %s", o.Reason)
		}
		return "no action needed"
	}
}

func noAction(processing Context, reason string) Outcome {
	return Outcome{
		Kind:          OutcomeNoActionNeeded,
		CorrelationID: processing.CorrelationID,
		Repo:          processing.Repo,
		Reason:        reason,
	}
}

func created(processing Context, number int, version semver.Version) Outcome {
	return Outcome{
		Kind:              OutcomeCreated,
		CorrelationID:     processing.CorrelationID,
		Repo:              processing.Repo,
		PullRequestNumber: number,
		Version:           version.String(),
	}
}

func updated(processing Context, number int, version semver.Version, kind UpdateKind) Outcome {
	return Outcome{
		Kind:              OutcomeUpdated,
		CorrelationID:     processing.CorrelationID,
		Repo:              processing.Repo,
		PullRequestNumber: number,
		Version:           version.String(),
		Update:            kind,
	}
}

func skipped(processing Context, reason string) Outcome {
	return Outcome{
		Kind:          OutcomeSkipped,
		CorrelationID: processing.CorrelationID,
		Repo:          processing.Repo,
		Reason:        reason,
	}
}

func published(processing Context, version semver.Version) Outcome {
	return Outcome{
		Kind:          OutcomeReleasePublished,
		CorrelationID: processing.CorrelationID,
		Repo:          processing.Repo,
		Version:       version.String(),
	}
}

// failed builds a failure outcome from an error, classifying it
// through the forge taxonomy.
func failed(processing Context, err error) Outcome {
	return Outcome{
		Kind:          OutcomeFailed,
		CorrelationID: processing.CorrelationID,
		Repo:          processing.Repo,
		Reason:        err.Error(),
		FailureKind:   forge.Classify(err),
	}
}

// failedPermanent builds a failure outcome for a specific violated
// precondition.
func failedPermanent(processing Context, reason string) Outcome {
	return Outcome{
		Kind:          OutcomeFailed,
		CorrelationID: processing.CorrelationID,
		Repo:          processing.Repo,
		Reason:        reason,
		FailureKind:   forge.KindPermanent,
	}
}
