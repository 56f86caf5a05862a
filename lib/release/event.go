// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"time"

	"github.com/capstan-release/capstan/lib/forge"
)

// Event is an inbound pull request event, already parsed and
// signature-verified by the transport layer.
type Event struct {
	// Action is the platform's event action ("closed" for merges).
	Action string `json:"action"`

	// Merged reports whether the pull request was merged rather
	// than closed without merging.
	Merged bool `json:"merged"`

	// BaseRef is the branch the pull request targets.
	BaseRef string `json:"base_ref"`

	// HeadRef is the pull request's head branch.
	HeadRef string `json:"head_ref"`

	// MergeCommitSHA is the merge commit, when merged. The
	// publisher refuses to tag without it.
	MergeCommitSHA string `json:"merge_commit_sha"`

	// Number is the pull request number.
	Number int `json:"number"`

	// Title and Body are the pull request's text at merge time.
	Title string `json:"title"`
	Body  string `json:"body"`

	// Repo identifies the repository.
	Repo forge.RepoName `json:"repo"`
}

// Context carries per-event tracing state through every call. It has
// no behavior of its own.
type Context struct {
	// CorrelationID identifies one logical event across retries,
	// log lines, and the returned outcome. Redeliveries of the same
	// event share it.
	CorrelationID string

	// Repo is the repository the event belongs to.
	Repo forge.RepoName

	// ReceivedAt is when the engine accepted the event.
	ReceivedAt time.Time
}
