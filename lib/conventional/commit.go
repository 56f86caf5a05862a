// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package conventional

import (
	"regexp"
	"strings"

	"github.com/capstan-release/capstan/lib/forge"
)

// Commit is a commit with its conventional-commit interpretation.
// When Parsed is false only Raw is meaningful: the message did not
// conform to the grammar and the commit carries no type, scope, or
// breaking information.
type Commit struct {
	// Raw is the commit as fetched from the platform.
	Raw forge.CommitInfo

	// Parsed reports whether the message conformed to the
	// conventional-commit grammar.
	Parsed bool

	// Type is the commit type ("feat", "fix", "chore", ...).
	Type string

	// Scope is the optional parenthesized scope.
	Scope string

	// Description is the text after the colon on the subject line.
	Description string

	// Breaking is set when the type carries a "!" suffix or the body
	// contains a breaking-change footer.
	Breaking bool

	// BreakingNote is the footer text after "BREAKING CHANGE:", when
	// present.
	BreakingNote string
}

// subjectPattern matches the conventional-commit subject line:
// type(scope)!: description. The type is alphabetic; the scope is any
// non-empty text without a closing parenthesis.
var subjectPattern = regexp.MustCompile(`^([A-Za-z]+)(?:\(([^)]+)\))?(!)?: +(.+)$`)

// breakingFooterPrefixes are the footer markers that flag a breaking
// change regardless of the type suffix.
var breakingFooterPrefixes = []string{"BREAKING CHANGE:", "BREAKING-CHANGE:"}

// ParseCommit interprets a single commit message. A message that does
// not conform to the grammar yields a Commit with Parsed=false; this
// is not an error.
func ParseCommit(info forge.CommitInfo) Commit {
	subject, body, _ := strings.Cut(info.Message, "\n")
	subject = strings.TrimRight(subject, "\r")

	match := subjectPattern.FindStringSubmatch(subject)
	if match == nil {
		return Commit{Raw: info}
	}

	commit := Commit{
		Raw:         info,
		Parsed:      true,
		Type:        strings.ToLower(match[1]),
		Scope:       match[2],
		Description: match[4],
		Breaking:    match[3] == "!",
	}

	if note, found := breakingFooter(body); found {
		commit.Breaking = true
		commit.BreakingNote = note
	}

	return commit
}

// ParseCommits interprets a commit list, preserving order.
func ParseCommits(infos []forge.CommitInfo) []Commit {
	commits := make([]Commit, len(infos))
	for i, info := range infos {
		commits[i] = ParseCommit(info)
	}
	return commits
}

// breakingFooter scans a commit body for a breaking-change footer and
// returns its text. The footer's note runs from just past the marker
// to the end of the paragraph.
func breakingFooter(body string) (string, bool) {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimRight(line, "\r")
		for _, prefix := range breakingFooterPrefixes {
			if strings.HasPrefix(line, prefix) {
				return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
			}
		}
	}
	return "", false
}
