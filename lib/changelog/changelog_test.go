// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package changelog

import (
	"fmt"
	"strings"
	"testing"

	"github.com/capstan-release/capstan/lib/conventional"
	"github.com/capstan-release/capstan/lib/forge"
)

func parsedCommits(t *testing.T, messages ...string) []conventional.Commit {
	t.Helper()
	infos := make([]forge.CommitInfo, len(messages))
	for i, message := range messages {
		// Synthetic SHAs distinct within their first 7 characters.
		infos[i] = forge.CommitInfo{SHA: fmt.Sprintf("abc%04dffff", i), Message: message}
	}
	return conventional.ParseCommits(infos)
}

func TestFromCommitsSectionOrder(t *testing.T) {
	commits := parsedCommits(t,
		"chore: tidy",
		"fix: resolve race",
		"feat: add publisher",
		"not conventional",
	)
	changelog := FromCommits(commits)

	var titles []string
	for _, section := range changelog.Sections {
		titles = append(titles, section.Title)
	}
	want := []string{"Features", "Bug Fixes", "Chores", OtherSectionTitle}
	if strings.Join(titles, ",") != strings.Join(want, ",") {
		t.Errorf("section order = %v, want %v", titles, want)
	}
}

func TestFromCommitsLineFormat(t *testing.T) {
	commits := parsedCommits(t, "feat(engine)!: rework reconciler")
	changelog := FromCommits(commits)

	line := changelog.Sections[0].Entries[0].Line
	want := "**BREAKING**: **engine**: rework reconciler [abc0000]"
	if line != want {
		t.Errorf("line = %q, want %q", line, want)
	}
}

func TestFromCommitsUnknownTypeGetsOwnSection(t *testing.T) {
	commits := parsedCommits(t, "deps: bump yaml")
	changelog := FromCommits(commits)
	if len(changelog.Sections) != 1 || changelog.Sections[0].Title != "Deps" {
		t.Errorf("sections = %+v, want single Deps section", changelog.Sections)
	}
}

func TestRenderEmpty(t *testing.T) {
	empty := &Changelog{}
	if got := empty.Render(); got != "No changes in this release." {
		t.Errorf("Render() = %q", got)
	}
}

func TestRenderParseRoundTrip(t *testing.T) {
	commits := parsedCommits(t,
		"feat: add retry",
		"fix(api): stale token",
		"freeform message",
	)
	original := FromCommits(commits)
	parsed := Parse(original.Render())

	if parsed.EntryCount() != original.EntryCount() {
		t.Fatalf("round trip entry count = %d, want %d", parsed.EntryCount(), original.EntryCount())
	}
	for i, section := range original.Sections {
		if parsed.Sections[i].Title != section.Title {
			t.Errorf("section %d title = %q, want %q", i, parsed.Sections[i].Title, section.Title)
		}
		for j, entry := range section.Entries {
			got := parsed.Sections[i].Entries[j]
			if got.Line != entry.Line {
				t.Errorf("entry line = %q, want %q", got.Line, entry.Line)
			}
			if got.SHA != entry.SHA {
				t.Errorf("entry SHA = %q, want %q", got.SHA, entry.SHA)
			}
		}
	}
}

func TestMergeDeduplicatesBySHA(t *testing.T) {
	first := FromCommits(parsedCommits(t, "feat: add retry", "fix: clean up"))
	second := FromCommits(parsedCommits(t, "feat: add retry", "fix: clean up"))

	merged := first.Merge(second)
	if merged.EntryCount() != first.EntryCount() {
		t.Errorf("merge with duplicate set: %d entries, want %d", merged.EntryCount(), first.EntryCount())
	}
}

func TestMergeIdempotent(t *testing.T) {
	base := FromCommits(parsedCommits(t, "feat: one", "fix: two"))
	incoming := FromCommits(parsedCommits(t, "feat: three"))

	once := base.Merge(incoming)
	twice := once.Merge(incoming)

	if once.Render() != twice.Render() {
		t.Errorf("merge not idempotent:\nonce:\n%s\ntwice:\n%s", once.Render(), twice.Render())
	}
}

func TestMergeKeepsFirstOccurrence(t *testing.T) {
	existing := Parse("### Features\n\n- original wording [abcd0000]\n")
	incoming := Parse("### Features\n\n- rewritten wording [abcd0000]\n")

	merged := existing.Merge(incoming)
	if merged.EntryCount() != 1 {
		t.Fatalf("EntryCount = %d, want 1", merged.EntryCount())
	}
	if got := merged.Sections[0].Entries[0].Line; got != "original wording [abcd0000]" {
		t.Errorf("kept line = %q, want the first occurrence", got)
	}
}

func TestMergeAppendsNewSectionsAfterExisting(t *testing.T) {
	existing := Parse("### Bug Fixes\n\n- a fix [abcd0001]\n")
	incoming := FromCommits(parsedCommits(t, "feat: new thing"))

	merged := existing.Merge(incoming)
	if len(merged.Sections) != 2 {
		t.Fatalf("sections = %d, want 2", len(merged.Sections))
	}
	if merged.Sections[0].Title != "Bug Fixes" || merged.Sections[1].Title != "Features" {
		t.Errorf("section order = %q, %q", merged.Sections[0].Title, merged.Sections[1].Title)
	}
}

func TestParseEntriesBeforeAnyHeader(t *testing.T) {
	parsed := Parse("- stray entry [abcd0002]\n\n### Features\n\n- real entry [abcd0003]\n")
	if parsed.EntryCount() != 2 {
		t.Fatalf("EntryCount = %d, want 2", parsed.EntryCount())
	}
	if parsed.Sections[0].Title != OtherSectionTitle {
		t.Errorf("stray entries should land in %q, got %q", OtherSectionTitle, parsed.Sections[0].Title)
	}
}

func TestParseIgnoresHigherLevelHeadings(t *testing.T) {
	body := "## Changelog\n\n### Features\n\n- entry [abcd0004]\n"
	parsed := Parse(body)
	if len(parsed.Sections) != 1 || parsed.Sections[0].Title != "Features" {
		t.Errorf("sections = %+v", parsed.Sections)
	}
}

func TestParseEntryWithoutSHAFallsBackToLineIdentity(t *testing.T) {
	existing := Parse("### Features\n\n- handwritten note\n")
	merged := existing.Merge(Parse("### Features\n\n- handwritten note\n"))
	if merged.EntryCount() != 1 {
		t.Errorf("line-identity dedup failed: %d entries", merged.EntryCount())
	}
}
