// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"testing"
	"time"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/forge"
)

func releaseMergeEvent(headRef, body string) Event {
	return Event{
		Action:         "closed",
		Merged:         true,
		BaseRef:        "main",
		HeadRef:        headRef,
		MergeCommitSHA: "deadbee0001",
		Number:         7,
		Title:          "chore(release): 1.2.0",
		Body:           body,
		Repo:           testRepo,
	}
}

func TestPublishCreatesTagAndRelease(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0"] = "relhead"
	engine, _ := newTestEngine(t, fake)

	body := "## Changelog\n\n### Features\n\n- add thing [abc0001]\n\n---\ninternal footer"
	outcome := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0", body))
	if outcome.Kind != OutcomeReleasePublished {
		t.Fatalf("outcome = %v, want release published", outcome)
	}
	if outcome.Version != "1.2.0" {
		t.Errorf("Version = %q", outcome.Version)
	}

	if sha := fake.tags["v1.2.0"]; sha != "deadbee0001" {
		t.Errorf("tag sha = %q, want the merge commit", sha)
	}
	if len(fake.releases) != 1 {
		t.Fatalf("releases = %d, want 1", len(fake.releases))
	}
	release := fake.releases[0]
	if release.TagName != "v1.2.0" || release.TargetSHA != "deadbee0001" {
		t.Errorf("release = %+v", release)
	}
	if release.Notes != "### Features\n\n- add thing [abc0001]" {
		t.Errorf("Notes = %q", release.Notes)
	}
	if release.Prerelease {
		t.Error("Prerelease = true for a final version")
	}
	if release.Name != "v1.2.0" {
		t.Errorf("Name = %q", release.Name)
	}

	if _, exists := fake.branches["release/v1.2.0"]; exists {
		t.Error("merged release branch was not cleaned up")
	}
}

func TestPublishPrereleaseFlag(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.3-beta.1"] = "relhead"
	engine, _ := newTestEngine(t, fake)

	outcome := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.3-beta.1", "notes"))
	if outcome.Kind != OutcomeReleasePublished {
		t.Fatalf("outcome = %v, want release published", outcome)
	}
	if len(fake.releases) != 1 || !fake.releases[0].Prerelease {
		t.Errorf("releases = %+v, want prerelease = true", fake.releases)
	}
}

func TestPublishRequiresMergeCommitSHA(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0"] = "relhead"
	engine, _ := newTestEngine(t, fake)

	event := releaseMergeEvent("release/v1.2.0", "notes")
	event.MergeCommitSHA = ""
	outcome := engine.Process(context.Background(), event)
	if outcome.Kind != OutcomeFailed || outcome.FailureKind != forge.KindPermanent {
		t.Fatalf("outcome = %v, want permanent failure", outcome)
	}
	if len(fake.tags) != 0 || len(fake.releases) != 0 {
		t.Error("mutations happened despite missing merge commit SHA")
	}
}

func TestPublishRedeliveryConverges(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0"] = "relhead"
	fake.tags["v1.2.0"] = "deadbee0001"
	fake.releases = []forge.NewRelease{{TagName: "v1.2.0", TargetSHA: "deadbee0001"}}
	engine, _ := newTestEngine(t, fake)

	outcome := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0", "notes"))
	if outcome.Kind != OutcomeSkipped || outcome.Reason != "already processed" {
		t.Fatalf("outcome = %v, want skipped (already processed)", outcome)
	}
	if len(fake.releases) != 1 {
		t.Errorf("releases = %d, want the original 1", len(fake.releases))
	}
}

func TestPublishResumesAfterReleaseCreationFailure(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0"] = "relhead"
	fake.failOnce("create release", &forge.Error{Kind: forge.KindPermanent, Op: "create release", StatusCode: 422, Message: "validation failed"})
	engine, _ := newTestEngine(t, fake)

	// First delivery tags the merge commit but cannot create the
	// release; the event stays redeliverable.
	first := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0", "notes"))
	if first.Kind != OutcomeFailed {
		t.Fatalf("first outcome = %v, want failed", first)
	}
	if sha := fake.tags["v1.2.0"]; sha != "deadbee0001" {
		t.Fatalf("tag sha = %q, want the merge commit", sha)
	}
	if len(fake.releases) != 0 {
		t.Fatalf("releases = %d after failed publish, want 0", len(fake.releases))
	}

	// The redelivery must pick up at release creation, not skip on
	// the existing tag.
	second := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0", "notes"))
	if second.Kind != OutcomeReleasePublished {
		t.Fatalf("second outcome = %v, want release published", second)
	}
	if len(fake.releases) != 1 {
		t.Errorf("releases = %d, want 1", len(fake.releases))
	}
	if fake.releases[0].TagName != "v1.2.0" || fake.releases[0].TargetSHA != "deadbee0001" {
		t.Errorf("release = %+v", fake.releases[0])
	}
}

func TestPublishExistingTagAtOtherCommitIsConflict(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0"] = "relhead"
	fake.tags["v1.2.0"] = "somethingelse"
	engine, _ := newTestEngine(t, fake)

	outcome := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0", "notes"))
	if outcome.Kind != OutcomeFailed || outcome.FailureKind != forge.KindConflict {
		t.Fatalf("outcome = %v, want conflict failure", outcome)
	}
	if len(fake.releases) != 0 {
		t.Error("a release was created despite the tag conflict")
	}
}

func TestPublishVersionFromFallbackBranch(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0.1756555000"] = "relhead"
	engine, _ := newTestEngine(t, fake)

	outcome := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0.1756555000", "notes"))
	if outcome.Kind != OutcomeReleasePublished {
		t.Fatalf("outcome = %v, want release published", outcome)
	}
	if outcome.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0", outcome.Version)
	}
	if _, exists := fake.tags["v1.2.0"]; !exists {
		t.Error("tag v1.2.0 was not created")
	}
}

func TestPublishBranchCleanupFailureIsNonFatal(t *testing.T) {
	fake := newFakeForge()
	fake.branches["release/v1.2.0"] = "relhead"
	fake.failAlways("delete branch", &forge.Error{Kind: forge.KindPermanent, Op: "delete branch", Message: "protected"})
	engine, _ := newTestEngine(t, fake)

	outcome := engine.Process(context.Background(), releaseMergeEvent("release/v1.2.0", "notes"))
	if outcome.Kind != OutcomeReleasePublished {
		t.Fatalf("outcome = %v, want release published despite cleanup failure", outcome)
	}
}

func TestTitleVersion(t *testing.T) {
	cases := []struct {
		title string
		want  string
		ok    bool
	}{
		{"chore(release): 1.2.0", "1.2.0", true},
		{"chore(release): v1.2.0", "1.2.0", true},
		{"release 2.0.0-beta.1", "2.0.0-beta.1", true},
		{"just words", "", false},
		{"", "", false},
	}
	for _, testCase := range cases {
		version, ok := titleVersion(testCase.title, "v")
		if ok != testCase.ok {
			t.Errorf("titleVersion(%q) ok = %v, want %v", testCase.title, ok, testCase.ok)
			continue
		}
		if ok && version.String() != testCase.want {
			t.Errorf("titleVersion(%q) = %q, want %q", testCase.title, version.String(), testCase.want)
		}
	}
}

func TestExtractNotesMarkerPriority(t *testing.T) {
	// The list order decides, not the position in the body.
	body := "preamble\n\n## Release Notes\n\nwrong section\n\n## Changelog\n\nright section"
	notes := extractNotes(body, []string{"## Changelog", "## Release Notes"})
	if notes != "right section" {
		t.Errorf("notes = %q, want the first marker in list order", notes)
	}
}

func TestExtractNotesBoundaries(t *testing.T) {
	body := "## Changelog\n\nthe notes\n\n---\nfooter"
	if notes := extractNotes(body, []string{"## Changelog"}); notes != "the notes" {
		t.Errorf("notes = %q", notes)
	}

	body = "## Changelog\n\nthe notes\n<!-- capstan:state -->"
	if notes := extractNotes(body, []string{"## Changelog"}); notes != "the notes" {
		t.Errorf("notes = %q", notes)
	}
}

func TestExtractNotesNoMarkerUsesWholeBody(t *testing.T) {
	if notes := extractNotes("  plain body  ", []string{"## Changelog"}); notes != "plain body" {
		t.Errorf("notes = %q", notes)
	}
}

func TestPublishVersionFromTitleFallback(t *testing.T) {
	fake := newFakeForge()
	publisher := NewPublisher(fake, clock.Fake(time.Unix(1000, 0)), discardLogger())

	// The branch carries no parseable version; the title does.
	event := releaseMergeEvent("hotfix-release", "notes")
	processing := Context{CorrelationID: "test", Repo: testRepo}

	outcome := publisher.Publish(context.Background(), processing, event, config.Default())
	if outcome.Kind != OutcomeReleasePublished {
		t.Fatalf("outcome = %v, want release published via title version", outcome)
	}
	if outcome.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0 from the title", outcome.Version)
	}
}
