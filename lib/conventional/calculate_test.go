// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package conventional

import (
	"testing"

	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/semver"
)

func infos(messages ...string) []forge.CommitInfo {
	result := make([]forge.CommitInfo, len(messages))
	for i, message := range messages {
		result[i] = forge.CommitInfo{SHA: "sha" + string(rune('a'+i)), Message: message}
	}
	return result
}

func TestCalculateFixAndFeat(t *testing.T) {
	result, err := Calculate(infos("fix: a", "feat: b"), "1.0.0")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Next.String() != "1.1.0" {
		t.Errorf("Next = %s, want 1.1.0", result.Next)
	}
	if result.Bump != semver.BumpMinor {
		t.Errorf("Bump = %v, want minor", result.Bump)
	}
}

func TestCalculateBreakingAlwaysMajor(t *testing.T) {
	commitSets := [][]forge.CommitInfo{
		infos("feat!: breaking feature"),
		infos("fix: a", "feat: b", "chore!: breaking chore"),
		infos("docs: d", "fix(core): x\n\nBREAKING CHANGE: contract changed"),
	}
	for i, set := range commitSets {
		result, err := Calculate(set, "1.2.3")
		if err != nil {
			t.Fatalf("set %d: %v", i, err)
		}
		if result.Bump != semver.BumpMajor {
			t.Errorf("set %d: Bump = %v, want major", i, result.Bump)
		}
		if result.Next.String() != "2.0.0" {
			t.Errorf("set %d: Next = %s, want 2.0.0", i, result.Next)
		}
	}
}

func TestCalculateNoQualifyingCommits(t *testing.T) {
	result, err := Calculate(infos("docs: readme", "chore: tidy", "not conventional at all"), "1.2.3")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.ReleaseNeeded() {
		t.Error("ReleaseNeeded() = true for non-qualifying commits")
	}
	if !result.Next.Equal(result.Current) {
		t.Errorf("Next = %s, want unchanged %s", result.Next, result.Current)
	}
	// All commits still categorized for changelog use.
	if len(result.Commits) != 3 {
		t.Errorf("len(Commits) = %d, want 3", len(result.Commits))
	}
}

func TestCalculateNoCurrentVersionBaseline(t *testing.T) {
	result, err := Calculate(infos("feat: first feature"), "")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Current.String() != "0.0.0" {
		t.Errorf("Current = %s, want 0.0.0", result.Current)
	}
	if result.Next.String() != "0.1.0" {
		t.Errorf("Next = %s, want 0.1.0", result.Next)
	}
}

func TestCalculateBadCurrentVersionFailsClosed(t *testing.T) {
	if _, err := Calculate(infos("feat: x"), "not-a-version"); err == nil {
		t.Fatal("expected error for unparseable current version")
	}
	if _, err := Calculate(infos("feat: x"), "v1.2.3"); err == nil {
		t.Fatal("expected error for prefixed current version")
	}
}

func TestCalculateRawCommitsNeverBump(t *testing.T) {
	result, err := Calculate(infos("totally freeform message", "another one"), "0.5.0")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Bump != semver.BumpNone {
		t.Errorf("Bump = %v, want none", result.Bump)
	}
	for _, c := range result.Commits {
		if c.Parsed {
			t.Errorf("commit %q unexpectedly parsed", c.Raw.Message)
		}
	}
}

func TestCalculatePatchOnly(t *testing.T) {
	result, err := Calculate(infos("fix: one", "fix(scope): two", "test: three"), "2.3.4")
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if result.Next.String() != "2.3.5" {
		t.Errorf("Next = %s, want 2.3.5", result.Next)
	}
	if result.Bump != semver.BumpPatch {
		t.Errorf("Bump = %v, want patch", result.Bump)
	}
}
