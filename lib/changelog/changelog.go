// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package changelog

import (
	"fmt"
	"strings"

	"github.com/capstan-release/capstan/lib/conventional"
)

// OtherSectionTitle is the bucket for commits that did not parse as
// conventional commits. They are never discarded.
const OtherSectionTitle = "Other Changes"

// sectionOrder maps conventional commit types to section titles, in
// render order. Types not listed render under a capitalized form of
// the type; unparsed commits render under OtherSectionTitle, always
// last.
var sectionOrder = []struct {
	Type  string
	Title string
}{
	{"feat", "Features"},
	{"fix", "Bug Fixes"},
	{"perf", "Performance Improvements"},
	{"revert", "Reverts"},
	{"docs", "Documentation"},
	{"style", "Styles"},
	{"refactor", "Code Refactoring"},
	{"test", "Tests"},
	{"build", "Build System"},
	{"ci", "Continuous Integration"},
	{"chore", "Chores"},
}

// Entry is one changelog line. SHA is the identity key for merge
// deduplication, normalized to the short (7-character) form embedded
// in the rendered line; it is empty only for entries parsed from
// bodies that carry no recognizable commit reference, which fall back
// to the line text as identity.
type Entry struct {
	SHA     string
	Section string
	Line    string
}

// identity returns the merge deduplication key.
func (e Entry) identity() string {
	if e.SHA != "" {
		return shortSHA(e.SHA)
	}
	return e.Line
}

// Section is an ordered group of entries under one marker header.
type Section struct {
	Title   string
	Entries []Entry
}

// Changelog is an ordered list of sections.
type Changelog struct {
	Sections []Section
}

// IsEmpty reports whether the changelog has no entries.
func (c *Changelog) IsEmpty() bool {
	for _, section := range c.Sections {
		if len(section.Entries) > 0 {
			return false
		}
	}
	return true
}

// EntryCount returns the total number of entries across sections.
func (c *Changelog) EntryCount() int {
	count := 0
	for _, section := range c.Sections {
		count += len(section.Entries)
	}
	return count
}

// FromCommits categorizes a commit set into a changelog. Sections
// appear in canonical order, then unknown types in first-appearance
// order, then the unparsed bucket. Entries within a section keep the
// input (chronological) order.
func FromCommits(commits []conventional.Commit) *Changelog {
	byTitle := make(map[string][]Entry)
	var unknownTitles []string

	for _, commit := range commits {
		title := sectionTitle(commit)
		if _, known := byTitle[title]; !known && !isCanonicalTitle(title) && title != OtherSectionTitle {
			unknownTitles = append(unknownTitles, title)
		}
		byTitle[title] = append(byTitle[title], Entry{
			SHA:     shortSHA(commit.Raw.SHA),
			Section: title,
			Line:    formatLine(commit),
		})
	}

	var changelog Changelog
	appendSection := func(title string) {
		if entries := byTitle[title]; len(entries) > 0 {
			changelog.Sections = append(changelog.Sections, Section{Title: title, Entries: entries})
			delete(byTitle, title)
		}
	}

	for _, section := range sectionOrder {
		appendSection(section.Title)
	}
	for _, title := range unknownTitles {
		appendSection(title)
	}
	appendSection(OtherSectionTitle)

	return &changelog
}

// Render produces the markdown form: each section as a "### Title"
// marker header followed by its entry lines.
func (c *Changelog) Render() string {
	if c.IsEmpty() {
		return "No changes in this release."
	}

	var builder strings.Builder
	for _, section := range c.Sections {
		if len(section.Entries) == 0 {
			continue
		}
		fmt.Fprintf(&builder, "### %s\n\n", section.Title)
		for _, entry := range section.Entries {
			builder.WriteString("- ")
			builder.WriteString(entry.Line)
			builder.WriteByte('\n')
		}
		builder.WriteByte('\n')
	}
	return strings.TrimRight(builder.String(), "\n")
}

// Merge combines c with incoming: incoming entries are appended to
// their sections, new sections are appended after existing ones, and
// duplicate entries (same commit SHA) keep their first occurrence.
// Section and chronological order are preserved. Returns a new
// changelog; neither input is modified.
func (c *Changelog) Merge(incoming *Changelog) *Changelog {
	merged := &Changelog{}
	seen := make(map[string]bool)
	sectionIndex := make(map[string]int)

	appendEntries := func(title string, entries []Entry) {
		index, exists := sectionIndex[title]
		if !exists {
			merged.Sections = append(merged.Sections, Section{Title: title})
			index = len(merged.Sections) - 1
			sectionIndex[title] = index
		}
		for _, entry := range entries {
			if seen[entry.identity()] {
				continue
			}
			seen[entry.identity()] = true
			entry.Section = title
			merged.Sections[index].Entries = append(merged.Sections[index].Entries, entry)
		}
	}

	for _, section := range c.Sections {
		appendEntries(section.Title, section.Entries)
	}
	for _, section := range incoming.Sections {
		appendEntries(section.Title, section.Entries)
	}

	// Drop sections that ended up empty (all duplicates).
	compacted := merged.Sections[:0]
	for _, section := range merged.Sections {
		if len(section.Entries) > 0 {
			compacted = append(compacted, section)
		}
	}
	merged.Sections = compacted
	return merged
}

// sectionTitle maps a commit to its section title.
func sectionTitle(commit conventional.Commit) string {
	if !commit.Parsed {
		return OtherSectionTitle
	}
	for _, section := range sectionOrder {
		if section.Type == commit.Type {
			return section.Title
		}
	}
	return capitalize(commit.Type)
}

func isCanonicalTitle(title string) bool {
	for _, section := range sectionOrder {
		if section.Title == title {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// formatLine renders one commit as a changelog line (without the
// leading "- "): optional breaking marker, optional bold scope, the
// description, and the short SHA in brackets as the identity key.
func formatLine(commit conventional.Commit) string {
	var builder strings.Builder
	if commit.Breaking {
		builder.WriteString("**BREAKING**: ")
	}
	if commit.Scope != "" {
		fmt.Fprintf(&builder, "**%s**: ", commit.Scope)
	}
	if commit.Parsed {
		builder.WriteString(commit.Description)
	} else {
		builder.WriteString(firstLine(commit.Raw.Message))
	}
	fmt.Fprintf(&builder, " [%s]", shortSHA(commit.Raw.SHA))
	return builder.String()
}

func firstLine(message string) string {
	line, _, _ := strings.Cut(message, "\n")
	return strings.TrimRight(line, "\r")
}

func shortSHA(sha string) string {
	if len(sha) > 7 {
		return sha[:7]
	}
	return sha
}
