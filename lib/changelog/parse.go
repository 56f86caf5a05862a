// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package changelog

import (
	"regexp"
	"strings"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownParserInstance is initialized once and reused. The parser
// configuration never changes and the goldmark Parser is safe to
// share — actual parsing creates per-call state via Parse(reader).
var (
	markdownParserInstance goldmark.Markdown
	markdownParserOnce     sync.Once
)

func getMarkdownParser() goldmark.Markdown {
	markdownParserOnce.Do(func() {
		markdownParserInstance = goldmark.New()
	})
	return markdownParserInstance
}

// shaReference extracts the short commit SHA an entry line embeds as
// its identity key: a bracketed run of 7 to 40 hex characters at the
// end of the line.
var shaReference = regexp.MustCompile(`\[([0-9a-f]{7,40})\]\s*$`)

// sectionHeadingLevel is the heading level that marks a changelog
// section ("### Features"). Higher-level headings ("## Changelog")
// structure the surrounding body and are not section markers.
const sectionHeadingLevel = 3

// Parse reads the markdown form back into a Changelog. Section marker
// headers become sections; list items become entries with the SHA
// extracted from the trailing bracket reference. List items that
// appear before any marker header land in the unparsed bucket so
// nothing is discarded.
func Parse(source string) *Changelog {
	sourceBytes := []byte(source)
	document := getMarkdownParser().Parser().Parse(text.NewReader(sourceBytes))

	changelog := &Changelog{}
	sectionIndex := make(map[string]int)
	current := ""

	appendEntry := func(line string) {
		line = strings.TrimSpace(line)
		if line == "" {
			return
		}
		title := current
		if title == "" {
			title = OtherSectionTitle
		}
		index, exists := sectionIndex[title]
		if !exists {
			changelog.Sections = append(changelog.Sections, Section{Title: title})
			index = len(changelog.Sections) - 1
			sectionIndex[title] = index
		}
		entry := Entry{Section: title, Line: line}
		if match := shaReference.FindStringSubmatch(line); match != nil {
			entry.SHA = match[1]
		}
		changelog.Sections[index].Entries = append(changelog.Sections[index].Entries, entry)
	}

	ast.Walk(document, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch typed := node.(type) {
		case *ast.Heading:
			if typed.Level == sectionHeadingLevel {
				current = strings.TrimSpace(string(typed.Text(sourceBytes)))
			}
			return ast.WalkSkipChildren, nil
		case *ast.ListItem:
			appendEntry(listItemText(typed, sourceBytes))
			return ast.WalkSkipChildren, nil
		default:
			return ast.WalkContinue, nil
		}
	})

	return changelog
}

// listItemText reconstructs a list item's source text from its line
// segments. Raw source (not inline-rendered text) is used so emphasis
// markers and bracket references survive a render → parse round trip.
func listItemText(item *ast.ListItem, source []byte) string {
	var builder strings.Builder
	for child := item.FirstChild(); child != nil; child = child.NextSibling() {
		lines := child.Lines()
		for i := 0; i < lines.Len(); i++ {
			segment := lines.At(i)
			if builder.Len() > 0 {
				builder.WriteByte(' ')
			}
			builder.WriteString(strings.TrimSpace(string(segment.Value(source))))
		}
	}
	return builder.String()
}
