// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package template

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Values holds the substitutions available to release templates.
type Values struct {
	// Version is the bare semantic version ("1.2.0").
	Version string

	// VersionTag is the version with the configured tag prefix
	// ("v1.2.0").
	VersionTag string

	// Changelog is the rendered changelog markdown.
	Changelog string

	// CommitCount is the number of commits in the release.
	CommitCount int

	// Date is the render time; substituted as YYYY-MM-DD.
	Date time.Time
}

// variablePattern matches ${name} references. Dollar signs not
// followed by a brace are literal text.
var variablePattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// Render substitutes ${variable} references in template from values.
// The supported variables are version, version_tag, changelog,
// commit_count, and date. An unknown variable name is an error.
func Render(template string, values Values) (string, error) {
	var unknown string
	rendered := variablePattern.ReplaceAllStringFunc(template, func(match string) string {
		name := match[2 : len(match)-1]
		switch name {
		case "version":
			return values.Version
		case "version_tag":
			return values.VersionTag
		case "changelog":
			return values.Changelog
		case "commit_count":
			return strconv.Itoa(values.CommitCount)
		case "date":
			return values.Date.Format("2006-01-02")
		default:
			if unknown == "" {
				unknown = name
			}
			return match
		}
	})
	if unknown != "" {
		return "", fmt.Errorf("template: unknown variable %q", unknown)
	}
	return rendered, nil
}

// Validate checks that every variable reference in template is known,
// without needing values. Used at configuration load time.
func Validate(template string) error {
	_, err := Render(template, Values{})
	return err
}
