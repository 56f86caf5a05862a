// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a version string in canonical semver form. It fails
// closed: any deviation from the grammar (missing components, leading
// zeros, empty or malformed identifiers, a "v" prefix) is an error.
// Callers that accept prefixed tags must strip the prefix first.
func Parse(input string) (Version, error) {
	if input == "" {
		return Version{}, fmt.Errorf("semver: empty version string")
	}

	rest := input
	var build string
	if index := strings.IndexByte(rest, '+'); index >= 0 {
		rest, build = rest[:index], rest[index+1:]
		if err := validateIdentifiers(build, false); err != nil {
			return Version{}, fmt.Errorf("semver: %q: build metadata: %w", input, err)
		}
	}

	var prerelease string
	if index := strings.IndexByte(rest, '-'); index >= 0 {
		rest, prerelease = rest[:index], rest[index+1:]
		if err := validateIdentifiers(prerelease, true); err != nil {
			return Version{}, fmt.Errorf("semver: %q: prerelease: %w", input, err)
		}
	}

	parts := strings.Split(rest, ".")
	if len(parts) != 3 {
		return Version{}, fmt.Errorf("semver: %q: expected MAJOR.MINOR.PATCH", input)
	}

	major, err := parseComponent(parts[0])
	if err != nil {
		return Version{}, fmt.Errorf("semver: %q: major: %w", input, err)
	}
	minor, err := parseComponent(parts[1])
	if err != nil {
		return Version{}, fmt.Errorf("semver: %q: minor: %w", input, err)
	}
	patch, err := parseComponent(parts[2])
	if err != nil {
		return Version{}, fmt.Errorf("semver: %q: patch: %w", input, err)
	}

	return Version{
		Major:      major,
		Minor:      minor,
		Patch:      patch,
		Prerelease: prerelease,
		Build:      build,
	}, nil
}

// parseComponent parses a numeric version component. Leading zeros
// are rejected per the semver grammar.
func parseComponent(s string) (uint64, error) {
	if s == "" {
		return 0, fmt.Errorf("empty component")
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("leading zero in %q", s)
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("non-digit in %q", s)
		}
	}
	return strconv.ParseUint(s, 10, 64)
}

// validateIdentifiers checks a dot-separated identifier sequence.
// Identifiers must be nonempty and drawn from [0-9A-Za-z-]. When
// numericNoLeadingZeros is set (prerelease position), purely numeric
// identifiers must not have leading zeros.
func validateIdentifiers(s string, numericNoLeadingZeros bool) error {
	if s == "" {
		return fmt.Errorf("empty identifier sequence")
	}
	for _, identifier := range strings.Split(s, ".") {
		if identifier == "" {
			return fmt.Errorf("empty identifier")
		}
		numeric := true
		for _, r := range identifier {
			switch {
			case r >= '0' && r <= '9':
			case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || r == '-':
				numeric = false
			default:
				return fmt.Errorf("invalid character %q in identifier %q", r, identifier)
			}
		}
		if numericNoLeadingZeros && numeric && len(identifier) > 1 && identifier[0] == '0' {
			return fmt.Errorf("leading zero in numeric identifier %q", identifier)
		}
	}
	return nil
}
