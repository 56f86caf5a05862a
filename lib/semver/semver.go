// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package semver

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a semantic version. The zero value is "0.0.0", the
// baseline for repositories with no prior release.
type Version struct {
	Major      uint64
	Minor      uint64
	Patch      uint64
	Prerelease string // dot-separated identifiers, without the leading "-"
	Build      string // build metadata, without the leading "+"
}

// Bump is the kind of version increment derived from a commit set.
type Bump int

const (
	// BumpNone means no qualifying commit was found. Applying it
	// returns the version unchanged.
	BumpNone Bump = iota
	// BumpPatch increments the patch component.
	BumpPatch
	// BumpMinor increments the minor component and resets patch.
	BumpMinor
	// BumpMajor increments the major component and resets minor and
	// patch.
	BumpMajor
)

// String returns the bump kind as a lowercase word for logging and
// outcome rendering.
func (b Bump) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return "none"
	}
}

// String renders the version in canonical form:
// MAJOR.MINOR.PATCH[-prerelease][+build].
func (v Version) String() string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "%d.%d.%d", v.Major, v.Minor, v.Patch)
	if v.Prerelease != "" {
		builder.WriteByte('-')
		builder.WriteString(v.Prerelease)
	}
	if v.Build != "" {
		builder.WriteByte('+')
		builder.WriteString(v.Build)
	}
	return builder.String()
}

// IsPrerelease reports whether the version carries a prerelease
// identifier. Drives the prerelease flag on published releases.
func (v Version) IsPrerelease() bool { return v.Prerelease != "" }

// Bumped returns the version after applying a single increment at the
// given severity. Prerelease and build metadata are cleared: a bump
// always lands on a final version.
func (v Version) Bumped(bump Bump) Version {
	switch bump {
	case BumpMajor:
		return Version{Major: v.Major + 1}
	case BumpMinor:
		return Version{Major: v.Major, Minor: v.Minor + 1}
	case BumpPatch:
		return Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch + 1}
	default:
		return v
	}
}

// Compare returns -1, 0, or +1 as v sorts before, equal to, or after
// other. Ordering follows semver 2.0.0: major, minor, patch numeric
// comparison, then prerelease (a version without a prerelease is
// greater than the same core version with one; prerelease identifiers
// compare dot-wise, numeric before alphanumeric). Build metadata is
// ignored.
func (v Version) Compare(other Version) int {
	if c := compareUint(v.Major, other.Major); c != 0 {
		return c
	}
	if c := compareUint(v.Minor, other.Minor); c != 0 {
		return c
	}
	if c := compareUint(v.Patch, other.Patch); c != 0 {
		return c
	}
	return comparePrerelease(v.Prerelease, other.Prerelease)
}

// Less reports whether v sorts strictly before other.
func (v Version) Less(other Version) bool { return v.Compare(other) < 0 }

// Equal reports whether v and other are the same version, ignoring
// build metadata.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

func compareUint(a, b uint64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// comparePrerelease compares two prerelease strings. Empty means "no
// prerelease", which sorts after any prerelease.
func comparePrerelease(a, b string) int {
	if a == b {
		return 0
	}
	if a == "" {
		return 1
	}
	if b == "" {
		return -1
	}

	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")
	for i := 0; i < len(aParts) && i < len(bParts); i++ {
		if c := compareIdentifier(aParts[i], bParts[i]); c != 0 {
			return c
		}
	}
	// All shared identifiers equal: the shorter set sorts first.
	switch {
	case len(aParts) < len(bParts):
		return -1
	case len(aParts) > len(bParts):
		return 1
	default:
		return 0
	}
}

// compareIdentifier compares two prerelease identifiers. Numeric
// identifiers compare numerically and always sort before alphanumeric
// identifiers; alphanumeric identifiers compare lexically.
func compareIdentifier(a, b string) int {
	aNum, aIsNum := parseNumericIdentifier(a)
	bNum, bIsNum := parseNumericIdentifier(b)

	switch {
	case aIsNum && bIsNum:
		return compareUint(aNum, bNum)
	case aIsNum:
		return -1
	case bIsNum:
		return 1
	default:
		return strings.Compare(a, b)
	}
}

func parseNumericIdentifier(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}
