// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

// Package template renders the small ${variable} templates used for
// release pull request titles and bodies and for release names. The
// variable set is fixed; referencing an unknown variable is an error
// so that a typo in configuration surfaces at render time instead of
// silently publishing a literal "${versoin}".
package template
