// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"errors"
	"fmt"
	"io"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"transient", &Error{Kind: KindTransient, Op: "list commits"}, KindTransient},
		{"conflict", &Error{Kind: KindConflict, Op: "create tag"}, KindConflict},
		{"permanent", &Error{Kind: KindPermanent, Op: "create release"}, KindPermanent},
		{"not found", &Error{Kind: KindNotFound, Op: "get tag"}, KindNotFound},
		{"wrapped", fmt.Errorf("outer: %w", &Error{Kind: KindConflict, Op: "update PR"}), KindConflict},
		{"raw transport error", io.ErrUnexpectedEOF, KindTransient},
	}
	for _, test := range tests {
		if got := Classify(test.err); got != test.want {
			t.Errorf("%s: Classify() = %v, want %v", test.name, got, test.want)
		}
	}
}

func TestHelpers(t *testing.T) {
	notFound := &Error{Kind: KindNotFound, Op: "get tag", Message: "no such tag"}
	if !IsNotFound(notFound) {
		t.Error("IsNotFound should match a not-found error")
	}
	if IsConflict(notFound) || IsPermanent(notFound) {
		t.Error("not-found error misclassified")
	}

	conflict := &Error{Kind: KindConflict, Op: "create branch", StatusCode: 422}
	if !IsConflict(conflict) {
		t.Error("IsConflict should match a conflict error")
	}

	if !IsTransient(errors.New("connection reset")) {
		t.Error("non-forge errors should classify as transient")
	}
}

func TestErrorString(t *testing.T) {
	err := &Error{Kind: KindConflict, Op: "create tag", Message: "Reference already exists", StatusCode: 422}
	want := "forge: create tag: HTTP 422: Reference already exists"
	if got := err.Error(); got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	wrapped := &Error{Kind: KindTransient, Op: "list commits", Err: io.ErrUnexpectedEOF}
	if got := wrapped.Error(); got != "forge: list commits: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(wrapped, io.ErrUnexpectedEOF) {
		t.Error("Unwrap should expose the underlying cause")
	}
}
