// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/capstan-release/capstan/lib/forge"
)

func TestWithConflictRetrySuccess(t *testing.T) {
	calls := 0
	err := WithConflictRetry(context.Background(), discardLogger(), "update pull request", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("WithConflictRetry: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithConflictRetryNonConflictImmediate(t *testing.T) {
	permanent := &forge.Error{Kind: forge.KindPermanent, Op: "update pull request", Message: "422"}
	calls := 0
	err := WithConflictRetry(context.Background(), discardLogger(), "update pull request", func(context.Context) error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Fatalf("err = %v, want the permanent error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestWithConflictRetryRecovers(t *testing.T) {
	conflict := &forge.Error{Kind: forge.KindConflict, Op: "update pull request", Message: "stale token"}
	calls := 0
	err := WithConflictRetry(context.Background(), discardLogger(), "update pull request", func(context.Context) error {
		calls++
		if calls < 3 {
			return conflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithConflictRetry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestWithConflictRetryExhaustion(t *testing.T) {
	conflict := &forge.Error{Kind: forge.KindConflict, Op: "update pull request", Message: "stale token"}
	calls := 0
	err := WithConflictRetry(context.Background(), discardLogger(), "update pull request", func(context.Context) error {
		calls++
		return conflict
	})
	if !errors.Is(err, conflict) {
		t.Fatalf("err = %v, want wrapped conflict", err)
	}
	// First attempt plus three conflict retries.
	if calls != 4 {
		t.Errorf("calls = %d, want 4", calls)
	}
	if !strings.Contains(err.Error(), "conflict persisted") {
		t.Errorf("err = %q, want a persisted-conflict message", err)
	}
}

func TestWithConflictRetryCancelledContext(t *testing.T) {
	conflict := &forge.Error{Kind: forge.KindConflict, Op: "update pull request", Message: "stale token"}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := WithConflictRetry(ctx, discardLogger(), "update pull request", func(context.Context) error {
		calls++
		cancel()
		return conflict
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}
