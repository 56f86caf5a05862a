// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRetrySucceedsFirstAttempt(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	calls := 0
	err := Retry(context.Background(), fakeClock, discardLogger(), DefaultRetryPolicy(), "test", func(context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if fakeClock.PendingCount() != 0 {
		t.Errorf("pending waiters = %d, want 0", fakeClock.PendingCount())
	}
}

func TestRetryPermanentErrorNotRetried(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	permanent := &forge.Error{Kind: forge.KindPermanent, Op: "create tag", Message: "invalid name"}
	calls := 0
	err := Retry(context.Background(), fakeClock, discardLogger(), DefaultRetryPolicy(), "test", func(context.Context) error {
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

func TestRetryConflictNotRetried(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	conflict := &forge.Error{Kind: forge.KindConflict, Op: "update pull request", Message: "stale token"}
	calls := 0
	err := Retry(context.Background(), fakeClock, discardLogger(), DefaultRetryPolicy(), "test", func(context.Context) error {
		calls++
		return conflict
	})
	if !errors.Is(err, conflict) {
		t.Fatalf("err = %v, want the conflict error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestRetryTransientUntilSuccess(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	transient := &forge.Error{Kind: forge.KindTransient, Op: "list commits", StatusCode: 503, Message: "unavailable"}

	calls := 0
	result := make(chan error, 1)
	go func() {
		result <- Retry(context.Background(), fakeClock, discardLogger(), DefaultRetryPolicy(), "test", func(context.Context) error {
			calls++
			if calls < 3 {
				return transient
			}
			return nil
		})
	}()

	// Two backoff waits: release each as it registers. Advancing past
	// the jitter ceiling guarantees the waiter fires.
	for i := 0; i < 2; i++ {
		fakeClock.WaitForWaiters(1)
		fakeClock.Advance(time.Minute)
	}

	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Retry to return")
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

func TestRetryExhaustionReturnsLastError(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	transient := &forge.Error{Kind: forge.KindTransient, Op: "get branch", StatusCode: 502, Message: "bad gateway"}
	policy := DefaultRetryPolicy()

	calls := 0
	result := make(chan error, 1)
	go func() {
		result <- Retry(context.Background(), fakeClock, discardLogger(), policy, "test", func(context.Context) error {
			calls++
			return transient
		})
	}()

	for i := 0; i < policy.MaxAttempts-1; i++ {
		fakeClock.WaitForWaiters(1)
		fakeClock.Advance(time.Minute)
	}

	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Retry to return")
	if !errors.Is(err, transient) {
		t.Fatalf("err = %v, want the transient error", err)
	}
	if calls != policy.MaxAttempts {
		t.Errorf("calls = %d, want %d", calls, policy.MaxAttempts)
	}
}

func TestRetryContextCancelDuringBackoff(t *testing.T) {
	fakeClock := clock.Fake(time.Unix(1000, 0))
	transient := &forge.Error{Kind: forge.KindTransient, Op: "get tag", StatusCode: 500, Message: "boom"}
	ctx, cancel := context.WithCancel(context.Background())

	result := make(chan error, 1)
	go func() {
		result <- Retry(ctx, fakeClock, discardLogger(), DefaultRetryPolicy(), "test", func(context.Context) error {
			return transient
		})
	}()

	fakeClock.WaitForWaiters(1)
	cancel()

	err := testutil.RequireReceive(t, result, 5*time.Second, "waiting for Retry to return")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestRetryDelayGrowthAndCap(t *testing.T) {
	policy := DefaultRetryPolicy()
	policy.JitterFraction = 0

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		1600 * time.Millisecond,
	}
	for i, expected := range want {
		if got := policy.delay(i); got != expected {
			t.Errorf("delay(%d) = %v, want %v", i, got, expected)
		}
	}

	// Far enough out the doubling hits the cap.
	if got := policy.delay(20); got != policy.MaxDelay {
		t.Errorf("delay(20) = %v, want cap %v", got, policy.MaxDelay)
	}
}

func TestRetryDelayJitterBounds(t *testing.T) {
	policy := DefaultRetryPolicy()
	low := time.Duration(float64(policy.BaseDelay) * (1 - policy.JitterFraction))
	high := time.Duration(float64(policy.BaseDelay) * (1 + policy.JitterFraction))
	for i := 0; i < 1000; i++ {
		d := policy.delay(0)
		if d < low || d > high {
			t.Fatalf("delay(0) = %v, want within [%v, %v]", d, low, high)
		}
	}
}

func TestRetryJitterAppliesAfterCap(t *testing.T) {
	policy := DefaultRetryPolicy()
	high := time.Duration(float64(policy.MaxDelay) * (1 + policy.JitterFraction))
	low := time.Duration(float64(policy.MaxDelay) * (1 - policy.JitterFraction))
	for i := 0; i < 100; i++ {
		d := policy.delay(30)
		if d < low || d > high {
			t.Fatalf("capped delay = %v, want within [%v, %v]", d, low, high)
		}
	}
}
