// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"log/slog"
	"math/rand"
	"time"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/forge"
)

// RetryPolicy bounds retries of transient failures. Only errors that
// classify as transient (network failures, 5xx, rate limits) are
// retried; conflicts and permanent failures surface immediately.
type RetryPolicy struct {
	// BaseDelay is the backoff before the first retry.
	BaseDelay time.Duration

	// Multiplier grows the delay after each attempt.
	Multiplier float64

	// MaxDelay caps the grown delay before jitter.
	MaxDelay time.Duration

	// JitterFraction spreads each delay by ±fraction to decorrelate
	// retries across concurrently processing instances.
	JitterFraction float64

	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int
}

// DefaultRetryPolicy is the standard transient-failure policy:
// 100 ms base, doubling, capped at 30 s, ±25% jitter, 5 attempts.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		BaseDelay:      100 * time.Millisecond,
		Multiplier:     2,
		MaxDelay:       30 * time.Second,
		JitterFraction: 0.25,
		MaxAttempts:    5,
	}
}

// delay returns the jittered backoff before retry number retryIndex
// (0 for the first retry).
func (p RetryPolicy) delay(retryIndex int) time.Duration {
	backoff := float64(p.BaseDelay)
	for i := 0; i < retryIndex; i++ {
		backoff *= p.Multiplier
		if backoff >= float64(p.MaxDelay) {
			backoff = float64(p.MaxDelay)
			break
		}
	}
	if p.JitterFraction > 0 {
		spread := 1 + p.JitterFraction*(2*rand.Float64()-1)
		backoff *= spread
	}
	return time.Duration(backoff)
}

// Retry runs fn with bounded retry on transient errors. Non-transient
// errors are returned immediately. The context bounds the total retry
// time: a cancelled context stops the backoff wait and returns the
// context's error.
func Retry(ctx context.Context, clk clock.Clock, logger *slog.Logger, policy RetryPolicy, operation string, fn func(context.Context) error) error {
	var lastError error
	for attempt := 0; attempt < policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-clk.After(policy.delay(attempt - 1)):
			}
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastError = err

		if !forge.IsTransient(err) {
			return err
		}
		if ctx.Err() != nil {
			return err
		}

		logger.Warn("transient failure, retrying",
			"operation", operation,
			"attempt", attempt+1,
			"max_attempts", policy.MaxAttempts,
			"error", err,
		)
	}
	return lastError
}
