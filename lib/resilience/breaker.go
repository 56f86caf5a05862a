// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/capstan-release/capstan/lib/clock"
)

// ErrCircuitOpen is returned by Breaker.Allow while the circuit is
// open and the cooldown has not elapsed. Callers fail fast instead of
// issuing a doomed platform call.
var ErrCircuitOpen = errors.New("resilience: circuit open")

// BreakerState is the circuit breaker's explicit state machine.
type BreakerState int

const (
	// BreakerClosed is normal operation: calls flow through.
	BreakerClosed BreakerState = iota
	// BreakerOpen fails fast until the cooldown elapses.
	BreakerOpen
	// BreakerHalfOpen lets a single probe through; its result
	// decides between closing and reopening.
	BreakerHalfOpen
)

func (s BreakerState) String() string {
	switch s {
	case BreakerOpen:
		return "open"
	case BreakerHalfOpen:
		return "half_open"
	default:
		return "closed"
	}
}

// Breaker is a consecutive-failure circuit breaker. Closed until
// FailureThreshold consecutive failures; open for Cooldown; then
// half-open, admitting one probe whose outcome closes or reopens the
// circuit.
//
// Safe for concurrent use.
type Breaker struct {
	mu sync.Mutex

	state               BreakerState
	consecutiveFailures int
	openedAt            time.Time
	probing             bool

	threshold int
	cooldown  time.Duration
	clock     clock.Clock
	logger    *slog.Logger
}

// NewBreaker creates a closed breaker. threshold must be positive;
// cooldown must be positive.
func NewBreaker(threshold int, cooldown time.Duration, clk clock.Clock, logger *slog.Logger) (*Breaker, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("resilience: breaker threshold must be positive (got %d)", threshold)
	}
	if cooldown <= 0 {
		return nil, fmt.Errorf("resilience: breaker cooldown must be positive (got %v)", cooldown)
	}
	return &Breaker{
		threshold: threshold,
		cooldown:  cooldown,
		clock:     clk,
		logger:    logger,
	}, nil
}

// State returns the current state, accounting for cooldown expiry
// (an open breaker whose cooldown has elapsed reports half-open).
func (b *Breaker) State() BreakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == BreakerOpen && b.clock.Now().Sub(b.openedAt) >= b.cooldown {
		return BreakerHalfOpen
	}
	return b.state
}

// Allow reports whether a call may proceed. While open it returns
// ErrCircuitOpen; once the cooldown elapses it transitions to
// half-open and admits exactly one probe (concurrent callers keep
// failing fast until the probe resolves).
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case BreakerClosed:
		return nil
	case BreakerOpen:
		if b.clock.Now().Sub(b.openedAt) < b.cooldown {
			return ErrCircuitOpen
		}
		b.state = BreakerHalfOpen
		b.probing = true
		b.logger.Info("circuit half-open, probing")
		return nil
	default: // BreakerHalfOpen
		if b.probing {
			return ErrCircuitOpen
		}
		b.probing = true
		return nil
	}
}

// RecordSuccess reports a successful call. In half-open state it
// closes the circuit; in closed state it resets the consecutive
// failure count.
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.logger.Info("circuit closed after successful probe")
	}
	b.state = BreakerClosed
	b.consecutiveFailures = 0
	b.probing = false
}

// RecordFailure reports a failed call. In half-open state the failed
// probe reopens the circuit for a fresh cooldown; in closed state it
// increments the consecutive failure count and opens the circuit at
// the threshold.
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == BreakerHalfOpen {
		b.state = BreakerOpen
		b.openedAt = b.clock.Now()
		b.probing = false
		b.logger.Warn("circuit reopened after failed probe", "cooldown", b.cooldown)
		return
	}

	b.consecutiveFailures++
	if b.state == BreakerClosed && b.consecutiveFailures >= b.threshold {
		b.state = BreakerOpen
		b.openedAt = b.clock.Now()
		b.logger.Warn("circuit opened",
			"consecutive_failures", b.consecutiveFailures,
			"cooldown", b.cooldown,
		)
	}
}
