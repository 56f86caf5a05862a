// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
	"log/slog"
	"sync"

	"github.com/capstan-release/capstan/lib/clock"
	"github.com/capstan-release/capstan/lib/codec"
	"github.com/capstan-release/capstan/lib/config"
	"github.com/capstan-release/capstan/lib/forge"
	"github.com/capstan-release/capstan/lib/resilience"
)

// seenFingerprintLimit bounds the in-memory redelivery window. Older
// fingerprints age out; redeliveries past the window still converge
// through the existence checks.
const seenFingerprintLimit = 4096

// Engine routes inbound events to the reconciler or publisher, with
// the resilience layer wrapped around every port call and the
// per-repository ordering guarantee enforced by the dispatcher.
type Engine struct {
	configuration *config.Config
	clock         clock.Clock
	logger        *slog.Logger

	operations forge.Operations
	reconciler *Reconciler
	publisher  *Publisher
	dispatcher *resilience.Dispatcher

	mu        sync.Mutex
	seen      map[codec.Fingerprint]bool
	seenOrder []codec.Fingerprint
}

// NewEngine wires an engine over the given port. The configuration
// must already be validated.
func NewEngine(configuration *config.Config, operations forge.Operations, clk clock.Clock, logger *slog.Logger) (*Engine, error) {
	breaker, err := resilience.NewBreaker(
		configuration.Breaker.FailureThreshold,
		configuration.Breaker.Cooldown.Std(),
		clk,
		logger,
	)
	if err != nil {
		return nil, err
	}

	resilient := &resilientOperations{
		inner:   operations,
		breaker: breaker,
		policy: resilience.RetryPolicy{
			BaseDelay:      configuration.Retry.BaseDelay.Std(),
			Multiplier:     configuration.Retry.Multiplier,
			MaxDelay:       configuration.Retry.MaxDelay.Std(),
			JitterFraction: configuration.Retry.JitterFraction,
			MaxAttempts:    configuration.Retry.MaxAttempts,
		},
		clock:  clk,
		logger: logger,
	}

	return &Engine{
		configuration: configuration,
		clock:         clk,
		logger:        logger,
		operations:    resilient,
		reconciler:    NewReconciler(resilient, clk, logger),
		publisher:     NewPublisher(resilient, clk, logger),
		dispatcher:    resilience.NewDispatcher(configuration.EventDeadline.Std(), logger),
		seen:          make(map[codec.Fingerprint]bool),
	}, nil
}

// Submit queues an event behind every earlier event for the same
// repository. Events for distinct repositories run concurrently. The
// done callback receives the outcome; it runs on the dispatcher's
// goroutine for that repository.
func (e *Engine) Submit(event Event, done func(Outcome)) error {
	return e.dispatcher.Dispatch(event.Repo.String(), func(ctx context.Context) {
		outcome := e.Process(ctx, event)
		if done != nil {
			done(outcome)
		}
	})
}

// Close drains the dispatcher: it returns once every queued event has
// finished processing.
func (e *Engine) Close() { e.dispatcher.Close() }

// Process handles one event synchronously. The context bounds the
// whole pipeline; callers going through Submit get the configured
// per-event deadline.
func (e *Engine) Process(ctx context.Context, event Event) Outcome {
	fingerprint, err := codec.FingerprintOf(event)
	if err != nil {
		// Fingerprinting is an optimization; a failure only costs
		// the redelivery fast path.
		e.logger.Warn("could not fingerprint event", "error", err)
	}

	processing := Context{
		CorrelationID: fingerprint.Short(),
		Repo:          event.Repo,
		ReceivedAt:    e.clock.Now(),
	}

	if e.alreadySeen(fingerprint) {
		return skipped(processing, "already processed")
	}

	outcome := e.route(ctx, processing, event)

	// Only settled events join the redelivery window: a failed
	// event must remain redeliverable.
	if outcome.Kind != OutcomeFailed {
		e.markSeen(fingerprint)
	}

	e.logger.Info("event processed",
		"correlation_id", processing.CorrelationID,
		"repo", event.Repo.String(),
		"outcome", outcome.Kind.String(),
		"detail", outcome.String(),
	)
	return outcome
}

// route classifies the event and hands it to the right component.
func (e *Engine) route(ctx context.Context, processing Context, event Event) Outcome {
	if event.Repo.IsZero() {
		return failedPermanent(processing, "event carries no repository identity")
	}
	if event.Action != "" && event.Action != "closed" {
		return noAction(processing, "ignored action "+event.Action)
	}
	if !event.Merged {
		return noAction(processing, "pull request closed without merging")
	}

	configuration, err := e.configuration.ForRepo(event.Repo)
	if err != nil {
		return failedPermanent(processing, err.Error())
	}
	if event.BaseRef != configuration.MainBranch {
		return noAction(processing, "base branch is not the main branch")
	}

	if _, owned := branchVersion(event.HeadRef, configuration.BranchPrefix); owned {
		return e.publisher.Publish(ctx, processing, event, configuration)
	}
	return e.reconciler.Reconcile(ctx, processing, event, configuration)
}

func (e *Engine) alreadySeen(fingerprint codec.Fingerprint) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seen[fingerprint]
}

func (e *Engine) markSeen(fingerprint codec.Fingerprint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.seen[fingerprint] {
		return
	}
	e.seen[fingerprint] = true
	e.seenOrder = append(e.seenOrder, fingerprint)
	if len(e.seenOrder) > seenFingerprintLimit {
		oldest := e.seenOrder[0]
		e.seenOrder = e.seenOrder[1:]
		delete(e.seen, oldest)
	}
}
