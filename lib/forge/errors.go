// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package forge

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a port failure for retry decisions.
type ErrorKind int

const (
	// KindTransient covers network failures, 5xx responses, and rate
	// limiting. Safe to retry with backoff.
	KindTransient ErrorKind = iota
	// KindConflict covers optimistic-lock rejections and duplicate
	// resources (stale concurrency token, ref already exists). Resolved
	// by re-fetching state and recomputing, not by blind retry.
	KindConflict
	// KindPermanent covers validation failures and malformed requests.
	// Never retried.
	KindPermanent
	// KindNotFound is a missing resource. Often an expected outcome
	// (no release PR yet, tag absent) rather than a failure.
	KindNotFound
)

// String returns the kind as a lowercase word for logs and outcomes.
func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindConflict:
		return "conflict"
	case KindPermanent:
		return "permanent"
	case KindNotFound:
		return "not_found"
	default:
		return "unknown"
	}
}

// Error is a classified port failure. Adapters wrap every non-2xx
// response and transport failure in one of these so the resilience
// layer never has to inspect provider-specific errors.
type Error struct {
	// Kind drives the retry decision.
	Kind ErrorKind

	// Op names the failing operation ("create branch", "create tag").
	Op string

	// Message is the provider's error description, safe to surface
	// to the caller.
	Message string

	// StatusCode is the HTTP status when the failure came from an
	// API response, zero otherwise.
	StatusCode int

	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("forge: %s: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}
	if e.Message != "" {
		return fmt.Sprintf("forge: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("forge: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Classify returns the error's kind. Errors that are not *Error —
// raw transport failures that escaped an adapter — are treated as
// transient, matching the convention that connection resets, timeouts,
// and EOF are worth retrying.
func Classify(err error) ErrorKind {
	var forgeError *Error
	if errors.As(err, &forgeError) {
		return forgeError.Kind
	}
	return KindTransient
}

// IsNotFound reports whether err is a not-found port failure.
func IsNotFound(err error) bool {
	var forgeError *Error
	return errors.As(err, &forgeError) && forgeError.Kind == KindNotFound
}

// IsConflict reports whether err is a conflict port failure.
func IsConflict(err error) bool {
	var forgeError *Error
	return errors.As(err, &forgeError) && forgeError.Kind == KindConflict
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool { return Classify(err) == KindTransient }

// IsPermanent reports whether err is a permanent failure that must
// surface immediately.
func IsPermanent(err error) bool {
	var forgeError *Error
	return errors.As(err, &forgeError) && forgeError.Kind == KindPermanent
}
