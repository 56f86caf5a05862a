// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/capstan-release/capstan/lib/forge"
)

// maxConflictRetries bounds the refetch-and-recompute loop for
// optimistic concurrency conflicts.
const maxConflictRetries = 3

// WithConflictRetry runs fn, retrying when it reports a concurrency
// conflict. Each retry calls fn again so the caller refetches current
// state and recomputes before reapplying. After maxConflictRetries
// conflicts the last error is returned wrapped, for surfacing rather
// than further retrying.
func WithConflictRetry(ctx context.Context, logger *slog.Logger, operation string, fn func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn(ctx)
		if err == nil || !forge.IsConflict(err) {
			return err
		}
		if attempt >= maxConflictRetries {
			break
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("concurrency conflict, refetching",
			"operation", operation,
			"attempt", attempt+1,
		)
	}
	return fmt.Errorf("%s: conflict persisted after %d retries: %w", operation, maxConflictRetries, err)
}
