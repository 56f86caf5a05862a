// Copyright 2026 The Capstan Authors
// SPDX-License-Identifier: Apache-2.0

package resilience

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// DefaultEventDeadline bounds the processing time of a single
// dispatched event.
const DefaultEventDeadline = 30 * time.Second

// ErrDispatcherClosed is returned by Dispatch after Close has begun.
var ErrDispatcherClosed = errors.New("resilience: dispatcher closed")

// Dispatcher executes work serially per key while letting distinct
// keys run concurrently. Events for the same key run in the order
// they were dispatched. Keys are repository names in practice, so a
// slow repository never delays another repository's releases.
type Dispatcher struct {
	mu     sync.Mutex
	queues map[string]*keyQueue
	closed bool

	wg       sync.WaitGroup
	deadline time.Duration
	logger   *slog.Logger
}

type keyQueue struct {
	pending []func(context.Context)
	active  bool
}

// NewDispatcher creates a dispatcher whose events are bounded by
// deadline. A non-positive deadline uses DefaultEventDeadline.
func NewDispatcher(deadline time.Duration, logger *slog.Logger) *Dispatcher {
	if deadline <= 0 {
		deadline = DefaultEventDeadline
	}
	return &Dispatcher{
		queues:   make(map[string]*keyQueue),
		deadline: deadline,
		logger:   logger,
	}
}

// Dispatch enqueues fn for key. Events enqueued for the same key run
// one at a time in enqueue order; fn receives a context that expires
// at the per-event deadline. Dispatch returns once the event is
// queued, not once it runs.
func (d *Dispatcher) Dispatch(key string, fn func(context.Context)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrDispatcherClosed
	}

	queue, ok := d.queues[key]
	if !ok {
		queue = &keyQueue{}
		d.queues[key] = queue
	}
	queue.pending = append(queue.pending, fn)
	if !queue.active {
		queue.active = true
		d.wg.Add(1)
		go d.run(key, queue)
	}
	return nil
}

// run drains queue serially. When the queue empties the worker exits
// and the key's entry is reaped; a later Dispatch starts a fresh
// worker.
func (d *Dispatcher) run(key string, queue *keyQueue) {
	defer d.wg.Done()
	for {
		d.mu.Lock()
		if len(queue.pending) == 0 {
			queue.active = false
			delete(d.queues, key)
			d.mu.Unlock()
			return
		}
		fn := queue.pending[0]
		queue.pending = queue.pending[1:]
		d.mu.Unlock()

		d.execute(key, fn)
	}
}

func (d *Dispatcher) execute(key string, fn func(context.Context)) {
	ctx, cancel := context.WithTimeout(context.Background(), d.deadline)
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		fn(ctx)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		d.logger.Warn("event exceeded deadline",
			"key", key,
			"deadline", d.deadline,
		)
		// The event's goroutine keeps the cancelled context; wait
		// for it so same-key ordering holds even for stragglers.
		<-done
	}
}

// Close stops accepting new events and waits for every queued event
// to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	d.wg.Wait()
}
