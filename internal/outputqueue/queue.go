// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

// Package outputqueue implements the per-session additional-outputs
// queue: a bounded FIFO the stream handler produces into and the
// HTTP/SSE output endpoint drains, plus the quit signal that tears it
// down on session cleanup.
package outputqueue

import (
	"context"
	"sync"

	"github.com/fastrtc/fastrtc-go/internal/handler"
	"github.com/fastrtc/fastrtc-go/internal/logging"
)

// DefaultCapacity bounds the queue so a client that never polls the
// output endpoint cannot grow memory unboundedly; once full, the oldest
// unread item is dropped to make room for the newest, favoring
// liveness over completeness for slow consumers.
const DefaultCapacity = 100

// Queue is a bounded, oldest-drop-on-overflow FIFO of AdditionalOutputs,
// plus a one-shot quit signal.
type Queue struct {
	mu       sync.Mutex
	items    []handler.AdditionalOutputs
	capacity int
	notify   chan struct{}

	quitOnce sync.Once
	quitCh   chan struct{}

	logger logging.Logger
}

// New builds a Queue with the given capacity. A capacity <= 0 falls back
// to DefaultCapacity.
func New(capacity int, logger logging.Logger) *Queue {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue{
		capacity: capacity,
		notify:   make(chan struct{}, 1),
		quitCh:   make(chan struct{}),
		logger:   logger,
	}
}

// Push enqueues an output, dropping the oldest entry if the queue is at
// capacity.
func (q *Queue) Push(out handler.AdditionalOutputs) {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.items = q.items[1:]
		if q.logger != nil {
			q.logger.Warnw("output queue full, dropping oldest", "capacity", q.capacity)
		}
	}
	q.items = append(q.items, out)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// Get blocks until an item is available, the context is cancelled, or
// Quit has been called, whichever happens first. It mirrors
// asyncio.wait_for(queue.get(), timeout) by returning ok=false when the
// context expires rather than propagating an error, since a polling SSE
// stream just wants to loop and try again.
func (q *Queue) Get(ctx context.Context) (handler.AdditionalOutputs, bool) {
	for {
		if out, ok := q.pop(); ok {
			return out, true
		}
		select {
		case <-ctx.Done():
			return handler.AdditionalOutputs{}, false
		case <-q.quitCh:
			return handler.AdditionalOutputs{}, false
		case <-q.notify:
		}
	}
}

func (q *Queue) pop() (handler.AdditionalOutputs, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return handler.AdditionalOutputs{}, false
	}
	out := q.items[0]
	q.items = q.items[1:]
	return out, true
}

// FetchLatest returns the most recently pushed item without blocking, or
// ok=false if the queue is empty.
func (q *Queue) FetchLatest() (handler.AdditionalOutputs, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return handler.AdditionalOutputs{}, false
	}
	return q.items[len(q.items)-1], true
}

// Quit signals any blocked Get calls to return, idempotently.
func (q *Queue) Quit() {
	q.quitOnce.Do(func() {
		close(q.quitCh)
	})
}

// Done returns a channel closed once Quit has been called.
func (q *Queue) Done() <-chan struct{} {
	return q.quitCh
}
