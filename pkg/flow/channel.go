// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package flow

import (
	"context"
	"sync"
)

// ErrChannelDrained is returned by Next once the channel is closed and
// every buffered event has been consumed.
var ErrChannelDrained = &channelError{message: "event channel is drained"}

type channelError struct {
	message string
}

func (e *channelError) Error() string {
	return e.message
}

// EventChannel is a multi-producer, single-consumer FIFO. Each
// executing step pushes log and timeline events from its own goroutine;
// one consumer drains them in global arrival order. Push never blocks,
// so producers are never slowed by a lagging consumer.
//
// Guarantees: no event is lost or duplicated, and no event is delivered
// before one that any producer pushed earlier.
type EventChannel[T any] struct {
	mu     sync.Mutex
	buffer []T
	signal chan struct{}
	closed bool
}

// NewEventChannel creates an empty, open event channel.
func NewEventChannel[T any]() *EventChannel[T] {
	return &EventChannel[T]{
		signal: make(chan struct{}, 1),
	}
}

// Push appends an event to the buffer. Safe to call concurrently from
// any number of producers. Returns false if the channel is closed; a
// late push after close is a no-op, not an error.
func (c *EventChannel[T]) Push(ev T) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.buffer = append(c.buffer, ev)
	c.mu.Unlock()

	// Wake the consumer if it is waiting.
	select {
	case c.signal <- struct{}{}:
	default:
	}
	return true
}

// Close signals that no further events will be pushed. Idempotent.
// Buffered events remain consumable until the channel drains.
func (c *EventChannel[T]) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.mu.Unlock()

	select {
	case c.signal <- struct{}{}:
	default:
	}
}

// Next returns the oldest buffered event. It blocks while the channel
// is empty and open, returns ctx.Err() on cancellation, and returns
// ErrChannelDrained exactly once the channel is closed and empty.
// Next must only be called from a single consumer goroutine.
func (c *EventChannel[T]) Next(ctx context.Context) (T, error) {
	var zero T
	for {
		c.mu.Lock()
		if len(c.buffer) > 0 {
			ev := c.buffer[0]
			c.buffer = c.buffer[1:]
			c.mu.Unlock()
			return ev, nil
		}
		if c.closed {
			c.mu.Unlock()
			return zero, ErrChannelDrained
		}
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-c.signal:
		}
	}
}

// All returns a range-over-func sequence that yields events in arrival
// order and terminates when the channel drains or ctx is cancelled.
func (c *EventChannel[T]) All(ctx context.Context) func(yield func(T) bool) {
	return func(yield func(T) bool) {
		for {
			ev, err := c.Next(ctx)
			if err != nil {
				return
			}
			if !yield(ev) {
				return
			}
		}
	}
}

// IsDrained reports whether the channel is closed and empty.
func (c *EventChannel[T]) IsDrained() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed && len(c.buffer) == 0
}

// Len returns the number of buffered, unconsumed events.
func (c *EventChannel[T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.buffer)
}
