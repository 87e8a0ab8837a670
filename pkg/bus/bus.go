// Package bus carries the channel-agnostic message shapes and a small event
// stream used for routing observability.
package bus

import (
	"context"
	"sync"
	"time"
)

const defaultBufferSize = 100

// EventBus fans routing events out to subscribers.
//
// Publishing never blocks: a subscriber that cannot keep up drops events
// instead of stalling the message path.
type EventBus struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan Event
	nextSubID   uint64
	done        chan struct{}
	closeOnce   sync.Once
}

func NewEventBus() *EventBus {
	return &EventBus{
		subscribers: make(map[uint64]chan Event),
		done:        make(chan struct{}),
	}
}

// Publish delivers an event to every live subscriber. It reports false when
// the bus is closed or the context is done.
func (eb *EventBus) Publish(ctx context.Context, event Event) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	select {
	case <-ctx.Done():
		return false
	case <-eb.done:
		return false
	default:
	}

	// Sends stay under the read lock: unsubscribe and Close close streams
	// under the write lock, so a send can never hit a closed channel.
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	for _, ch := range eb.subscribers {
		select {
		case ch <- event:
		default:
			// Drop instead of blocking the publisher on slow subscribers.
		}
	}

	return true
}

// Subscribe registers a buffered event stream. The returned function
// unsubscribes and closes the stream; cancelling ctx does the same.
func (eb *EventBus) Subscribe(ctx context.Context, buffer int) (<-chan Event, func()) {
	if ctx == nil {
		ctx = context.Background()
	}
	if buffer <= 0 {
		buffer = defaultBufferSize
	}

	ch := make(chan Event, buffer)

	eb.mu.Lock()
	select {
	case <-eb.done:
		eb.mu.Unlock()
		close(ch)
		return ch, func() {}
	default:
	}

	id := eb.nextSubID
	eb.nextSubID++
	eb.subscribers[id] = ch
	eb.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			eb.mu.Lock()
			if eventCh, ok := eb.subscribers[id]; ok {
				delete(eb.subscribers, id)
				close(eventCh)
			}
			eb.mu.Unlock()
		})
	}

	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-eb.done:
			unsubscribe()
		}
	}()

	return ch, unsubscribe
}

// Close shuts the bus down and closes every subscriber stream.
func (eb *EventBus) Close() {
	eb.closeOnce.Do(func() {
		close(eb.done)

		eb.mu.Lock()
		for id, ch := range eb.subscribers {
			close(ch)
			delete(eb.subscribers, id)
		}
		eb.mu.Unlock()
	})
}
