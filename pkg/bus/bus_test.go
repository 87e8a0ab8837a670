package bus

import (
	"context"
	"sync"
	"testing"
	"time"

	"carebot/pkg/care"
)

func TestPublishReachesSubscriber(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	events, unsubscribe := eb.Subscribe(context.Background(), 1)
	t.Cleanup(unsubscribe)

	ok := eb.Publish(context.Background(), Event{
		Type:     EventMessageRouted,
		Channel:  "webchat",
		Category: care.CategorySafety,
	})
	if !ok {
		t.Fatal("expected publish to succeed")
	}

	select {
	case event := <-events:
		if event.Type != EventMessageRouted {
			t.Fatalf("type = %q, want %q", event.Type, EventMessageRouted)
		}
		if event.Category != care.CategorySafety {
			t.Fatalf("category = %q, want %q", event.Category, care.CategorySafety)
		}
		if event.At.IsZero() {
			t.Fatal("expected publish to stamp the event time")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("event not delivered")
	}
}

func TestPublishDropsWhenSubscriberFull(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	_, unsubscribe := eb.Subscribe(context.Background(), 1)
	t.Cleanup(unsubscribe)

	// Second publish overflows the buffer; it must not block.
	done := make(chan struct{})
	go func() {
		defer close(done)
		eb.Publish(context.Background(), Event{Type: EventMessageReceived})
		eb.Publish(context.Background(), Event{Type: EventMessageReceived})
	}()

	select {
	case <-done:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("publish blocked on a full subscriber")
	}
}

func TestPublishAfterClose(t *testing.T) {
	eb := NewEventBus()
	eb.Close()

	if ok := eb.Publish(context.Background(), Event{Type: EventMessageReceived}); ok {
		t.Fatal("expected publish to fail after close")
	}
}

func TestPublishCanceledContext(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if ok := eb.Publish(ctx, Event{Type: EventMessageReceived}); ok {
		t.Fatal("expected publish to fail on canceled context")
	}
}

func TestSubscriberStreamClosesOnClose(t *testing.T) {
	eb := NewEventBus()

	events, _ := eb.Subscribe(context.Background(), 1)
	eb.Close()

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected closed stream after bus close")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("stream did not close after bus close")
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	events, unsubscribe := eb.Subscribe(context.Background(), 1)
	unsubscribe()

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected closed stream after unsubscribe")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("stream did not close after unsubscribe")
	}
}

func TestPublishConcurrentWithUnsubscribe(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					eb.Publish(context.Background(), Event{Type: EventMessageRouted})
				}
			}
		}()
	}

	// Churn subscriptions while publishers run; a close racing a send
	// would panic the publisher goroutines.
	for i := 0; i < 500; i++ {
		_, unsubscribe := eb.Subscribe(context.Background(), 1)
		unsubscribe()
	}

	close(stop)
	wg.Wait()
}

func TestSubscribeOnCanceledContext(t *testing.T) {
	eb := NewEventBus()
	t.Cleanup(eb.Close)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	events, _ := eb.Subscribe(ctx, 1)

	select {
	case _, open := <-events:
		if open {
			t.Fatal("expected closed stream for canceled context")
		}
	case <-time.After(500 * time.Millisecond):
		t.Fatal("stream did not close for canceled context")
	}
}
