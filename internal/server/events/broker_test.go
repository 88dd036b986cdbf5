package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockSubscriber records delivered events for assertions.
type mockSubscriber struct {
	events []Event
	mu     sync.Mutex
	closed bool
}

func newMockSubscriber() *mockSubscriber {
	return &mockSubscriber{
		events: make([]Event, 0),
	}
}

func (m *mockSubscriber) Send(event Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *mockSubscriber) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockSubscriber) EventCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.events)
}

func (m *mockSubscriber) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func TestBroker_NewBroker(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)

	if b == nil {
		t.Fatal("NewBroker returned nil")
	}

	if b.subs == nil {
		t.Error("subscribers slice not initialized")
	}

	if b.queue == nil {
		t.Error("events channel not initialized")
	}
}

func TestBroker_PublishFanOut(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	sub1 := newMockSubscriber()
	sub2 := newMockSubscriber()
	b.Subscribe(sub1)
	b.Subscribe(sub2)

	b.Publish(FailureDetected, map[string]any{"failure_id": "f-abc123"})
	b.Publish(PassCompleted, map[string]any{"new_failures": 2})

	waitFor(t, func() bool {
		return sub1.EventCount() == 2 && sub2.EventCount() == 2
	})
}

func TestBroker_Unsubscribe(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go b.Run(ctx)

	sub := newMockSubscriber()
	b.Subscribe(sub)
	waitFor(t, func() bool { return b.SubscriberCount() == 1 })

	b.Unsubscribe(sub)
	waitFor(t, func() bool { return b.SubscriberCount() == 0 })

	if !sub.Closed() {
		t.Error("unsubscribed subscriber was not closed")
	}
}

func TestBroker_ShutdownClosesSubscribers(t *testing.T) {
	logger := zerolog.Nop()
	b := NewBroker(&logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	sub := newMockSubscriber()
	b.Subscribe(sub)
	waitFor(t, func() bool { return b.SubscriberCount() == 1 })

	cancel()
	<-done

	if !sub.Closed() {
		t.Error("subscriber not closed on shutdown")
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
