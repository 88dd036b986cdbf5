package events

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// publishBuffer bounds the number of events queued for fan-out. Publishers
// never block; events past the buffer are dropped.
const publishBuffer = 256

// Broker fans reconciliation events out to every registered subscriber
// (WebSocket hub, SSE broadcaster) concurrently. Registration and delivery
// are serialized through the Run loop.
type Broker struct {
	mu     sync.RWMutex
	subs   map[Subscriber]struct{}
	queue  chan Event
	joins  chan Subscriber
	leaves chan Subscriber
	logger *zerolog.Logger
}

// NewBroker creates an event broker. Run must be started for Subscribe,
// Unsubscribe, and delivery to make progress.
func NewBroker(logger *zerolog.Logger) *Broker {
	return &Broker{
		subs:   make(map[Subscriber]struct{}),
		queue:  make(chan Event, publishBuffer),
		joins:  make(chan Subscriber),
		leaves: make(chan Subscriber),
		logger: logger,
	}
}

// Run executes the broker loop until the context is cancelled, then closes
// every remaining subscriber. Call it in a goroutine.
func (b *Broker) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for sub := range b.subs {
				_ = sub.Close()
			}
			b.subs = make(map[Subscriber]struct{})
			b.mu.Unlock()
			b.logger.Info().Msg("Event broker shut down")
			return

		case sub := <-b.joins:
			b.mu.Lock()
			b.subs[sub] = struct{}{}
			total := len(b.subs)
			b.mu.Unlock()
			b.logger.Info().
				Int("total_subscribers", total).
				Msg("Subscriber registered")

		case sub := <-b.leaves:
			b.mu.Lock()
			if _, ok := b.subs[sub]; ok {
				delete(b.subs, sub)
				_ = sub.Close()
			}
			total := len(b.subs)
			b.mu.Unlock()
			b.logger.Info().
				Int("total_subscribers", total).
				Msg("Subscriber unregistered")

		case event := <-b.queue:
			b.deliver(event)
		}
	}
}

// deliver snapshots the subscriber set and sends to each concurrently so a
// slow consumer cannot stall the loop.
func (b *Broker) deliver(event Event) {
	b.mu.RLock()
	snapshot := make([]Subscriber, 0, len(b.subs))
	for sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	for _, sub := range snapshot {
		go func(s Subscriber) {
			if err := s.Send(event); err != nil {
				b.logger.Warn().
					Err(err).
					Str("event_type", string(event.Type)).
					Msg("Failed to send event to subscriber")
			}
		}(sub)
	}

	b.logger.Debug().
		Str("event_type", string(event.Type)).
		Int("subscribers", len(snapshot)).
		Msg("Event broadcast")
}

// Publish queues an event for fan-out. It never blocks; when the queue is
// full the event is dropped and a warning logged.
func (b *Broker) Publish(eventType EventType, data any) {
	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	select {
	case b.queue <- event:
	default:
		b.logger.Warn().
			Str("event_type", string(eventType)).
			Msg("Event queue full, event dropped")
	}
}

// Subscribe registers a subscriber to receive events.
func (b *Broker) Subscribe(sub Subscriber) {
	b.joins <- sub
}

// Unsubscribe removes and closes a subscriber.
func (b *Broker) Unsubscribe(sub Subscriber) {
	b.leaves <- sub
}

// SubscriberCount returns the current number of subscribers.
func (b *Broker) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
