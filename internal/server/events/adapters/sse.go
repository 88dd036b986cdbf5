package adapters

import (
	"strconv"

	"github.com/careops/visitsync/internal/server/events"
	"github.com/careops/visitsync/internal/server/sse"
)

// SSESubscriber forwards broker events to the SSE broadcaster.
type SSESubscriber struct {
	broadcaster *sse.Broadcaster
}

// NewSSESubscriber wraps a broadcaster as an events.Subscriber.
func NewSSESubscriber(broadcaster *sse.Broadcaster) *SSESubscriber {
	return &SSESubscriber{broadcaster: broadcaster}
}

// Send rewraps the event as an SSE frame. The event timestamp doubles
// as the frame ID so clients can resume from Last-Event-ID.
func (s *SSESubscriber) Send(event events.Event) error {
	s.broadcaster.Broadcast(sse.Event{
		Event: string(event.Type),
		ID:    strconv.FormatInt(event.Timestamp.Unix(), 10),
		Data:  event.Data,
	})
	return nil
}

// Close does nothing; the broadcaster's Run loop owns client teardown.
func (s *SSESubscriber) Close() error { return nil }
