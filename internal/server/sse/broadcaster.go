// Package sse streams reconciliation updates to review clients over
// Server-Sent Events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// clientBuffer is the per-connection event buffer; events beyond it are
// skipped for that client rather than stalling the loop.
const clientBuffer = 256

// Event is one SSE frame.
type Event struct {
	Event string `json:"event,omitempty"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data"`
}

// Broadcaster fans events out to every connected SSE client.
type Broadcaster struct {
	mu      sync.RWMutex
	streams map[chan Event]struct{}
	joins   chan chan Event
	leaves  chan chan Event
	feed    chan Event
	logger  *zerolog.Logger
}

// NewBroadcaster creates an SSE broadcaster. Run must be started before
// clients connect.
func NewBroadcaster(logger *zerolog.Logger) *Broadcaster {
	return &Broadcaster{
		streams: make(map[chan Event]struct{}),
		// Buffered so handlers that connect or disconnect before Run is
		// scheduled do not block.
		joins:  make(chan chan Event, 10),
		leaves: make(chan chan Event, 10),
		feed:   make(chan Event, clientBuffer),
		logger: logger,
	}
}

// Run executes the broadcast loop until the context is cancelled, then
// closes every client stream. Call it in a goroutine.
func (b *Broadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			for stream := range b.streams {
				close(stream)
			}
			b.streams = make(map[chan Event]struct{})
			b.mu.Unlock()
			b.logger.Info().Msg("SSE broadcaster shut down")
			return

		case stream := <-b.joins:
			b.mu.Lock()
			b.streams[stream] = struct{}{}
			total := len(b.streams)
			b.mu.Unlock()
			b.logger.Info().
				Int("total_clients", total).
				Msg("SSE client connected")

		case stream := <-b.leaves:
			b.mu.Lock()
			if _, ok := b.streams[stream]; ok {
				delete(b.streams, stream)
				close(stream)
			}
			total := len(b.streams)
			b.mu.Unlock()
			b.logger.Info().
				Int("total_clients", total).
				Msg("SSE client disconnected")

		case event := <-b.feed:
			b.mu.RLock()
			for stream := range b.streams {
				select {
				case stream <- event:
				default:
					b.logger.Warn().Msg("SSE client buffer full, event skipped")
				}
			}
			b.mu.RUnlock()
		}
	}
}

// Broadcast queues an event for every connected client without blocking.
func (b *Broadcaster) Broadcast(event Event) {
	select {
	case b.feed <- event:
	default:
		b.logger.Warn().Msg("SSE broadcast channel full, event dropped")
	}
}

// ClientCount returns the number of connected SSE clients.
func (b *Broadcaster) ClientCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.streams)
}

// ServeHTTP upgrades the request to an event stream and relays broadcast
// events until the client goes away.
func (b *Broadcaster) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	stream := make(chan Event, clientBuffer)
	b.joins <- stream
	defer func() { b.leaves <- stream }()

	b.writeEvent(w, flusher, Event{
		Event: "connected",
		Data: map[string]any{
			"message":   "Connected to reconciliation updates stream",
			"timestamp": time.Now(),
		},
	})

	for {
		select {
		case event, ok := <-stream:
			if !ok {
				return
			}
			b.writeEvent(w, flusher, event)

		case <-r.Context().Done():
			return
		}
	}
}

// writeEvent writes one SSE frame and flushes it to the client.
func (b *Broadcaster) writeEvent(w http.ResponseWriter, flusher http.Flusher, event Event) {
	if event.Event != "" {
		_, _ = fmt.Fprintf(w, "event: %s\n", event.Event)
	}
	if event.ID != "" {
		_, _ = fmt.Fprintf(w, "id: %s\n", event.ID)
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		b.logger.Error().Err(err).Msg("Failed to marshal SSE event data")
		return
	}
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)

	flusher.Flush()
}
