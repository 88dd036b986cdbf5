// Package adapters bridges the event broker to the concrete realtime
// transports that carry reconciliation updates to clients.
package adapters

import (
	"github.com/careops/visitsync/internal/server/events"
	ws "github.com/careops/visitsync/internal/server/websocket"
)

// WebSocketSubscriber forwards broker events into the WebSocket hub.
type WebSocketSubscriber struct {
	hub *ws.Hub
}

// NewWebSocketSubscriber wraps a hub as an events.Subscriber.
func NewWebSocketSubscriber(hub *ws.Hub) *WebSocketSubscriber {
	return &WebSocketSubscriber{hub: hub}
}

// Send rewraps the event as a hub message and broadcasts it to every
// connected WebSocket client.
func (w *WebSocketSubscriber) Send(event events.Event) error {
	w.hub.Broadcast(ws.Message{
		Type:      string(event.Type),
		Timestamp: event.Timestamp,
		Data:      event.Data,
	})
	return nil
}

// Close does nothing; the hub's Run loop owns connection teardown.
func (w *WebSocketSubscriber) Close() error { return nil }
