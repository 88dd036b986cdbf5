package events

// Subscriber receives every event published through the broker. The
// adapters package implements it for each realtime transport.
type Subscriber interface {
	// Send must not block; slow consumers drop events rather than
	// stalling the broker loop.
	Send(Event) error

	// Close releases the transport. The broker calls it when the
	// subscriber leaves and when the broker shuts down.
	Close() error
}
