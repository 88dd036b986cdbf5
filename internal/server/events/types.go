// Package events provides a unified event system for real-time
// reconciliation updates.
//
// This package implements a broker pattern that connects the engine's hooks
// to multiple transport mechanisms (WebSocket, SSE, etc.) through a common
// event pipeline. This eliminates code duplication and provides a single
// point for event distribution.
package events

import "time"

// EventType represents the type of reconciliation event.
type EventType string

// Event types for reconciliation activity.
const (
	// Failure events (from engine hooks).
	FailureDetected  EventType = "failure.detected"
	FailureCorrected EventType = "failure.corrected"

	// Pass events (from reconciliation passes).
	PassCompleted EventType = "pass.completed"

	// Client events (from transport layers).
	ClientConnected EventType = "client.connected"
)

// Event represents a reconciliation event with type, timestamp, and data.
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}
