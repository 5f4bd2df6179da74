package events

import "time"

// Envelope is the wire format for every outbound event: a flat record with an
// event name, a data object, and a server-generated ISO-8601 timestamp.
type Envelope struct {
	Event     string      `json:"event"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

func New(event string, data interface{}) Envelope {
	return Envelope{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Publisher dispatches an event to every connection currently subscribed to a
// channel. The return value counts connections the event was handed to:
// dispatched, never delivered. Best-effort, at-most-once, no retry.
type Publisher interface {
	Publish(channel string, event Envelope) int
}
