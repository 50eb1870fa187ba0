package domain

import "time"

// EventType represents the type of a server-to-client event
type EventType string

const (
	EventConnected      EventType = "connected"
	EventSessionCreated EventType = "session-created"
	EventSessionState   EventType = "session-state"
	EventError          EventType = "error"
	EventPong           EventType = "pong"
)

// Event is a frame delivered to client connections
type Event struct {
	Type      EventType   `json:"type"`
	SessionID string      `json:"sessionId,omitempty"`
	Target    string      `json:"-"` // If set, only this connection receives the event
	Payload   interface{} `json:"payload,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent creates a new session-wide event
func NewEvent(eventType EventType, sessionID string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		SessionID: sessionID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewTargetedEvent creates an event for a single connection
func NewTargetedEvent(eventType EventType, sessionID, connectionID string, payload interface{}) *Event {
	return &Event{
		Type:      eventType,
		SessionID: sessionID,
		Target:    connectionID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// Payload types for different events

// ConnectedPayload tells a client which participant ID its connection speaks for
type ConnectedPayload struct {
	ParticipantID string `json:"participantId"`
}

// SessionCreatedPayload is sent to the creator once the session exists
type SessionCreatedPayload struct {
	SessionID string `json:"sessionId"`
}

// ErrorPayload is sent when a request cannot be served
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
