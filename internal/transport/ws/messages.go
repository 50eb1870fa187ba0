package ws

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gookit/validate"
)

// MessageType represents the type of a client frame
type MessageType string

// Client → Server message types
const (
	MsgCreateSession MessageType = "create-session"
	MsgJoinSession   MessageType = "join-session"
	MsgSetRole       MessageType = "set-role"
	MsgCastVote      MessageType = "cast-vote"
	MsgRevealVotes   MessageType = "reveal-votes"
	MsgStartNewRound MessageType = "start-new-round"
	MsgPing          MessageType = "ping"
)

// Error codes
const (
	ErrCodeSessionNotFound = "SESSION_NOT_FOUND"
	ErrCodeInternalError   = "INTERNAL_ERROR"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Client message payloads

// CreateSessionPayload is the payload for create-session
type CreateSessionPayload struct {
	Name          string `json:"name" validate:"required|maxLen:64"`
	ParticipantID string `json:"participantId" validate:"maxLen:128"`
}

// JoinSessionPayload is the payload for join-session
type JoinSessionPayload struct {
	SessionID     string `json:"sessionId" validate:"required|maxLen:64"`
	ParticipantID string `json:"participantId" validate:"maxLen:128"`
	Name          string `json:"name" validate:"required|maxLen:64"`
}

// SetRolePayload is the payload for set-role
type SetRolePayload struct {
	Role string `json:"role" validate:"required|in:developer,observer"`
}

// CastVotePayload is the payload for cast-vote.
// Value is a pointer so a missing value can be told apart from zero.
type CastVotePayload struct {
	Value *float64 `json:"value"`
}

// StartNewRoundPayload is the payload for start-new-round
type StartNewRoundPayload struct {
	Description       string `json:"description" validate:"maxLen:500"`
	TicketDescription string `json:"ticketDescription" validate:"maxLen:500"`
}

// Text returns the round description, accepting the legacy field name
func (p *StartNewRoundPayload) Text() string {
	if p.Description != "" {
		return p.Description
	}
	return p.TicketDescription
}

// decodePayload unmarshals and validates a client payload into dst
func decodePayload(raw json.RawMessage, dst interface{}) error {
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	trimStrings(dst)

	v := validate.Struct(dst)
	if !v.Validate() {
		return fmt.Errorf("validate payload: %w", v.Errors)
	}

	return nil
}

// trimStrings normalises user supplied text fields before validation
func trimStrings(dst interface{}) {
	switch p := dst.(type) {
	case *CreateSessionPayload:
		p.Name = strings.TrimSpace(p.Name)
		p.ParticipantID = strings.TrimSpace(p.ParticipantID)
	case *JoinSessionPayload:
		p.SessionID = strings.TrimSpace(p.SessionID)
		p.ParticipantID = strings.TrimSpace(p.ParticipantID)
		p.Name = strings.TrimSpace(p.Name)
	case *StartNewRoundPayload:
		p.Description = strings.TrimSpace(p.Description)
		p.TicketDescription = strings.TrimSpace(p.TicketDescription)
	}
}
