package domain

import "time"

// ConnectionStatus represents a participant's connection state
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
)

// Participant represents a member of a session roster
type Participant struct {
	ID       string
	Name     string
	Role     Role
	Status   ConnectionStatus
	JoinedAt time.Time
	// JoinSeq breaks ties between participants that joined within the same clock tick.
	JoinSeq uint64
	// ConnectionID is the transport handle currently bound to this participant.
	ConnectionID string
}

// NewParticipant creates a connected developer
func NewParticipant(id, name, connectionID string, joinedAt time.Time, seq uint64) *Participant {
	return &Participant{
		ID:           id,
		Name:         name,
		Role:         RoleDeveloper,
		Status:       StatusConnected,
		JoinedAt:     joinedAt,
		JoinSeq:      seq,
		ConnectionID: connectionID,
	}
}

// IsConnected returns true if the participant is currently connected
func (p *Participant) IsConnected() bool {
	return p.Status == StatusConnected
}

// Disconnect marks the participant as disconnected
func (p *Participant) Disconnect() {
	p.Status = StatusDisconnected
}

// Reconnect marks the participant as connected through the given handle
func (p *Participant) Reconnect(connectionID string) {
	p.Status = StatusConnected
	p.ConnectionID = connectionID
}

// joinedBefore orders participants by join time, then by join sequence
func (p *Participant) joinedBefore(other *Participant) bool {
	if !p.JoinedAt.Equal(other.JoinedAt) {
		return p.JoinedAt.Before(other.JoinedAt)
	}
	return p.JoinSeq < other.JoinSeq
}
