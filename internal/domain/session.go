package domain

import (
	"slices"
	"time"
)

// Session represents one estimation workspace
type Session struct {
	ID           string
	CreatorID    string
	Participants map[string]*Participant
	CurrentRound *Round
	CreatedAt    time.Time

	joinSeq uint64
}

// Removal describes the effect of permanently removing a participant
type Removal struct {
	Removed        bool
	VoteDropped    bool
	CreatorChanged bool
	// Empty is set when the roster has no participants left and the session must be destroyed.
	Empty bool
}

// NewSession creates a session whose only participant is its creator
func NewSession(id, creatorID, creatorName, connectionID string, now time.Time) *Session {
	s := &Session{
		ID:           id,
		CreatorID:    creatorID,
		Participants: make(map[string]*Participant),
		CreatedAt:    now,
	}
	s.addParticipant(creatorID, creatorName, connectionID, now)
	return s
}

func (s *Session) addParticipant(id, name, connectionID string, now time.Time) *Participant {
	s.joinSeq++
	p := NewParticipant(id, name, connectionID, now, s.joinSeq)
	s.Participants[id] = p
	return p
}

// Join adds a new participant or reconnects an existing one.
// It always changes observable state and returns true when the participant was already on the roster.
func (s *Session) Join(participantID, name, connectionID string, now time.Time) bool {
	p, rejoined := s.Participants[participantID]
	if rejoined {
		p.Reconnect(connectionID)
	} else {
		s.addParticipant(participantID, name, connectionID, now)
	}

	// Succession deferred while nobody was connected completes here.
	if _, ok := s.Participants[s.CreatorID]; !ok {
		s.promoteCreator()
	}

	return rejoined
}

// SetRole changes a participant's role. Leaving the developer role forfeits the in-flight vote.
func (s *Session) SetRole(participantID string, role Role) Outcome {
	p, ok := s.Participants[participantID]
	if !ok || !role.Valid() {
		return Ignored
	}

	if !role.CanVote() {
		s.CurrentRound.RemoveVote(participantID)
	}

	p.Role = role
	return Applied
}

// CastVote records a developer's vote in the unrevealed current round.
// Any finite number is accepted.
func (s *Session) CastVote(participantID string, value float64) Outcome {
	p, ok := s.Participants[participantID]
	if !ok || !p.Role.CanVote() || ValidateVote(value, false) != nil {
		return Ignored
	}
	return outcomeOf(s.CurrentRound.SetVote(participantID, value))
}

// RevealVotes reveals the current round. Only the creator may reveal.
func (s *Session) RevealVotes(participantID string) Outcome {
	if !s.IsCreator(participantID) || s.CurrentRound == nil {
		return Ignored
	}
	return outcomeOf(s.CurrentRound.Reveal())
}

// StartRound replaces any current round with a fresh one. Only the creator may start rounds.
func (s *Session) StartRound(participantID, description string, now time.Time) Outcome {
	if !s.IsCreator(participantID) {
		return Ignored
	}
	s.CurrentRound = NewRound(description, now)
	return Applied
}

// Disconnect marks a participant as disconnected. A connectionID that is no longer the
// participant's current handle is stale and ignored.
func (s *Session) Disconnect(participantID, connectionID string) Outcome {
	p, ok := s.Participants[participantID]
	if !ok || !p.IsConnected() {
		return Ignored
	}
	if connectionID != "" && p.ConnectionID != connectionID {
		return Ignored
	}

	p.Disconnect()
	return Applied
}

// Remove permanently drops a participant along with any vote they cast
func (s *Session) Remove(participantID string) Removal {
	if _, ok := s.Participants[participantID]; !ok {
		return Removal{}
	}

	delete(s.Participants, participantID)
	r := Removal{
		Removed:     true,
		VoteDropped: s.CurrentRound.RemoveVote(participantID),
	}

	if len(s.Participants) == 0 {
		r.Empty = true
		return r
	}

	if s.CreatorID == participantID {
		r.CreatorChanged = s.promoteCreator()
	}

	return r
}

// promoteCreator hands the creator privilege to the earliest-joined connected participant.
// When nobody is connected the stale creator ID is kept until the next join.
func (s *Session) promoteCreator() bool {
	var earliest *Participant
	for _, p := range s.Participants {
		if !p.IsConnected() {
			continue
		}
		if earliest == nil || p.joinedBefore(earliest) {
			earliest = p
		}
	}

	if earliest == nil {
		return false
	}
	s.CreatorID = earliest.ID
	return true
}

// IsCreator checks if the given participant currently holds the creator privilege
func (s *Session) IsCreator(participantID string) bool {
	return s.CreatorID == participantID
}

// GetParticipant returns a participant by ID
func (s *Session) GetParticipant(participantID string) (*Participant, error) {
	p, ok := s.Participants[participantID]
	if !ok {
		return nil, ErrParticipantNotFound
	}
	return p, nil
}

// GetConnectedCount returns the number of connected participants
func (s *Session) GetConnectedCount() int {
	count := 0
	for _, p := range s.Participants {
		if p.IsConnected() {
			count++
		}
	}
	return count
}

// OrderedParticipants returns the roster in join order
func (s *Session) OrderedParticipants() []*Participant {
	ordered := make([]*Participant, 0, len(s.Participants))
	for _, p := range s.Participants {
		ordered = append(ordered, p)
	}
	slices.SortFunc(ordered, func(a, b *Participant) int {
		if a.joinedBefore(b) {
			return -1
		}
		if b.joinedBefore(a) {
			return 1
		}
		return 0
	})
	return ordered
}
