package domain

import "time"

// Round represents one estimation cycle
type Round struct {
	Description string
	Revealed    bool
	Votes       map[string]float64
	StartedAt   time.Time
}

// NewRound creates an unrevealed round with no votes
func NewRound(description string, startedAt time.Time) *Round {
	return &Round{
		Description: description,
		Votes:       make(map[string]float64),
		StartedAt:   startedAt,
	}
}

// State returns the round state. A nil round is absent.
func (r *Round) State() RoundState {
	switch {
	case r == nil:
		return RoundAbsent
	case r.Revealed:
		return RoundRevealed
	default:
		return RoundActive
	}
}

// AcceptsVotes returns true while votes are still hidden
func (r *Round) AcceptsVotes() bool {
	return r.State() == RoundActive
}

// SetVote records or replaces a participant's vote
func (r *Round) SetVote(participantID string, value float64) bool {
	if !r.AcceptsVotes() {
		return false
	}
	r.Votes[participantID] = value
	return true
}

// RemoveVote deletes a participant's vote and reports whether one existed
func (r *Round) RemoveVote(participantID string) bool {
	if r == nil {
		return false
	}
	if _, ok := r.Votes[participantID]; !ok {
		return false
	}
	delete(r.Votes, participantID)
	return true
}

// HasVoted returns true if the participant cast a vote in this round
func (r *Round) HasVoted(participantID string) bool {
	_, ok := r.Votes[participantID]
	return ok
}

// Reveal flips the round to revealed. It never reverts.
func (r *Round) Reveal() bool {
	if !r.State().CanTransitionTo(RoundRevealed) {
		return false
	}
	r.Revealed = true
	return true
}
