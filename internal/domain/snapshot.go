package domain

import "time"

// Snapshot is the externally visible state of a session.
// It is identical for every recipient, so vote values stay hidden until reveal.
type Snapshot struct {
	SessionID    string            `json:"sessionId"`
	CreatorID    string            `json:"creatorId"`
	Participants []ParticipantView `json:"participants"`
	Round        *RoundView        `json:"round"`
}

// ParticipantView is the public view of a roster entry
type ParticipantView struct {
	ID        string           `json:"participantId"`
	Name      string           `json:"name"`
	Role      Role             `json:"role"`
	Status    ConnectionStatus `json:"status"`
	JoinedAt  time.Time        `json:"joinedAt"`
	JoinOrder int              `json:"joinOrder"`
}

// RoundView is the public view of the current round
type RoundView struct {
	Description   string        `json:"description"`
	Revealed      bool          `json:"revealed"`
	StartedAt     time.Time     `json:"startedAt"`
	VoterStatuses []VoterStatus `json:"voterStatuses"`
	Stats         *VoteStats    `json:"stats"`
}

// VoterStatus tells whether a developer voted; Vote is only set once the round is revealed
type VoterStatus struct {
	ID       string   `json:"participantId"`
	Name     string   `json:"name"`
	HasVoted bool     `json:"hasVoted"`
	Vote     *float64 `json:"vote"`
}

// Snapshot projects the session into its public view
func (s *Session) Snapshot() Snapshot {
	ordered := s.OrderedParticipants()

	participants := make([]ParticipantView, 0, len(ordered))
	for i, p := range ordered {
		participants = append(participants, ParticipantView{
			ID:        p.ID,
			Name:      p.Name,
			Role:      p.Role,
			Status:    p.Status,
			JoinedAt:  p.JoinedAt,
			JoinOrder: i + 1,
		})
	}

	return Snapshot{
		SessionID:    s.ID,
		CreatorID:    s.CreatorID,
		Participants: participants,
		Round:        projectRound(s.CurrentRound, ordered),
	}
}

func projectRound(r *Round, ordered []*Participant) *RoundView {
	if r == nil {
		return nil
	}

	view := &RoundView{
		Description:   r.Description,
		Revealed:      r.Revealed,
		StartedAt:     r.StartedAt,
		VoterStatuses: make([]VoterStatus, 0, len(ordered)),
	}

	for _, p := range ordered {
		if !p.Role.CanVote() {
			continue
		}

		status := VoterStatus{
			ID:       p.ID,
			Name:     p.Name,
			HasVoted: r.HasVoted(p.ID),
		}
		if r.Revealed && status.HasVoted {
			v := r.Votes[p.ID]
			status.Vote = &v
		}
		view.VoterStatuses = append(view.VoterStatuses, status)
	}

	if r.Revealed {
		view.Stats = ComputeStats(r.Votes)
	}

	return view
}
