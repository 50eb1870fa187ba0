package domain

// RoundState represents where the current round of a session is
type RoundState string

const (
	RoundAbsent   RoundState = "absent"   // No round started yet
	RoundActive   RoundState = "active"   // Votes hidden, developers may vote
	RoundRevealed RoundState = "revealed" // Votes visible, round frozen
)

// String returns the string representation of the state
func (s RoundState) String() string {
	return string(s)
}

// CanTransitionTo checks if a transition from current state to target state is valid.
// Starting a round is always allowed and replaces whatever came before.
func (s RoundState) CanTransitionTo(target RoundState) bool {
	validTransitions := map[RoundState][]RoundState{
		RoundAbsent:   {RoundActive},
		RoundActive:   {RoundActive, RoundRevealed},
		RoundRevealed: {RoundActive},
	}

	allowed, ok := validTransitions[s]
	if !ok {
		return false
	}

	for _, state := range allowed {
		if state == target {
			return true
		}
	}
	return false
}
