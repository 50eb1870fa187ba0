package domain

import (
	"math"
	"slices"
)

// VoteValues are the estimation points offered to participants.
// The engine itself stores any numeric value; membership is checked at the boundary.
var VoteValues = []float64{1, 2, 3, 5, 8, 13, 20, 40, 100}

// IsAllowedVote reports whether v is one of VoteValues
func IsAllowedVote(v float64) bool {
	return slices.Contains(VoteValues, v)
}

// VoteStats aggregates the votes of a revealed round
type VoteStats struct {
	Average float64 `json:"average"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// ComputeStats returns nil when no votes were cast
func ComputeStats(votes map[string]float64) *VoteStats {
	if len(votes) == 0 {
		return nil
	}

	stats := &VoteStats{Min: math.Inf(1), Max: math.Inf(-1)}
	mean := 0.0
	n := 0.0
	for _, v := range votes {
		// Dividing before subtracting keeps the running mean finite for any finite votes.
		n++
		mean += v/n - mean/n
		stats.Min = math.Min(stats.Min, v)
		stats.Max = math.Max(stats.Max, v)
	}
	stats.Average = roundTenth(mean)

	return stats
}

// roundTenth rounds to one decimal, halves toward +Inf
func roundTenth(x float64) float64 {
	// Beyond this magnitude a float64 carries no fractional digit, and x*10 could overflow.
	if math.Abs(x) >= 1<<52 {
		return x
	}
	return math.Floor(x*10+0.5) / 10
}

// ValidateVote checks a vote against VoteValues when strict is set
func ValidateVote(v float64, strict bool) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return ErrVoteNotAllowed
	}
	if strict && !IsAllowedVote(v) {
		return ErrVoteNotAllowed
	}
	return nil
}
