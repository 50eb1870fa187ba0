package domain

import (
	"math"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeStats_Empty(t *testing.T) {
	assert.Nil(t, ComputeStats(nil))
	assert.Nil(t, ComputeStats(map[string]float64{}))
}

func TestComputeStats_RoundsToOneDecimal(t *testing.T) {
	stats := ComputeStats(map[string]float64{"a": 1, "b": 2, "c": 2})
	assert.Equal(t, 1.7, stats.Average)
	assert.Equal(t, 1.0, stats.Min)
	assert.Equal(t, 2.0, stats.Max)
}

func TestComputeStats_SingleVote(t *testing.T) {
	assert.Equal(t, &VoteStats{Average: 100, Min: 100, Max: 100}, ComputeStats(map[string]float64{"a": 100}))
}

func TestIsAllowedVote(t *testing.T) {
	assert.True(t, IsAllowedVote(13))
	assert.False(t, IsAllowedVote(4))
	assert.False(t, IsAllowedVote(0))
}

func TestComputeStats_HugeVotesStayFinite(t *testing.T) {
	stats := ComputeStats(map[string]float64{"a": 1e308, "b": 1e308})
	assert.Equal(t, &VoteStats{Average: 1e308, Min: 1e308, Max: 1e308}, stats)

	stats = ComputeStats(map[string]float64{"a": math.MaxFloat64, "b": -math.MaxFloat64})
	assert.False(t, math.IsInf(stats.Average, 0))
	assert.False(t, math.IsNaN(stats.Average))
}

func TestComputeStats_RevealedHugeVotesEncode(t *testing.T) {
	s := newTestSession(t, "bob")
	s.StartRound("alice", "", t0)
	require.Equal(t, Applied, s.CastVote("alice", 1e308))
	require.Equal(t, Applied, s.CastVote("bob", 1e308))
	require.Equal(t, Applied, s.RevealVotes("alice"))

	_, err := json.Marshal(NewEvent(EventSessionState, s.ID, s.Snapshot()))
	assert.NoError(t, err)
}

func TestComputeStats_HalvesRoundUp(t *testing.T) {
	assert.Equal(t, -0.2, ComputeStats(map[string]float64{"a": -0.25, "b": -0.25}).Average)
	assert.Equal(t, 0.3, ComputeStats(map[string]float64{"a": 0.25, "b": 0.25}).Average)
}

func TestValidateVote(t *testing.T) {
	assert.NoError(t, ValidateVote(4, false))
	assert.NoError(t, ValidateVote(13, true))
	assert.ErrorIs(t, ValidateVote(4, true), ErrVoteNotAllowed)
	assert.ErrorIs(t, ValidateVote(math.NaN(), false), ErrVoteNotAllowed)
	assert.ErrorIs(t, ValidateVote(math.Inf(1), false), ErrVoteNotAllowed)
}
