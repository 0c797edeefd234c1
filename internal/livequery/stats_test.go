package livequery

import (
	"testing"

	"election-results-api/internal/models"

	"github.com/stretchr/testify/require"
)

func TestSummaryStatistics(t *testing.T) {
	stats := SummaryStatistics([]models.ElectionSummary{
		{ID: "e-1", IsActive: true, TotalVotes: 120, TotalCandidates: 4},
		{ID: "e-2", IsActive: false, TotalVotes: 300, TotalCandidates: 6},
	})
	require.Equal(t, 2, stats.TotalElections)
	require.Equal(t, 1, stats.ActiveElections)
	require.Equal(t, int64(420), stats.TotalVotes)
	require.Equal(t, int64(10), stats.TotalCandidates)

	require.Equal(t, Statistics{}, SummaryStatistics(nil))
}

func TestResultsStatistics(t *testing.T) {
	stats := ResultsStatistics([]models.CandidateResult{
		{CandidateName: "Bea", VoteCount: 5},
		{CandidateName: "Ana", VoteCount: 9},
		{CandidateName: "Cal", VoteCount: 9},
	})
	require.Equal(t, int64(23), stats.TotalVotes)
	require.Equal(t, 3, stats.Candidates)
	require.Equal(t, "Ana", stats.LeadingCandidateName, "ties resolve to the smaller name")
	require.Equal(t, int64(9), stats.LeadingVoteCount)
}

func TestResultsStatistics_NoVotes(t *testing.T) {
	stats := ResultsStatistics([]models.CandidateResult{
		{CandidateName: "Ana", VoteCount: 0},
		{CandidateName: "Bea", VoteCount: 0},
	})
	require.Equal(t, int64(0), stats.TotalVotes)
	require.Empty(t, stats.LeadingCandidateName, "no leader is named until someone has votes")
}
