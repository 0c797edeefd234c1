package livequery

import "election-results-api/internal/models"

// Statistics is the derived summary of an election-list snapshot. It is
// computed purely from the snapshot value; no additional I/O.
type Statistics struct {
	TotalElections  int   `json:"totalElections"`
	ActiveElections int   `json:"activeElections"`
	TotalVotes      int64 `json:"totalVotes"`
	TotalCandidates int64 `json:"totalCandidates"`
}

// SummaryStatistics folds an election list into its Statistics.
func SummaryStatistics(elections []models.ElectionSummary) Statistics {
	var stats Statistics
	stats.TotalElections = len(elections)
	for _, e := range elections {
		if e.IsActive {
			stats.ActiveElections++
		}
		stats.TotalVotes += e.TotalVotes
		stats.TotalCandidates += e.TotalCandidates
	}
	return stats
}

// ResultStatistics is the derived summary of one election's result rows.
// The leading candidate is computed from the rows already fetched, never
// from a separate query.
type ResultStatistics struct {
	TotalVotes           int64  `json:"totalVotes"`
	Candidates           int    `json:"candidates"`
	LeadingCandidateName string `json:"leadingCandidateName"`
	LeadingVoteCount     int64  `json:"leadingVoteCount"`
}

// ResultsStatistics folds a result set into its ResultStatistics. Ties on
// vote count resolve to the lexicographically smaller name so the summary is
// deterministic.
func ResultsStatistics(rows []models.CandidateResult) ResultStatistics {
	var stats ResultStatistics
	stats.Candidates = len(rows)
	for _, row := range rows {
		stats.TotalVotes += row.VoteCount
		if row.VoteCount > stats.LeadingVoteCount ||
			(row.VoteCount == stats.LeadingVoteCount && row.VoteCount > 0 &&
				(stats.LeadingCandidateName == "" || row.CandidateName < stats.LeadingCandidateName)) {
			stats.LeadingVoteCount = row.VoteCount
			stats.LeadingCandidateName = row.CandidateName
		}
	}
	return stats
}
