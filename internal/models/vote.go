package models

import (
	"time"

	"gorm.io/gorm"
)

// Vote represents a single cast vote. A voter may vote at most once per election.
type Vote struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	ElectionID  string    `json:"electionId" gorm:"column:election_id;index;not null;uniqueIndex:idx_votes_election_voter"`
	CandidateID string    `json:"candidateId" gorm:"column:candidate_id;index;not null"`
	VoterID     string    `json:"voterId" gorm:"column:voter_id;not null;uniqueIndex:idx_votes_election_voter"`
	CastAt      time.Time `json:"castAt" gorm:"column:cast_at"`
	gorm.Model
}

// TableName specifies the table name for Vote Model
func (Vote) TableName() string {
	return "votes"
}
