package models

import (
	"gorm.io/gorm"
)

// Candidate represents a candidate standing in one election
type Candidate struct {
	ID          string `json:"id" gorm:"primaryKey"`
	ElectionID  string `json:"electionId" gorm:"column:election_id;index;not null"`
	Name        string `json:"name" gorm:"not null"`
	Department  string `json:"department"`
	Course      string `json:"course"`
	YearOfStudy int    `json:"yearOfStudy" gorm:"column:year_of_study"`
	ImageURL    string `json:"imageUrl" gorm:"column:image_url"`
	gorm.Model
}

// TableName specifies the table name for Candidate Model
func (Candidate) TableName() string {
	return "candidates"
}

// CandidateResult is one ranked row of an election's result set.
// The sum of VoteCount over all rows equals the election's total vote count
// at the instant of the fetch. VotePercentage is rounded to two decimals and
// the percentages of a result set are not guaranteed to sum to exactly 100.
type CandidateResult struct {
	CandidateID    string  `json:"candidateId"`
	CandidateName  string  `json:"candidateName"`
	Department     string  `json:"department"`
	Course         string  `json:"course"`
	YearOfStudy    int     `json:"yearOfStudy"`
	ImageURL       string  `json:"imageUrl"`
	VoteCount      int64   `json:"voteCount"`
	VotePercentage float64 `json:"votePercentage"`
}
