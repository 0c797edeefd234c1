package models

import (
	"time"

	"gorm.io/gorm"
)

// Election represents a single election in the system
type Election struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Title       string    `json:"title" gorm:"not null"`
	Description string    `json:"description"`
	StartDate   time.Time `json:"startDate" gorm:"column:start_date"`
	EndDate     time.Time `json:"endDate" gorm:"column:end_date"`
	IsActive    bool      `json:"isActive" gorm:"column:is_active;index"`
	gorm.Model
}

// TableName specifies the table name for Election Model
func (Election) TableName() string {
	return "elections"
}

// ElectionSummary is the aggregate view of an election served to consumers.
// It is rebuilt whole on every refresh and never mutated in place.
type ElectionSummary struct {
	ID                   string    `json:"id"`
	Title                string    `json:"title"`
	Description          string    `json:"description"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	IsActive             bool      `json:"isActive"`
	TotalVotes           int64     `json:"totalVotes"`
	TotalCandidates      int64     `json:"totalCandidates"`
	LeadingCandidateName string    `json:"leadingCandidateName"`
	LeadingVoteCount     int64     `json:"leadingVoteCount"`
}
