package testutil

import (
	"time"

	"election-results-api/internal/models"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewInMemoryDB creates an in-memory SQLite DB and runs migrations.
func NewInMemoryDB() (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.Election{}, &models.Candidate{}, &models.Vote{}); err != nil {
		return nil, err
	}
	return db, nil
}

// SeedElection inserts an election with the given candidates and returns it.
// The voting window is centered on now; active controls the IsActive flag.
func SeedElection(db *gorm.DB, title string, active bool, candidateNames ...string) (models.Election, []models.Candidate, error) {
	now := time.Now()
	election := models.Election{
		ID:        uuid.NewString(),
		Title:     title,
		StartDate: now.Add(-24 * time.Hour),
		EndDate:   now.Add(24 * time.Hour),
		IsActive:  active,
	}
	if !active {
		election.EndDate = now.Add(-time.Hour)
	}
	if err := db.Create(&election).Error; err != nil {
		return models.Election{}, nil, err
	}

	candidates := make([]models.Candidate, 0, len(candidateNames))
	for _, name := range candidateNames {
		c := models.Candidate{
			ID:         uuid.NewString(),
			ElectionID: election.ID,
			Name:       name,
			Department: "Engineering",
			Course:     "BSc",
		}
		if err := db.Create(&c).Error; err != nil {
			return models.Election{}, nil, err
		}
		candidates = append(candidates, c)
	}
	return election, candidates, nil
}

// SeedVotes casts n votes for a candidate using synthetic voter IDs.
func SeedVotes(db *gorm.DB, electionID, candidateID string, n int) error {
	for i := 0; i < n; i++ {
		vote := models.Vote{
			ID:          uuid.NewString(),
			ElectionID:  electionID,
			CandidateID: candidateID,
			VoterID:     uuid.NewString(),
			CastAt:      time.Now(),
		}
		if err := db.Create(&vote).Error; err != nil {
			return err
		}
	}
	return nil
}
