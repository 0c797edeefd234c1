package dataservice

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"election-results-api/internal/models"
	"election-results-api/internal/realtime"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrElectionNotFound  = errors.New("election not found")
	ErrElectionClosed    = errors.New("election is not accepting votes")
	ErrCandidateNotFound = errors.New("candidate not found in election")
	ErrDuplicateVote     = errors.New("voter has already voted in this election")
)

// Service is the authoritative source of election aggregates. Reads join the
// raw rows into derived views; mutations publish a change event on the hub so
// cached readers can invalidate.
type Service struct {
	db  *gorm.DB
	hub *realtime.Hub
}

// New constructs a Service. hub may be nil (no events are published then),
// which keeps read-only tests simple.
func New(db *gorm.DB, hub *realtime.Hub) *Service {
	return &Service{db: db, hub: hub}
}

// tallyRow is the per-candidate vote tally produced by the aggregation query.
type tallyRow struct {
	ElectionID    string
	CandidateID   string
	CandidateName string
	Count         int64
}

// ListElections returns all elections with their derived vote/candidate
// counts and leading candidate, newest start date first. The leading
// candidate is computed from the same tally the counts come from; it is
// never a separate network round trip.
func (s *Service) ListElections(ctx context.Context) ([]models.ElectionSummary, error) {
	var elections []models.Election
	if err := s.db.WithContext(ctx).Order("start_date DESC").Find(&elections).Error; err != nil {
		return nil, fmt.Errorf("list elections: %w", err)
	}

	var candidateCounts []struct {
		ElectionID string
		Count      int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Select("election_id, COUNT(*) AS count").
		Group("election_id").
		Scan(&candidateCounts).Error
	if err != nil {
		return nil, fmt.Errorf("count candidates: %w", err)
	}

	tallies, err := s.voteTallies(ctx, "")
	if err != nil {
		return nil, err
	}

	candidatesByElection := make(map[string]int64, len(candidateCounts))
	for _, c := range candidateCounts {
		candidatesByElection[c.ElectionID] = c.Count
	}
	votesByElection := make(map[string]int64)
	leaderByElection := make(map[string]tallyRow)
	for _, row := range tallies {
		votesByElection[row.ElectionID] += row.Count
		lead, ok := leaderByElection[row.ElectionID]
		if !ok || row.Count > lead.Count || (row.Count == lead.Count && row.CandidateName < lead.CandidateName) {
			leaderByElection[row.ElectionID] = row
		}
	}

	summaries := make([]models.ElectionSummary, 0, len(elections))
	for _, e := range elections {
		summary := models.ElectionSummary{
			ID:              e.ID,
			Title:           e.Title,
			Description:     e.Description,
			StartDate:       e.StartDate,
			EndDate:         e.EndDate,
			IsActive:        e.IsActive,
			TotalVotes:      votesByElection[e.ID],
			TotalCandidates: candidatesByElection[e.ID],
		}
		if lead, ok := leaderByElection[e.ID]; ok {
			summary.LeadingCandidateName = lead.CandidateName
			summary.LeadingVoteCount = lead.Count
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

// ElectionResults returns the ranked candidate tallies of one election,
// highest vote count first (ties broken by name). Candidates without votes
// are included with a zero count. Percentages are rounded to two decimals and
// therefore may not sum to exactly 100.
func (s *Service) ElectionResults(ctx context.Context, electionID string) ([]models.CandidateResult, error) {
	var election models.Election
	if err := s.db.WithContext(ctx).Where("id = ?", electionID).Take(&election).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrElectionNotFound
		}
		return nil, fmt.Errorf("load election: %w", err)
	}

	var candidates []models.Candidate
	if err := s.db.WithContext(ctx).Where("election_id = ?", electionID).Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	tallies, err := s.voteTallies(ctx, electionID)
	if err != nil {
		return nil, err
	}
	countByCandidate := make(map[string]int64, len(tallies))
	var total int64
	for _, row := range tallies {
		countByCandidate[row.CandidateID] = row.Count
		total += row.Count
	}

	results := make([]models.CandidateResult, 0, len(candidates))
	for _, c := range candidates {
		count := countByCandidate[c.ID]
		var pct float64
		if total > 0 {
			pct = math.Round(float64(count)/float64(total)*10000) / 100
		}
		results = append(results, models.CandidateResult{
			CandidateID:    c.ID,
			CandidateName:  c.Name,
			Department:     c.Department,
			Course:         c.Course,
			YearOfStudy:    c.YearOfStudy,
			ImageURL:       c.ImageURL,
			VoteCount:      count,
			VotePercentage: pct,
		})
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].VoteCount != results[j].VoteCount {
			return results[i].VoteCount > results[j].VoteCount
		}
		return results[i].CandidateName < results[j].CandidateName
	})
	return results, nil
}

func (s *Service) voteTallies(ctx context.Context, electionID string) ([]tallyRow, error) {
	q := s.db.WithContext(ctx).
		Model(&models.Vote{}).
		Select("votes.election_id, votes.candidate_id, candidates.name AS candidate_name, COUNT(*) AS count").
		Joins("JOIN candidates ON candidates.id = votes.candidate_id").
		Group("votes.election_id, votes.candidate_id, candidates.name")
	if electionID != "" {
		q = q.Where("votes.election_id = ?", electionID)
	}
	var rows []tallyRow
	if err := q.Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	return rows, nil
}

// CastVote records a vote for a candidate in an active election and publishes
// a vote-insert event for that election. A voter may vote at most once per
// election.
func (s *Service) CastVote(ctx context.Context, electionID, candidateID, voterID string) (*models.Vote, error) {
	vote := models.Vote{
		ID:          uuid.NewString(),
		ElectionID:  electionID,
		CandidateID: candidateID,
		VoterID:     voterID,
		CastAt:      time.Now(),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var election models.Election
		if err := tx.Where("id = ?", electionID).Take(&election).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrElectionNotFound
			}
			return fmt.Errorf("load election: %w", err)
		}
		if !election.IsActive {
			return ErrElectionClosed
		}

		var candidateCount int64
		if err := tx.Model(&models.Candidate{}).
			Where("id = ? AND election_id = ?", candidateID, electionID).
			Count(&candidateCount).Error; err != nil {
			return fmt.Errorf("check candidate: %w", err)
		}
		if candidateCount == 0 {
			return ErrCandidateNotFound
		}

		var existing int64
		if err := tx.Model(&models.Vote{}).
			Where("election_id = ? AND voter_id = ?", electionID, voterID).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("check duplicate vote: %w", err)
		}
		if existing > 0 {
			return ErrDuplicateVote
		}

		if err := tx.Create(&vote).Error; err != nil {
			return fmt.Errorf("insert vote: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.Event{Table: "votes", ElectionID: electionID, Op: realtime.OpInsert})
	return &vote, nil
}

// NewCandidate describes a candidate on election creation.
type NewCandidate struct {
	Name        string
	Department  string
	Course      string
	YearOfStudy int
	ImageURL    string
}

// NewElection describes an election to create.
type NewElection struct {
	Title       string
	Description string
	StartDate   time.Time
	EndDate     time.Time
	Candidates  []NewCandidate
}

// CreateElection inserts an election with its candidates and publishes an
// elections change event. The election is active iff the current time falls
// inside its voting window.
func (s *Service) CreateElection(ctx context.Context, in NewElection) (*models.Election, error) {
	now := time.Now()
	election := models.Election{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		IsActive:    !now.Before(in.StartDate) && now.Before(in.EndDate),
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&election).Error; err != nil {
			return fmt.Errorf("insert election: %w", err)
		}
		for _, c := range in.Candidates {
			candidate := models.Candidate{
				ID:          uuid.NewString(),
				ElectionID:  election.ID,
				Name:        c.Name,
				Department:  c.Department,
				Course:      c.Course,
				YearOfStudy: c.YearOfStudy,
				ImageURL:    c.ImageURL,
			}
			if err := tx.Create(&candidate).Error; err != nil {
				return fmt.Errorf("insert candidate: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(realtime.Event{Table: "elections", Op: realtime.OpInsert})
	return &election, nil
}

// EndElection closes an election and publishes an elections change event.
func (s *Service) EndElection(ctx context.Context, electionID string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Election{}).
		Where("id = ?", electionID).
		Updates(map[string]any{"is_active": false, "end_date": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("end election: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrElectionNotFound
	}

	s.publish(realtime.Event{Table: "elections", ElectionID: electionID, Op: realtime.OpUpdate})
	return nil
}

func (s *Service) publish(ev realtime.Event) {
	if s.hub != nil {
		s.hub.Publish(ev)
	}
}
