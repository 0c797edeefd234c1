package handlers

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"election-results-api/internal/dataservice"
	"election-results-api/internal/livequery"
	"election-results-api/internal/models"

	"github.com/gin-gonic/gin"
)

// CastVoteRequest represents the request payload for casting a vote
type CastVoteRequest struct {
	CandidateID string `json:"candidateId" binding:"required"`
	VoterID     string `json:"voterId" binding:"required"`
}

// CreateCandidateRequest represents one candidate in an election creation payload
type CreateCandidateRequest struct {
	Name        string `json:"name" binding:"required"`
	Department  string `json:"department"`
	Course      string `json:"course"`
	YearOfStudy int    `json:"yearOfStudy"`
	ImageURL    string `json:"imageUrl"`
}

// CreateElectionRequest represents the request payload for creating an election
type CreateElectionRequest struct {
	Title       string                   `json:"title" binding:"required"`
	Description string                   `json:"description"`
	StartDate   time.Time                `json:"startDate" binding:"required"`
	EndDate     time.Time                `json:"endDate" binding:"required"`
	Candidates  []CreateCandidateRequest `json:"candidates" binding:"required,dive"`
}

// ElectionHandler serves election reads through the live query cache and
// routes mutations to the data service. The read queries it holds are
// long-lived consumers: they stay subscribed to change events and keep the
// cache warm across requests.
type ElectionHandler struct {
	svc  *dataservice.Service
	live *livequery.Client

	mu        sync.Mutex
	elections *livequery.Query[[]models.ElectionSummary]
	results   map[string]*livequery.Query[[]models.CandidateResult]
}

// NewElectionHandler constructs an ElectionHandler.
func NewElectionHandler(svc *dataservice.Service, live *livequery.Client) *ElectionHandler {
	return &ElectionHandler{
		svc:     svc,
		live:    live,
		results: make(map[string]*livequery.Query[[]models.CandidateResult]),
	}
}

// Close detaches every query the handler holds.
func (h *ElectionHandler) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.elections != nil {
		h.elections.Close()
		h.elections = nil
	}
	for id, q := range h.results {
		q.Close()
		delete(h.results, id)
	}
}

func (h *ElectionHandler) electionsQuery(ctx context.Context) *livequery.Query[[]models.ElectionSummary] {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.elections == nil {
		h.elections = h.live.Elections(ctx)
	}
	return h.elections
}

func (h *ElectionHandler) resultsQuery(ctx context.Context, electionID string) *livequery.Query[[]models.CandidateResult] {
	h.mu.Lock()
	defer h.mu.Unlock()
	q, ok := h.results[electionID]
	if !ok {
		q = h.live.Results(ctx, electionID)
		h.results[electionID] = q
	}
	return q
}

// dropResultsQuery closes a results query that turned out to be for a
// nonexistent election. Caching it would keep a poller and a change
// subscription alive forever for any ID a client happens to request.
func (h *ElectionHandler) dropResultsQuery(electionID string, q *livequery.Query[[]models.CandidateResult]) {
	h.mu.Lock()
	if h.results[electionID] == q {
		delete(h.results, electionID)
	}
	h.mu.Unlock()
	q.Close()
}

/*
*
GetElections handles GET /api/elections
Returns the cached election list with derived statistics.
Optional query param: refresh=true to bypass the TTL and fetch live.
*/
func (h *ElectionHandler) GetElections(c *gin.Context) {
	ctx := c.Request.Context()
	q := h.electionsQuery(ctx)

	if c.Query("refresh") == "true" {
		// Explicit, user-triggered retry path; errors surface via the
		// snapshot below.
		_ = q.Refetch(ctx)
	}

	elections, err := q.Wait(ctx)
	if err != nil && len(elections) == 0 {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"elections":  elections,
		"statistics": livequery.SummaryStatistics(elections),
	}
	if err != nil {
		// Stale data is still served, but marked, so clients can show a
		// warning banner instead of presenting it as current.
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

/*
*
GetResults handles GET /api/elections/:id/results
Returns the cached ranked result rows for one election plus statistics
derived from them (total votes, leading candidate).
*/
func (h *ElectionHandler) GetResults(c *gin.Context) {
	ctx := c.Request.Context()
	electionID := c.Param("id")

	q := h.resultsQuery(ctx, electionID)
	if c.Query("refresh") == "true" {
		_ = q.Refetch(ctx)
	}

	results, err := q.Wait(ctx)
	if err != nil && len(results) == 0 {
		if errors.Is(err, dataservice.ErrElectionNotFound) {
			h.dropResultsQuery(electionID, q)
			c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	resp := gin.H{
		"results":    results,
		"statistics": livequery.ResultsStatistics(results),
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	c.JSON(http.StatusOK, resp)
}

/*
*
CastVote handles POST /api/elections/:id/votes
Records a vote; the resulting change event invalidates cached readers.
*/
func (h *ElectionHandler) CastVote(c *gin.Context) {
	electionID := c.Param("id")

	var req CastVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}

	vote, err := h.svc.CastVote(c.Request.Context(), electionID, req.CandidateID, req.VoterID)
	switch {
	case errors.Is(err, dataservice.ErrElectionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
	case errors.Is(err, dataservice.ErrElectionClosed):
		c.JSON(http.StatusForbidden, gin.H{"error": "Election is not accepting votes"})
	case errors.Is(err, dataservice.ErrCandidateNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Candidate does not belong to this election"})
	case errors.Is(err, dataservice.ErrDuplicateVote):
		c.JSON(http.StatusConflict, gin.H{"error": "Voter has already voted in this election"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to record vote"})
	default:
		c.JSON(http.StatusCreated, vote)
	}
}

/*
*
CreateElection handles POST /api/elections
*/
func (h *ElectionHandler) CreateElection(c *gin.Context) {
	var req CreateElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request payload: " + err.Error()})
		return
	}
	if !req.EndDate.After(req.StartDate) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "endDate must be after startDate"})
		return
	}

	in := dataservice.NewElection{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	}
	for _, cand := range req.Candidates {
		in.Candidates = append(in.Candidates, dataservice.NewCandidate{
			Name:        cand.Name,
			Department:  cand.Department,
			Course:      cand.Course,
			YearOfStudy: cand.YearOfStudy,
			ImageURL:    cand.ImageURL,
		})
	}

	election, err := h.svc.CreateElection(c.Request.Context(), in)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create election"})
		return
	}
	c.JSON(http.StatusCreated, election)
}

/*
*
EndElection handles POST /api/elections/:id/end
*/
func (h *ElectionHandler) EndElection(c *gin.Context) {
	err := h.svc.EndElection(c.Request.Context(), c.Param("id"))
	switch {
	case errors.Is(err, dataservice.ErrElectionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Election not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to end election"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ended"})
	}
}
