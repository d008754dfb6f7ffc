package models

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// SuggestionStatus is the end-user outcome recorded on a persisted suggestion.
type SuggestionStatus string

const (
	SuggestionStatusPending    SuggestionStatus = "pending"
	SuggestionStatusAccepted   SuggestionStatus = "accepted"
	SuggestionStatusRejected   SuggestionStatus = "rejected"
	SuggestionStatusInProgress SuggestionStatus = "in_progress"
	SuggestionStatusCompleted  SuggestionStatus = "completed"
)

// IsSuccess reports whether the store acted on the suggestion.
func (s SuggestionStatus) IsSuccess() bool {
	return s == SuggestionStatusAccepted || s == SuggestionStatusInProgress || s == SuggestionStatusCompleted
}

// HistoricalSuggestion is a suggestion delivered by an earlier analysis.
type HistoricalSuggestion struct {
	ID          uuid.UUID          `json:"id"`
	AnalysisID  uuid.UUID          `json:"analysis_id"`
	Category    SuggestionCategory `json:"category"`
	Tier        ImpactTier         `json:"tier,omitempty"`
	Title       string             `json:"title"`
	Description string             `json:"description"`
	Status      SuggestionStatus   `json:"status"`
	CreatedAt   time.Time          `json:"created_at"`
}

// Key identifies the item at position i of a history list. Items without an
// ID are keyed by position so they never collide.
func (h HistoricalSuggestion) Key(i int) string {
	if h.ID == uuid.Nil {
		return "hist-" + strconv.Itoa(i+1)
	}
	return h.ID.String()
}

// PriorAnalysis is the digest of an earlier completed analysis.
type PriorAnalysis struct {
	ID              uuid.UUID   `json:"id"`
	CompletedAt     time.Time   `json:"completed_at"`
	HealthScore     *int        `json:"health_score"`
	Classification  HealthClass `json:"classification,omitempty"`
	Summary         string      `json:"summary,omitempty"`
	SuggestionCount int         `json:"suggestion_count"`
}

// CompetitorInsight is externally sourced market data handed to the pipeline.
type CompetitorInsight struct {
	Name          string   `json:"name"`
	URL           string   `json:"url,omitempty"`
	AverageTicket *float64 `json:"average_ticket,omitempty"`
	Highlights    []string `json:"highlights"`
	Source        string   `json:"source,omitempty"`
}
