package models

import (
	"time"

	"github.com/google/uuid"
)

// ============================================================================
// Analysis Status
// ============================================================================

// AnalysisStatus represents the execution status of an analysis run.
type AnalysisStatus string

const (
	AnalysisStatusPending   AnalysisStatus = "pending"
	AnalysisStatusRunning   AnalysisStatus = "running"
	AnalysisStatusCompleted AnalysisStatus = "completed"
	AnalysisStatusFailed    AnalysisStatus = "failed"
)

// ValidAnalysisStatuses contains all valid analysis status values.
var ValidAnalysisStatuses = []AnalysisStatus{
	AnalysisStatusPending,
	AnalysisStatusRunning,
	AnalysisStatusCompleted,
	AnalysisStatusFailed,
}

// IsValidAnalysisStatus checks if the given status is valid.
func IsValidAnalysisStatus(s AnalysisStatus) bool {
	for _, v := range ValidAnalysisStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsTerminal returns true if the run finished, successfully or not.
func (s AnalysisStatus) IsTerminal() bool {
	return s == AnalysisStatusCompleted || s == AnalysisStatusFailed
}

// ============================================================================
// Stage Names
// ============================================================================

// StageName identifies a pipeline stage.
type StageName string

const (
	StageProfile    StageName = "profile_synthesis"
	StageCollector  StageName = "collector"
	StageAnalyst    StageName = "analyst"
	StageSimilarity StageName = "similarity"
	StageStrategist StageName = "strategist"
	StageCritic     StageName = "critic"
)

// StageOrder defines the execution order for each stage.
var StageOrder = map[StageName]int{
	StageProfile:    1,
	StageCollector:  2,
	StageAnalyst:    3,
	StageSimilarity: 4,
	StageStrategist: 5,
	StageCritic:     6,
}

// AllStages returns all stage names in execution order.
func AllStages() []StageName {
	return []StageName{
		StageProfile,
		StageCollector,
		StageAnalyst,
		StageSimilarity,
		StageStrategist,
		StageCritic,
	}
}

// StageRun records one stage execution within an analysis.
type StageRun struct {
	Name         StageName  `json:"name"`
	Status       string     `json:"status"`
	Attempts     int        `json:"attempts"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
	DurationMs   *int       `json:"duration_ms,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
}

// ============================================================================
// Analysis Model
// ============================================================================

// Analysis is one pipeline run for a store. Stage outputs are only exposed
// once the run completed.
type Analysis struct {
	ID      uuid.UUID `json:"id"`
	StoreID uuid.UUID `json:"store_id"`

	// Execution state
	Status       AnalysisStatus `json:"status"`
	CurrentStage *StageName     `json:"current_stage,omitempty"`
	Stages       []StageRun     `json:"stages,omitempty"`
	ErrorMessage *string        `json:"error_message,omitempty"`

	// Results
	Profile      *ProfileResult    `json:"profile,omitempty"`
	Digest       *CollectorDigest  `json:"digest,omitempty"`
	Metrics      *AnalystResult    `json:"metrics,omitempty"`
	Similarity   *SimilarityReport `json:"similarity,omitempty"`
	Suggestions  []Suggestion      `json:"suggestions,omitempty"`
	Quality      *CriticSummary    `json:"quality,omitempty"`
	GoalCoverage *GoalCoverage     `json:"goal_coverage,omitempty"`

	// Timing
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsRunning returns true if the analysis is currently running.
func (a *Analysis) IsRunning() bool {
	return a.Status == AnalysisStatusRunning
}

// HasFailed returns true if the analysis failed.
func (a *Analysis) HasFailed() bool {
	return a.Status == AnalysisStatusFailed
}

// AnalysisRequest is the pre-aggregated input bundle for one run.
type AnalysisRequest struct {
	StoreID       uuid.UUID           `json:"store_id"`
	Store         StoreInput          `json:"store"`
	Period        PeriodData          `json:"period"`
	PriorAnalyses []PriorAnalysis     `json:"prior_analyses,omitempty"`
	Competitors   []CompetitorInsight `json:"competitors,omitempty"`
	// Date overrides the analysis date; zero means now.
	Date time.Time `json:"date,omitempty"`
}
