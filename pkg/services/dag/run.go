package dag

import (
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// Run carries one analysis through the stages. Each node reads what its
// predecessors stored and adds its own output. History, Prior and Knowledge
// are loaded once before the first stage and never modified.
type Run struct {
	AnalysisID uuid.UUID
	StoreID    uuid.UUID
	Request    *models.AnalysisRequest
	Date       time.Time

	History   []models.HistoricalSuggestion
	Prior     []models.PriorAnalysis
	Knowledge *models.KnowledgeBundle

	Profile    *models.ProfileResult
	Digest     *models.CollectorDigest
	Analysis   *models.AnalystResult
	Similarity *models.SimilarityReport
	Candidates *models.StrategistResult
	Curated    *models.CriticResult
}

// Benchmarks returns the retrieved niche benchmarks, or nil.
func (r *Run) Benchmarks() *models.NicheBenchmarks {
	if r.Knowledge == nil {
		return nil
	}
	return r.Knowledge.Benchmarks
}

// StoreProfile returns the synthesized profile, or nil before the first stage.
func (r *Run) StoreProfile() *models.StoreProfile {
	if r.Profile == nil {
		return nil
	}
	return &r.Profile.Profile
}
