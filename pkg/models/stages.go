package models

import "time"

// ProfileInput feeds the Profile Synthesizer.
type ProfileInput struct {
	Store      StoreInput       `json:"store"`
	Benchmarks *NicheBenchmarks `json:"benchmarks,omitempty"`
	Date       time.Time        `json:"date"`
}

// CollectorInput feeds the Collector.
type CollectorInput struct {
	Store         StoreInput             `json:"store"`
	Profile       *StoreProfile          `json:"profile"`
	PriorAnalyses []PriorAnalysis        `json:"prior_analyses"`
	History       []HistoricalSuggestion `json:"history"`
	Knowledge     *KnowledgeBundle       `json:"knowledge"`
}

// CollectorDigest is the Collector's executive summary.
type CollectorDigest struct {
	HistoricalSummary  []string           `json:"historical_summary"`
	SuccessPatterns    []string           `json:"success_patterns"`
	SuggestionsToAvoid []string           `json:"suggestions_to_avoid"`
	RelevantBenchmarks map[string]float64 `json:"relevant_benchmarks"`
	IdentifiedGaps     []string           `json:"identified_gaps"`
	SpecialContext     string             `json:"special_context"`
}

// AnalystInput feeds the Analyst.
type AnalystInput struct {
	Niche      string           `json:"niche"`
	Period     PeriodData       `json:"period"`
	Benchmarks *NicheBenchmarks `json:"benchmarks,omitempty"`
	Profile    *StoreProfile    `json:"profile,omitempty"`
}

// AnalystResult is the Analyst output.
type AnalystResult struct {
	Metrics     AnalysisMetrics `json:"metrics"`
	Anomalies   []Anomaly       `json:"anomalies"`
	Patterns    []string        `json:"identified_patterns"`
	DataQuality DataQuality     `json:"data_quality"`
	// Priorities are problem keys ordered from most to least urgent.
	Priorities []string `json:"priorities"`
}

// SimilarityInput feeds the dedup stage. History must be processed in full.
type SimilarityInput struct {
	History []HistoricalSuggestion `json:"history"`
}

// StrategistInput feeds the Strategist.
type StrategistInput struct {
	Store       StoreInput          `json:"store"`
	Profile     *StoreProfile       `json:"profile"`
	Analysis    *AnalystResult      `json:"analysis"`
	Digest      *CollectorDigest    `json:"digest"`
	Similarity  *SimilarityReport   `json:"similarity"`
	Knowledge   *KnowledgeBundle    `json:"knowledge"`
	Competitors []CompetitorInsight `json:"competitors,omitempty"`
}

// StrategistResult is the validated candidate slate.
type StrategistResult struct {
	Suggestions []Suggestion       `json:"suggestions"`
	Dropped     []DroppedCandidate `json:"dropped,omitempty"`
}

// ByTier groups the slate by impact tier, preserving order.
func (r *StrategistResult) ByTier() map[ImpactTier][]Suggestion {
	out := make(map[ImpactTier][]Suggestion, len(AllTiers))
	for _, s := range r.Suggestions {
		out[s.Tier] = append(out[s.Tier], s)
	}
	return out
}

// CriticInput feeds the Critic.
type CriticInput struct {
	Store       StoreInput          `json:"store"`
	Profile     *StoreProfile       `json:"profile"`
	Analysis    *AnalystResult      `json:"analysis"`
	Digest      *CollectorDigest    `json:"digest"`
	Similarity  *SimilarityReport   `json:"similarity"`
	Candidates  []Suggestion        `json:"candidates"`
	Competitors []CompetitorInsight `json:"competitors,omitempty"`
}

// ExternalJustification reports the competitor-backed minimum.
type ExternalJustification struct {
	Required int  `json:"required"`
	Met      int  `json:"met"`
	Waived   bool `json:"waived"`
}

// GoalCoverage compares the curated slate's BRL results with the revenue gap.
type GoalCoverage struct {
	Gap     float64 `json:"gap"`
	Covered float64 `json:"covered"`
	Ratio   float64 `json:"ratio"`
	Met     bool    `json:"met"`
}

// CriticSummary is the aggregate review outcome persisted with the analysis.
type CriticSummary struct {
	AverageQuality float64               `json:"average_quality"`
	Rescored       bool                  `json:"rescored"`
	External       ExternalJustification `json:"external"`
	Rejected       []DroppedCandidate    `json:"rejected,omitempty"`
}

// CriticResult is the curated slate.
type CriticResult struct {
	Suggestions  []Suggestion  `json:"suggestions"`
	Summary      CriticSummary `json:"summary"`
	GoalCoverage *GoalCoverage `json:"goal_coverage,omitempty"`
}
