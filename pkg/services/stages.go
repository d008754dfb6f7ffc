package services

import (
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/config"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

// Stages holds one service per pipeline stage.
type Stages struct {
	Profile    ProfileSynthesizer
	Collector  Collector
	Analyst    Analyst
	Similarity SimilarityEngine
	Strategist Strategist
	Critic     Critic
}

// NewStages wires every stage against the embedded theme registry and
// platform catalogue.
func NewStages(gen llm.TextGenerator, renderer PromptRenderer, cfg *config.Config, logger *zap.Logger) *Stages {
	registry := themes.Default()
	catalogue := platform.Default()
	checker := similarity.NewChecker(registry, cfg.Pipeline.TitleSimilarityThreshold)
	extraction := ExtractionSettings(cfg)
	creative := CreativeSettings(cfg)
	p := cfg.Pipeline

	return &Stages{
		Profile:    NewProfileSynthesizer(gen, renderer, extraction, logger),
		Collector:  NewCollector(gen, renderer, extraction, p.TitleSimilarityThreshold, logger),
		Analyst:    NewAnalyst(gen, renderer, extraction, logger),
		Similarity: NewSimilarityEngine(gen, renderer, extraction, registry, checker, logger),
		Strategist: NewStrategist(gen, renderer, creative, checker, catalogue,
			suggestions.SlateConfig{StrategicCount: p.StrategicCount, TacticalCount: p.TacticalCount},
			logger),
		Critic: NewCritic(gen, renderer, creative, registry, checker, catalogue,
			suggestions.VerifierConfig{TopPriorities: p.TopPriorities, MinActionSteps: p.MinActionSteps},
			suggestions.SelectionConfig{
				Ratio:        p.SelectionRatio,
				MaxAverage:   p.MaxQualityAverage,
				MinExternal:  p.MinExternalJustified,
				GoalCoverage: p.GoalCoverageRatio,
			},
			p.TargetQualityAverage,
			logger),
	}
}

// Nodes returns the stage nodes in execution order.
func (s *Stages) Nodes(logger *zap.Logger) []dag.NodeExecutor {
	logger = logger.Named("dag")
	return []dag.NodeExecutor{
		dag.NewProfileNode(s.Profile, logger),
		dag.NewCollectorNode(s.Collector, logger),
		dag.NewAnalystNode(s.Analyst, logger),
		dag.NewSimilarityNode(s.Similarity, logger),
		dag.NewStrategistNode(s.Strategist, logger),
		dag.NewCriticNode(s.Critic, logger),
	}
}
