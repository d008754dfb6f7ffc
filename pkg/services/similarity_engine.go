package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

type similarityDraft struct {
	Zones             []models.ProhibitedZone                `json:"zones"`
	AllowedApproaches map[models.SuggestionCategory][]string `json:"allowed_approaches"`
}

// similarityEngine implements dag.SimilarityMethods.
type similarityEngine struct {
	renderer PromptRenderer
	caller   *stageCaller
	registry *themes.Registry
	checker  *similarity.Checker
	logger   *zap.Logger
}

// NewSimilarityEngine creates the dedup stage.
func NewSimilarityEngine(
	gen llm.TextGenerator,
	renderer PromptRenderer,
	settings StageSettings,
	registry *themes.Registry,
	checker *similarity.Checker,
	logger *zap.Logger,
) SimilarityEngine {
	logger = logger.Named("similarity")
	return &similarityEngine{
		renderer: renderer,
		caller:   newStageCaller(gen, settings, logger),
		registry: registry,
		checker:  checker,
		logger:   logger,
	}
}

var _ dag.SimilarityMethods = (*similarityEngine)(nil)

// Analyze maps every history item to a prohibited zone. The model proposes
// paraphrases and approaches; coverage, saturation and the minimum counts
// are guaranteed deterministically. An empty history needs no model call.
func (s *similarityEngine) Analyze(ctx context.Context, in *models.SimilarityInput) (*models.SimilarityReport, error) {
	saturation := similarity.ComputeSaturation(in.History, s.registry)
	if len(in.History) == 0 {
		return &models.SimilarityReport{
			Zones:             []models.ProhibitedZone{},
			AllowedApproaches: map[models.SuggestionCategory][]string{},
			Coverage:          similarity.Coverage(nil, nil),
			Saturation:        saturation,
		}, nil
	}

	resp, err := callStage[similarityDraft](ctx, s.caller, stageRequest{
		prompt:       s.renderer.Similarity(in, saturation),
		required:     []string{"zones", "allowed_approaches"},
		skipLanguage: []string{"suggestion_id", "solution_type", "keywords"},
	})
	if err != nil {
		return nil, fmt.Errorf("similarity: %w", err)
	}

	if got := len(resp.Value.Zones); got < len(in.History) {
		s.logger.Debug("Model skipped history items, completing zones",
			zap.Int("history", len(in.History)),
			zap.Int("model_zones", got))
	}
	zones := s.checker.CompleteZones(in.History, resp.Value.Zones)
	report := &models.SimilarityReport{
		Zones:             zones,
		AllowedApproaches: s.checker.AllowedApproaches(in.History, saturation, resp.Value.AllowedApproaches),
		Coverage:          similarity.Coverage(in.History, zones),
		Saturation:        saturation,
	}
	return report, nil
}
