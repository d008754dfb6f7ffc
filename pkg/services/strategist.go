package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/prompts"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
)

type strategistDraft struct {
	Suggestions []wireSuggestion `json:"suggestions"`
}

// strategistService implements dag.StrategistMethods.
type strategistService struct {
	renderer  PromptRenderer
	caller    *stageCaller
	checker   *similarity.Checker
	catalogue *platform.Catalogue
	slate     suggestions.SlateConfig
	logger    *zap.Logger
}

// NewStrategist creates the strategist stage.
func NewStrategist(
	gen llm.TextGenerator,
	renderer PromptRenderer,
	settings StageSettings,
	checker *similarity.Checker,
	catalogue *platform.Catalogue,
	slate suggestions.SlateConfig,
	logger *zap.Logger,
) Strategist {
	logger = logger.Named("strategist")
	return &strategistService{
		renderer:  renderer,
		caller:    newStageCaller(gen, settings, logger),
		checker:   checker,
		catalogue: catalogue,
		slate:     slate,
		logger:    logger,
	}
}

var _ dag.StrategistMethods = (*strategistService)(nil)

// Generate drafts the slate and validates it. When validation leaves a tier
// short, one refill round asks for the missing items only; a failed refill
// keeps the shorter slate.
func (s *strategistService) Generate(ctx context.Context, in *models.StrategistInput) (*models.StrategistResult, error) {
	if in.Analysis == nil || in.Similarity == nil {
		return nil, fmt.Errorf("strategist needs analysis and similarity: %w", apperrors.ErrStageNotReady)
	}

	facts := suggestions.BuildFacts(in.Analysis.Metrics, in.Store)
	plat := s.catalogue.Lookup(in.Store.Platform)
	validator := &suggestions.SlateValidator{
		Facts:    facts,
		Checker:  s.checker,
		Platform: plat,
		Zones:    in.Similarity.Zones,
		Config:   s.slate,
	}

	counts := make(map[models.ImpactTier]int, len(models.AllTiers))
	for _, tier := range models.AllTiers {
		counts[tier] = s.slate.Target(tier)
	}
	pc := &prompts.StrategistContext{
		Input:    in,
		Facts:    facts,
		Platform: plat.Summary(),
		Counts:   counts,
	}

	drafted, err := s.draft(ctx, pc)
	if err != nil {
		return nil, err
	}
	result := validator.Validate(drafted)

	short := validator.Short(result)
	if len(short) == 0 {
		return &result, nil
	}

	s.logger.Info("Slate short after validation, requesting refill",
		zap.Int("accepted", len(result.Suggestions)),
		zap.Int("dropped", len(result.Dropped)))
	pc.Counts = short
	pc.Accepted = result.Suggestions
	pc.Dropped = result.Dropped
	extra, err := s.draft(ctx, pc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("Refill round failed, keeping short slate", zap.Error(err))
		return &result, nil
	}

	// Refill drafts often restart numbering at s1.
	merged := append([]models.Suggestion(nil), result.Suggestions...)
	for i, e := range extra {
		e.ID = fmt.Sprintf("s%d", len(drafted)+i+1)
		merged = append(merged, e)
	}
	refilled := validator.Validate(merged)
	refilled.Dropped = append(append([]models.DroppedCandidate(nil), result.Dropped...), refilled.Dropped...)
	return &refilled, nil
}

func (s *strategistService) draft(ctx context.Context, pc *prompts.StrategistContext) ([]models.Suggestion, error) {
	resp, err := callStage[strategistDraft](ctx, s.caller, stageRequest{
		prompt:       s.renderer.Strategist(pc),
		required:     []string{"suggestions"},
		skipLanguage: suggestionSkipKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("strategist: %w", err)
	}
	return toModels(resp.Value.Suggestions), nil
}
