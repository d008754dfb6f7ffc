package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/jsonutil"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/platform"
	"github.com/ekaya-inc/growth-engine/pkg/prompts"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
	"github.com/ekaya-inc/growth-engine/pkg/similarity"
	"github.com/ekaya-inc/growth-engine/pkg/suggestions"
	"github.com/ekaya-inc/growth-engine/pkg/themes"
)

type criticDraft struct {
	Selected     []wireSuggestion `json:"selected"`
	Alternatives []struct {
		ReplacesID jsonutil.FlexibleString `json:"replaces_id"`
		Suggestion wireSuggestion          `json:"suggestion"`
	} `json:"alternatives"`
}

// criticService implements dag.CriticMethods.
type criticService struct {
	renderer  PromptRenderer
	caller    *stageCaller
	registry  *themes.Registry
	checker   *similarity.Checker
	catalogue *platform.Catalogue
	verify    suggestions.VerifierConfig
	selection suggestions.SelectionConfig
	// targetAverage is only shown to the model.
	targetAverage float64
	logger        *zap.Logger
}

// NewCritic creates the critic stage.
func NewCritic(
	gen llm.TextGenerator,
	renderer PromptRenderer,
	settings StageSettings,
	registry *themes.Registry,
	checker *similarity.Checker,
	catalogue *platform.Catalogue,
	verify suggestions.VerifierConfig,
	selection suggestions.SelectionConfig,
	targetAverage float64,
	logger *zap.Logger,
) Critic {
	logger = logger.Named("critic")
	return &criticService{
		renderer:      renderer,
		caller:        newStageCaller(gen, settings, logger),
		registry:      registry,
		checker:       checker,
		catalogue:     catalogue,
		verify:        verify,
		selection:     selection,
		targetAverage: targetAverage,
		logger:        logger,
	}
}

var _ dag.CriticMethods = (*criticService)(nil)

// Review lets the model pick and repair candidates, then runs every pick and
// alternative through the verification protocol. The model's choice is a
// preference order; the curator decides what survives.
func (s *criticService) Review(ctx context.Context, in *models.CriticInput) (*models.CriticResult, error) {
	if in.Analysis == nil || in.Similarity == nil {
		return nil, fmt.Errorf("critic needs analysis and similarity: %w", apperrors.ErrStageNotReady)
	}

	facts := suggestions.BuildFacts(in.Analysis.Metrics, in.Store)
	plat := s.catalogue.Lookup(in.Store.Platform)

	var gaps []string
	if in.Digest != nil {
		gaps = in.Digest.IdentifiedGaps
	}
	curator := &suggestions.Curator{
		Verifier: &suggestions.Verifier{
			Facts:       facts,
			Registry:    s.registry,
			Saturation:  in.Similarity.Saturation,
			Platform:    plat,
			Priorities:  in.Analysis.Priorities,
			Gaps:        gaps,
			Competitors: in.Competitors,
			Config:      s.verify,
		},
		Checker: s.checker,
		Zones:   in.Similarity.Zones,
		Config:  s.selection,
	}

	targets := make(map[models.ImpactTier]int, len(models.AllTiers))
	for tier, items := range (&models.StrategistResult{Suggestions: in.Candidates}).ByTier() {
		targets[tier] = suggestions.TargetCount(len(items), s.selection.Ratio)
	}
	var blocked []string
	for _, key := range in.Similarity.BlockedThemes() {
		blocked = append(blocked, s.registry.Label(key))
	}

	resp, err := callStage[criticDraft](ctx, s.caller, stageRequest{
		prompt: s.renderer.Critic(&prompts.CriticContext{
			Input:         in,
			Facts:         facts,
			Platform:      plat.Summary(),
			Targets:       targets,
			Blocked:       blocked,
			TargetAverage: s.targetAverage,
			MaxAverage:    s.selection.MaxAverage,
			GoalCoverage:  s.selection.GoalCoverage,
		}),
		required:     []string{"selected"},
		skipLanguage: suggestionSkipKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("critic: %w", err)
	}

	proposal := suggestions.Proposal{Picks: toModels(resp.Value.Selected)}
	for _, alt := range resp.Value.Alternatives {
		proposal.Alternatives = append(proposal.Alternatives, suggestions.Alternative{
			ReplacesID: string(alt.ReplacesID),
			Suggestion: alt.Suggestion.toModel(),
		})
	}
	curation := curator.Curate(in.Candidates, proposal)

	if len(curation.Suggestions) == 0 {
		s.logger.Warn("No candidate survived review",
			zap.Int("candidates", len(in.Candidates)),
			zap.Int("rejected", len(curation.Rejected)))
	}
	if curation.GoalCoverage != nil && !curation.GoalCoverage.Met {
		s.logger.Info("Curated slate does not cover the revenue goal",
			zap.Float64("gap", curation.GoalCoverage.Gap),
			zap.Float64("covered", curation.GoalCoverage.Covered))
	}

	return &models.CriticResult{
		Suggestions: curation.Suggestions,
		Summary: models.CriticSummary{
			AverageQuality: curation.AverageQuality,
			Rescored:       curation.Rescored,
			External:       curation.External,
			Rejected:       curation.Rejected,
		},
		GoalCoverage: curation.GoalCoverage,
	}, nil
}
