package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/profile"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
)

// profileDraft is the part of the model answer the synthesizer keeps. The
// date and the event list always come from the calendar.
type profileDraft struct {
	Profile models.StoreProfile `json:"perfil_loja"`
	Context struct {
		InitialObservations []string `json:"observacoes_iniciais"`
	} `json:"contexto_analise"`
}

var profileSkipKeys = []string{"porte", "maturidade_digital"}

// profileSynthesizer implements dag.ProfileSynthesisMethods.
type profileSynthesizer struct {
	renderer PromptRenderer
	caller   *stageCaller
	now      func() time.Time
	logger   *zap.Logger
}

// NewProfileSynthesizer creates the profile synthesis stage.
func NewProfileSynthesizer(gen llm.TextGenerator, renderer PromptRenderer, settings StageSettings, logger *zap.Logger) ProfileSynthesizer {
	logger = logger.Named("profile-synthesizer")
	return &profileSynthesizer{
		renderer: renderer,
		caller:   newStageCaller(gen, settings, logger),
		now:      time.Now,
		logger:   logger,
	}
}

var _ dag.ProfileSynthesisMethods = (*profileSynthesizer)(nil)

// Synthesize drafts the profile with the model, then lets the threshold
// rules override whatever the model guessed for size and maturity.
func (s *profileSynthesizer) Synthesize(ctx context.Context, in *models.ProfileInput) (*models.ProfileResult, error) {
	input := *in
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	events := profile.UpcomingEvents(input.Date, profile.EventWindowDays)

	resp, err := callStage[profileDraft](ctx, s.caller, stageRequest{
		prompt:       s.renderer.Profile(&input, events),
		required:     []string{"perfil_loja", "contexto_analise"},
		skipLanguage: profileSkipKeys,
	})
	if err != nil {
		return nil, fmt.Errorf("profile synthesis: %w", err)
	}

	draft := models.ProfileResult{
		Profile: resp.Value.Profile,
		Context: models.AnalysisContext{InitialObservations: resp.Value.Context.InitialObservations},
	}
	modelSize, modelMaturity := draft.Profile.SizeTier, draft.Profile.DigitalMaturity
	result := profile.Finalize(draft, input)

	if modelSize != result.Profile.SizeTier || modelMaturity != result.Profile.DigitalMaturity {
		s.logger.Debug("Model tiers overridden by thresholds",
			zap.String("model_size", string(modelSize)),
			zap.String("size", string(result.Profile.SizeTier)),
			zap.String("model_maturity", string(modelMaturity)),
			zap.String("maturity", string(result.Profile.DigitalMaturity)))
	}
	if len(result.RejectedDifferentials) > 0 {
		s.logger.Debug("Unmeasurable differentiators dropped",
			zap.Strings("rejected", result.RejectedDifferentials))
	}
	return &result, nil
}
