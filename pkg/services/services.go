package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/prompts"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
)

// ProfileSynthesizer builds the store profile for one run.
type ProfileSynthesizer interface {
	dag.ProfileSynthesisMethods
}

// Collector digests history, prior analyses and retrieved knowledge.
type Collector interface {
	dag.CollectorMethods
}

// Analyst computes metrics, the health score and anomalies.
type Analyst interface {
	dag.AnalystMethods
}

// SimilarityEngine builds prohibited zones and theme saturation.
type SimilarityEngine interface {
	dag.SimilarityMethods
}

// Strategist drafts and validates the candidate slate.
type Strategist interface {
	dag.StrategistMethods
}

// Critic verifies and curates the candidate slate.
type Critic interface {
	dag.CriticMethods
}

// PromptRenderer renders the Portuguese prompt of each stage. Business
// rules never live behind it; every rendered answer is re-checked in code.
type PromptRenderer interface {
	Profile(in *models.ProfileInput, events []models.SeasonalEvent) prompts.Prompt
	Collector(in *models.CollectorInput) prompts.Prompt
	Analyst(in *models.AnalystInput, computed *models.AnalystResult) prompts.Prompt
	Similarity(in *models.SimilarityInput, saturation []models.ThemeSaturation) prompts.Prompt
	Strategist(c *prompts.StrategistContext) prompts.Prompt
	Critic(c *prompts.CriticContext) prompts.Prompt
}

var _ PromptRenderer = (*prompts.Renderer)(nil)

// KnowledgeSource retrieves benchmarks, strategy snippets and trends for a
// niche. It is read once per run.
type KnowledgeSource interface {
	Load(ctx context.Context, niche string) (*models.KnowledgeBundle, error)
}

// CreditRefunder restores the usage allowance consumed by a failed run.
// Billing lives outside this service; the pipeline only signals it.
type CreditRefunder interface {
	Refund(ctx context.Context, storeID, analysisID uuid.UUID, reason string) error
}

// NoopRefunder logs refunds without contacting a billing system.
type NoopRefunder struct {
	Logger *zap.Logger
}

// Refund implements CreditRefunder.
func (r NoopRefunder) Refund(_ context.Context, storeID, analysisID uuid.UUID, reason string) error {
	if r.Logger != nil {
		r.Logger.Info("Credit refund requested",
			zap.String("store_id", storeID.String()),
			zap.String("analysis_id", analysisID.String()),
			zap.String("reason", reason))
	}
	return nil
}

var _ CreditRefunder = NoopRefunder{}
