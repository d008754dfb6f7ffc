package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// CriticMethods defines the methods needed to review and curate the slate.
type CriticMethods interface {
	Review(ctx context.Context, in *models.CriticInput) (*models.CriticResult, error)
}

// CriticNode verifies every candidate and keeps the best share per tier.
type CriticNode struct {
	*BaseNode
	critic CriticMethods
}

// NewCriticNode creates a new critic node.
func NewCriticNode(critic CriticMethods, logger *zap.Logger) *CriticNode {
	return &CriticNode{
		BaseNode: NewBaseNode(models.StageCritic, logger),
		critic:   critic,
	}
}

// Execute runs the critic stage.
func (n *CriticNode) Execute(ctx context.Context, run *Run) error {
	if err := n.requireInput(run.Candidates != nil, "the candidate slate"); err != nil {
		return err
	}

	n.Logger().Info("Starting critical review",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("candidates", len(run.Candidates.Suggestions)))

	result, err := n.critic.Review(ctx, &models.CriticInput{
		Store:       run.Request.Store,
		Profile:     run.StoreProfile(),
		Analysis:    run.Analysis,
		Digest:      run.Digest,
		Similarity:  run.Similarity,
		Candidates:  run.Candidates.Suggestions,
		Competitors: run.Request.Competitors,
	})
	if err != nil {
		return fmt.Errorf("review suggestions: %w", err)
	}
	run.Curated = result

	fields := []zap.Field{
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("kept", len(result.Suggestions)),
		zap.Int("rejected", len(result.Summary.Rejected)),
		zap.Float64("average_quality", result.Summary.AverageQuality),
	}
	if result.GoalCoverage != nil {
		fields = append(fields, zap.Float64("goal_coverage", result.GoalCoverage.Ratio))
	}
	n.Logger().Info("Critical review complete", fields...)
	return nil
}
