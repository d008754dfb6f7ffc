package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// StrategistMethods defines the methods needed to generate the candidate slate.
type StrategistMethods interface {
	Generate(ctx context.Context, in *models.StrategistInput) (*models.StrategistResult, error)
}

// StrategistNode generates tiered candidate suggestions.
type StrategistNode struct {
	*BaseNode
	strategist StrategistMethods
}

// NewStrategistNode creates a new strategist node.
func NewStrategistNode(strategist StrategistMethods, logger *zap.Logger) *StrategistNode {
	return &StrategistNode{
		BaseNode:   NewBaseNode(models.StageStrategist, logger),
		strategist: strategist,
	}
}

// Execute runs the strategist stage.
func (n *StrategistNode) Execute(ctx context.Context, run *Run) error {
	if err := n.requireInput(run.Similarity != nil, "the similarity report"); err != nil {
		return err
	}

	n.Logger().Info("Starting strategy generation",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("competitors", len(run.Request.Competitors)))

	result, err := n.strategist.Generate(ctx, &models.StrategistInput{
		Store:       run.Request.Store,
		Profile:     run.StoreProfile(),
		Analysis:    run.Analysis,
		Digest:      run.Digest,
		Similarity:  run.Similarity,
		Knowledge:   run.Knowledge,
		Competitors: run.Request.Competitors,
	})
	if err != nil {
		return fmt.Errorf("generate suggestions: %w", err)
	}
	if len(result.Suggestions) == 0 {
		return fmt.Errorf("strategist produced no valid suggestions (%d dropped)", len(result.Dropped))
	}
	run.Candidates = result

	n.Logger().Info("Strategy generation complete",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("candidates", len(result.Suggestions)),
		zap.Int("dropped", len(result.Dropped)))
	return nil
}
