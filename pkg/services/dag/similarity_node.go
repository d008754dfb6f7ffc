package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// SimilarityMethods defines the methods needed to build prohibited zones.
type SimilarityMethods interface {
	Analyze(ctx context.Context, in *models.SimilarityInput) (*models.SimilarityReport, error)
}

// SimilarityNode maps every delivered suggestion to a prohibited zone and
// counts theme saturation.
type SimilarityNode struct {
	*BaseNode
	similarity SimilarityMethods
}

// NewSimilarityNode creates a new similarity node.
func NewSimilarityNode(similarity SimilarityMethods, logger *zap.Logger) *SimilarityNode {
	return &SimilarityNode{
		BaseNode:   NewBaseNode(models.StageSimilarity, logger),
		similarity: similarity,
	}
}

// Execute runs the similarity stage over the full history snapshot.
func (n *SimilarityNode) Execute(ctx context.Context, run *Run) error {
	if err := n.requireInput(run.Analysis != nil, "the analyst result"); err != nil {
		return err
	}

	n.Logger().Info("Starting similarity analysis",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("history", len(run.History)))

	report, err := n.similarity.Analyze(ctx, &models.SimilarityInput{History: run.History})
	if err != nil {
		return fmt.Errorf("analyze similarity: %w", err)
	}
	if report.Coverage.Processed != len(run.History) {
		return fmt.Errorf("similarity processed %d of %d history items", report.Coverage.Processed, len(run.History))
	}
	run.Similarity = report

	n.Logger().Info("Similarity analysis complete",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("zones", len(report.Zones)),
		zap.Strings("blocked_themes", report.BlockedThemes()))
	return nil
}
