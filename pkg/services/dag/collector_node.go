package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// CollectorMethods defines the methods needed to digest history and knowledge.
type CollectorMethods interface {
	Collect(ctx context.Context, in *models.CollectorInput) (*models.CollectorDigest, error)
}

// CollectorNode summarizes prior analyses, suggestion history and retrieved
// knowledge into the digest later prompts quote.
type CollectorNode struct {
	*BaseNode
	collector CollectorMethods
}

// NewCollectorNode creates a new collector node.
func NewCollectorNode(collector CollectorMethods, logger *zap.Logger) *CollectorNode {
	return &CollectorNode{
		BaseNode:  NewBaseNode(models.StageCollector, logger),
		collector: collector,
	}
}

// Execute runs the collector stage.
func (n *CollectorNode) Execute(ctx context.Context, run *Run) error {
	if err := n.requireInput(run.Profile != nil, "the store profile"); err != nil {
		return err
	}

	n.Logger().Info("Starting collection",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("prior_analyses", len(run.Prior)),
		zap.Int("history", len(run.History)))

	digest, err := n.collector.Collect(ctx, &models.CollectorInput{
		Store:         run.Request.Store,
		Profile:       run.StoreProfile(),
		PriorAnalyses: run.Prior,
		History:       run.History,
		Knowledge:     run.Knowledge,
	})
	if err != nil {
		return fmt.Errorf("collect context: %w", err)
	}
	run.Digest = digest

	n.Logger().Info("Collection complete",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("to_avoid", len(digest.SuggestionsToAvoid)),
		zap.Int("benchmarks", len(digest.RelevantBenchmarks)))
	return nil
}
