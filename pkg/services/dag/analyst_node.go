package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// AnalystMethods defines the methods needed to compute metrics and anomalies.
type AnalystMethods interface {
	// Analyze computes the health score and anomalies for the period. The
	// numbers are computed, never taken from the model.
	Analyze(ctx context.Context, in *models.AnalystInput) (*models.AnalystResult, error)
}

// AnalystNode turns the period summary into metrics, a health score and
// rule-backed anomalies.
type AnalystNode struct {
	*BaseNode
	analyst AnalystMethods
}

// NewAnalystNode creates a new analyst node.
func NewAnalystNode(analyst AnalystMethods, logger *zap.Logger) *AnalystNode {
	return &AnalystNode{
		BaseNode: NewBaseNode(models.StageAnalyst, logger),
		analyst:  analyst,
	}
}

// Execute runs the analyst stage.
func (n *AnalystNode) Execute(ctx context.Context, run *Run) error {
	if err := n.requireInput(run.Digest != nil, "the collector digest"); err != nil {
		return err
	}

	n.Logger().Info("Starting analysis",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Int("period_days", run.Request.Period.Days))

	result, err := n.analyst.Analyze(ctx, &models.AnalystInput{
		Niche:      run.Request.Store.Niche,
		Period:     run.Request.Period,
		Benchmarks: run.Benchmarks(),
		Profile:    run.StoreProfile(),
	})
	if err != nil {
		return fmt.Errorf("analyze period: %w", err)
	}
	run.Analysis = result

	n.Logger().Info("Analysis complete",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.Intp("health_score", result.Metrics.Health.Score),
		zap.String("classification", string(result.Metrics.Health.Classification)),
		zap.Int("anomalies", len(result.Anomalies)))
	return nil
}
