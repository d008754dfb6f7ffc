package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// ProfileSynthesisMethods defines the methods needed to synthesize the store profile.
// This interface allows the node to call service methods without causing import cycles.
type ProfileSynthesisMethods interface {
	// Synthesize drafts the profile with the model and applies the
	// threshold rules on top of it.
	Synthesize(ctx context.Context, in *models.ProfileInput) (*models.ProfileResult, error)
}

// ProfileNode builds the read-only store profile every later stage uses.
type ProfileNode struct {
	*BaseNode
	synthesizer ProfileSynthesisMethods
}

// NewProfileNode creates a new profile synthesis node.
func NewProfileNode(synthesizer ProfileSynthesisMethods, logger *zap.Logger) *ProfileNode {
	return &ProfileNode{
		BaseNode:    NewBaseNode(models.StageProfile, logger),
		synthesizer: synthesizer,
	}
}

// Execute runs the profile synthesis stage.
func (n *ProfileNode) Execute(ctx context.Context, run *Run) error {
	n.Logger().Info("Starting profile synthesis",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.String("store", run.Request.Store.Name))

	result, err := n.synthesizer.Synthesize(ctx, &models.ProfileInput{
		Store:      run.Request.Store,
		Benchmarks: run.Benchmarks(),
		Date:       run.Date,
	})
	if err != nil {
		return fmt.Errorf("synthesize profile: %w", err)
	}
	run.Profile = result

	n.Logger().Info("Profile synthesis complete",
		zap.String("analysis_id", run.AnalysisID.String()),
		zap.String("size_tier", string(result.Profile.SizeTier)),
		zap.String("maturity", string(result.Profile.DigitalMaturity)),
		zap.Int("upcoming_events", len(result.Context.UpcomingEvents)))
	return nil
}
