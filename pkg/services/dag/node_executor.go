package dag

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// NodeExecutor defines the interface for stage execution.
// Each node wraps a stage service and threads its output into the Run.
type NodeExecutor interface {
	// Name returns the stage name (e.g., "analyst")
	Name() models.StageName

	// Execute runs the stage. Returns an error if the stage fails.
	Execute(ctx context.Context, run *Run) error
}

// BaseNode provides common functionality for all stage nodes.
type BaseNode struct {
	stage  models.StageName
	logger *zap.Logger
}

// NewBaseNode creates a new base node.
func NewBaseNode(stage models.StageName, logger *zap.Logger) *BaseNode {
	return &BaseNode{
		stage:  stage,
		logger: logger.Named(string(stage)),
	}
}

// Name returns the stage name.
func (b *BaseNode) Name() models.StageName {
	return b.stage
}

// Logger returns the node's logger.
func (b *BaseNode) Logger() *zap.Logger {
	return b.logger
}

// requireInput fails with apperrors.ErrStageNotReady when an upstream output
// is missing, which means a node ran out of order.
func (b *BaseNode) requireInput(present bool, what string) error {
	if !present {
		return fmt.Errorf("%s needs %s: %w", b.stage, what, apperrors.ErrStageNotReady)
	}
	return nil
}

// Ordered checks that nodes follow models.AllStages and returns them
// unchanged.
func Ordered(nodes []NodeExecutor) ([]NodeExecutor, error) {
	stages := models.AllStages()
	if len(nodes) != len(stages) {
		return nil, fmt.Errorf("expected %d stage nodes, got %d", len(stages), len(nodes))
	}
	for i, n := range nodes {
		if n.Name() != stages[i] {
			return nil, fmt.Errorf("stage %d is %q, expected %q", i+1, n.Name(), stages[i])
		}
	}
	return nodes, nil
}
