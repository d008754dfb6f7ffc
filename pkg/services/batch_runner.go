package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// BatchOutcome is the result of one store in a batch.
type BatchOutcome struct {
	StoreID  uuid.UUID
	Analysis *models.Analysis
	Err      error
}

// BatchRunner analyzes several stores concurrently, bounded by a shared
// worker pool. Stores within one run are independent.
type BatchRunner struct {
	pipeline AnalysisPipeline
	pool     *llm.WorkerPool
	logger   *zap.Logger
}

// NewBatchRunner creates a BatchRunner running at most concurrency stores
// at once.
func NewBatchRunner(pipeline AnalysisPipeline, concurrency int, logger *zap.Logger) *BatchRunner {
	return &BatchRunner{
		pipeline: pipeline,
		pool:     llm.NewWorkerPool(llm.WorkerPoolConfig{MaxConcurrent: concurrency}, logger),
		logger:   logger.Named("batch"),
	}
}

// Run analyzes every request and returns one outcome per request, in order.
// A store listed twice only runs once; the duplicate fails with
// apperrors.ErrAnalysisRunning.
func (b *BatchRunner) Run(ctx context.Context, reqs []*models.AnalysisRequest) []BatchOutcome {
	items := make([]llm.WorkItem[*models.Analysis], len(reqs))
	seen := make(map[uuid.UUID]bool, len(reqs))
	for i, req := range reqs {
		req := req
		id := fmt.Sprintf("request-%d", i)
		if req != nil {
			id = req.StoreID.String()
		}
		duplicate := req != nil && seen[req.StoreID]
		if req != nil {
			seen[req.StoreID] = true
		}
		items[i] = llm.WorkItem[*models.Analysis]{
			ID: id,
			Execute: func(ctx context.Context) (*models.Analysis, error) {
				if duplicate {
					return nil, apperrors.ErrAnalysisRunning
				}
				return b.pipeline.Run(ctx, req)
			},
		}
	}

	b.logger.Info("Starting batch", zap.Int("stores", len(reqs)), zap.Int("concurrency", b.pool.MaxConcurrent()))
	results := llm.Process(ctx, b.pool, items, func(completed, total int) {
		b.logger.Debug("Batch progress", zap.Int("completed", completed), zap.Int("total", total))
	})

	out := make([]BatchOutcome, len(reqs))
	failed := 0
	for i, r := range results {
		out[i] = BatchOutcome{Analysis: r.Result, Err: r.Err}
		if reqs[i] != nil {
			out[i].StoreID = reqs[i].StoreID
		}
		if r.Err != nil {
			failed++
			b.logger.Warn("Store analysis failed", zap.String("id", r.ID), zap.Error(r.Err))
		}
	}
	b.logger.Info("Batch finished", zap.Int("stores", len(reqs)), zap.Int("failed", failed))
	return out
}
