package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
)

// Stage run statuses recorded on models.StageRun.
const (
	stagePending   = "pending"
	stageRunning   = "running"
	stageCompleted = "completed"
	stageFailed    = "failed"
)

// DefaultPriorAnalyses is how many completed analyses the Collector sees
// when the request does not bring its own.
const DefaultPriorAnalyses = 5

// AnalysisPipeline orchestrates the six stages of an analysis.
// Stages run strictly in sequence; each consumes the outputs of all
// previous stages. Any unrecovered stage failure fails the whole run.
type AnalysisPipeline interface {
	// Run executes an analysis and returns it once completed.
	Run(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error)

	// Start creates the analysis and executes it in the background.
	Start(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error)

	// GetStatus returns the analysis with its stage progress.
	GetStatus(ctx context.Context, analysisID uuid.UUID) (*models.Analysis, error)

	// Cancel stops a running analysis.
	Cancel(ctx context.Context, analysisID uuid.UUID) error

	// Shutdown cancels every analysis owned by this process and waits for
	// them to record their failure.
	Shutdown(ctx context.Context) error
}

type analysisPipeline struct {
	analyses    repositories.AnalysisRepository
	suggestions repositories.SuggestionRepository
	knowledge   KnowledgeSource
	refunder    CreditRefunder
	nodes       []dag.NodeExecutor
	now         func() time.Time
	logger      *zap.Logger

	activeRuns   sync.Map // analysisID -> context.CancelFunc
	wg           sync.WaitGroup
	shuttingDown atomic.Bool
}

// NewAnalysisPipeline creates the orchestrator. nodes must follow
// models.AllStages.
func NewAnalysisPipeline(
	analyses repositories.AnalysisRepository,
	suggestions repositories.SuggestionRepository,
	knowledge KnowledgeSource,
	refunder CreditRefunder,
	nodes []dag.NodeExecutor,
	logger *zap.Logger,
) (AnalysisPipeline, error) {
	ordered, err := dag.Ordered(nodes)
	if err != nil {
		return nil, fmt.Errorf("invalid stage nodes: %w", err)
	}
	if refunder == nil {
		refunder = NoopRefunder{Logger: logger}
	}
	return &analysisPipeline{
		analyses:    analyses,
		suggestions: suggestions,
		knowledge:   knowledge,
		refunder:    refunder,
		nodes:       ordered,
		now:         time.Now,
		logger:      logger.Named("pipeline"),
	}, nil
}

var _ AnalysisPipeline = (*analysisPipeline)(nil)

func (s *analysisPipeline) Run(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error) {
	a, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	runCtx, done := s.track(ctx, a.ID)
	defer done()

	if err := s.execute(runCtx, a, req); err != nil {
		return nil, fmt.Errorf("analysis %s failed: %w", a.ID, err)
	}
	return a, nil
}

func (s *analysisPipeline) Start(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error) {
	a, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	snapshot := *a

	// The run outlives the request that started it.
	runCtx, done := s.track(context.Background(), a.ID)
	go func() {
		defer done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("Analysis execution panicked",
					zap.String("analysis_id", a.ID.String()),
					zap.String("store_id", a.StoreID.String()),
					zap.Any("panic", r),
					zap.Stack("stack"))
				s.fail(runCtx, a, fmt.Errorf("panic during execution: %v", r))
			}
		}()
		_ = s.execute(runCtx, a, req)
	}()

	return &snapshot, nil
}

func (s *analysisPipeline) GetStatus(ctx context.Context, analysisID uuid.UUID) (*models.Analysis, error) {
	a, err := s.analyses.Get(ctx, analysisID)
	if err != nil {
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	return a, nil
}

func (s *analysisPipeline) Cancel(ctx context.Context, analysisID uuid.UUID) error {
	s.logger.Info("Cancelling analysis", zap.String("analysis_id", analysisID.String()))

	if cancel, ok := s.activeRuns.Load(analysisID); ok {
		cancel.(context.CancelFunc)()
		return nil
	}

	// Not owned here: a run orphaned by a crashed process is closed out.
	a, err := s.analyses.Get(ctx, analysisID)
	if err != nil {
		return fmt.Errorf("get analysis: %w", err)
	}
	if a.Status.IsTerminal() {
		return fmt.Errorf("analysis already %s: %w", a.Status, apperrors.ErrConflict)
	}
	if err := s.analyses.Fail(ctx, analysisID, "análise cancelada"); err != nil {
		return fmt.Errorf("mark analysis cancelled: %w", err)
	}
	return nil
}

func (s *analysisPipeline) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down analysis pipeline")
	s.shuttingDown.Store(true)

	s.activeRuns.Range(func(key, value any) bool {
		s.logger.Info("Cancelling analysis for shutdown", zap.String("analysis_id", key.(uuid.UUID).String()))
		value.(context.CancelFunc)()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// create validates the request and persists a pending analysis. A store
// with a run in flight is rejected with apperrors.ErrAnalysisRunning.
func (s *analysisPipeline) create(ctx context.Context, req *models.AnalysisRequest) (*models.Analysis, error) {
	if s.shuttingDown.Load() {
		return nil, apperrors.ErrShuttingDown
	}
	if req == nil || req.StoreID == uuid.Nil {
		return nil, fmt.Errorf("store_id is required: %w", apperrors.ErrInvalidInput)
	}
	if req.Store.Niche == "" {
		return nil, fmt.Errorf("store niche is required: %w", apperrors.ErrInvalidInput)
	}

	a := &models.Analysis{
		ID:      uuid.New(),
		StoreID: req.StoreID,
		Status:  models.AnalysisStatusPending,
	}
	if err := s.analyses.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("create analysis: %w", err)
	}
	s.logger.Info("Analysis created",
		zap.String("analysis_id", a.ID.String()),
		zap.String("store_id", a.StoreID.String()))
	return a, nil
}

// track registers a cancellable run so Cancel and Shutdown can reach it.
func (s *analysisPipeline) track(parent context.Context, analysisID uuid.UUID) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)
	s.activeRuns.Store(analysisID, cancel)
	s.wg.Add(1)
	return ctx, func() {
		cancel()
		s.activeRuns.Delete(analysisID)
		s.wg.Done()
	}
}

// execute runs every stage and persists the outcome. On failure the run is
// marked failed, partial results are discarded and credits are refunded.
func (s *analysisPipeline) execute(ctx context.Context, a *models.Analysis, req *models.AnalysisRequest) error {
	started := s.now()
	a.Status = models.AnalysisStatusRunning
	a.StartedAt = &started
	a.Stages = make([]models.StageRun, len(s.nodes))
	for i, n := range s.nodes {
		a.Stages[i] = models.StageRun{Name: n.Name(), Status: stagePending}
	}
	if err := s.analyses.UpdateProgress(ctx, a); err != nil {
		s.fail(ctx, a, fmt.Errorf("mark running: %w", err))
		return err
	}

	run, err := s.prepare(ctx, a, req)
	if err != nil {
		s.fail(ctx, a, err)
		return err
	}
	for i, node := range s.nodes {
		if err := ctx.Err(); err != nil {
			s.fail(ctx, a, err)
			return err
		}
		if err := s.executeNode(ctx, a, i, node, run); err != nil {
			s.fail(ctx, a, err)
			return err
		}
	}

	a.Profile = run.Profile
	a.Digest = run.Digest
	a.Metrics = run.Analysis
	a.Similarity = run.Similarity
	a.Suggestions = run.Curated.Suggestions
	a.Quality = &run.Curated.Summary
	a.GoalCoverage = run.Curated.GoalCoverage
	if err := s.analyses.Complete(context.WithoutCancel(ctx), a); err != nil {
		s.fail(ctx, a, fmt.Errorf("persist results: %w", err))
		return err
	}

	s.logger.Info("Analysis completed",
		zap.String("analysis_id", a.ID.String()),
		zap.String("store_id", a.StoreID.String()),
		zap.Int("suggestions", len(a.Suggestions)),
		zap.Duration("elapsed", s.now().Sub(started)))
	return nil
}

// prepare snapshots the inputs shared by every stage. History is read once
// so all stages see the same list, and a run never starts without it;
// knowledge that cannot be loaded leaves the run without benchmarks instead
// of failing it.
func (s *analysisPipeline) prepare(ctx context.Context, a *models.Analysis, req *models.AnalysisRequest) (*dag.Run, error) {
	run := &dag.Run{
		AnalysisID: a.ID,
		StoreID:    a.StoreID,
		Request:    req,
		Date:       req.Date,
		Prior:      req.PriorAnalyses,
		Knowledge:  &models.KnowledgeBundle{},
	}
	if run.Date.IsZero() {
		run.Date = s.now()
	}

	history, err := s.suggestions.History(ctx, a.StoreID)
	if err != nil {
		return nil, fmt.Errorf("load suggestion history: %w", err)
	}
	run.History = append([]models.HistoricalSuggestion{}, history...)

	if run.Prior == nil {
		prior, err := s.analyses.ListPrior(ctx, a.StoreID, DefaultPriorAnalyses)
		if err != nil {
			s.logger.Warn("Failed to load prior analyses", zap.String("analysis_id", a.ID.String()), zap.Error(err))
		}
		run.Prior = prior
	}

	if s.knowledge != nil {
		bundle, err := s.knowledge.Load(ctx, req.Store.Niche)
		if err != nil {
			s.logger.Warn("Failed to load niche knowledge, continuing without benchmarks",
				zap.String("analysis_id", a.ID.String()),
				zap.String("niche", req.Store.Niche),
				zap.Error(err))
		} else if bundle != nil {
			run.Knowledge = bundle
		}
	}
	return run, nil
}

// executeNode runs one stage and records its progress on the analysis.
func (s *analysisPipeline) executeNode(ctx context.Context, a *models.Analysis, i int, node dag.NodeExecutor, run *dag.Run) error {
	stage := node.Name()
	started := s.now()
	rec := &a.Stages[i]
	rec.Status = stageRunning
	rec.StartedAt = &started
	a.CurrentStage = &stage
	if err := s.analyses.UpdateProgress(ctx, a); err != nil {
		return fmt.Errorf("update current stage: %w", err)
	}

	stageCtx := llm.WithStageContext(ctx, a.ID, a.StoreID, string(stage))
	stageCtx, attempts := withAttemptCounter(stageCtx)
	err := node.Execute(stageCtx, run)

	finished := s.now()
	ms := int(finished.Sub(started).Milliseconds())
	rec.Attempts = int(attempts.Load())
	rec.CompletedAt = &finished
	rec.DurationMs = &ms
	if err != nil {
		msg := err.Error()
		rec.Status = stageFailed
		rec.ErrorMessage = &msg
		s.logger.Error("Stage failed",
			zap.String("analysis_id", a.ID.String()),
			zap.String("stage", string(stage)),
			zap.Int("attempts", rec.Attempts),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
		return fmt.Errorf("stage %s: %w", stage, err)
	}

	rec.Status = stageCompleted
	s.logger.Info("Stage completed",
		zap.String("analysis_id", a.ID.String()),
		zap.String("stage", string(stage)),
		zap.Int("attempts", rec.Attempts),
		zap.Int("duration_ms", ms))
	return nil
}

// fail records the failure and asks for a refund. It uses a context that
// survives the run's cancellation so the record is always written.
func (s *analysisPipeline) fail(ctx context.Context, a *models.Analysis, cause error) {
	ctx = context.WithoutCancel(ctx)
	msg := cause.Error()
	if errors.Is(cause, context.Canceled) {
		msg = "análise cancelada"
	}
	a.Status = models.AnalysisStatusFailed
	a.ErrorMessage = &msg

	if err := s.analyses.UpdateProgress(ctx, a); err != nil {
		s.logger.Error("Failed to record stage progress", zap.String("analysis_id", a.ID.String()), zap.Error(err))
	}
	if err := s.analyses.Fail(ctx, a.ID, msg); err != nil {
		s.logger.Error("Failed to mark analysis failed", zap.String("analysis_id", a.ID.String()), zap.Error(err))
	}
	if err := s.refunder.Refund(ctx, a.StoreID, a.ID, msg); err != nil {
		s.logger.Error("Failed to refund credits",
			zap.String("analysis_id", a.ID.String()),
			zap.String("store_id", a.StoreID.String()),
			zap.Error(err))
	}

	s.logger.Error("Analysis failed",
		zap.String("analysis_id", a.ID.String()),
		zap.String("store_id", a.StoreID.String()),
		zap.String("error", msg))
}
