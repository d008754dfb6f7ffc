package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/config"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/prompts"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
	"github.com/ekaya-inc/growth-engine/pkg/services/dag"
)

type fakeNode struct {
	stage models.StageName
	fn    func(ctx context.Context, run *dag.Run) error
}

func (n *fakeNode) Name() models.StageName { return n.stage }

func (n *fakeNode) Execute(ctx context.Context, run *dag.Run) error {
	countAttempt(ctx)
	if n.fn == nil {
		return nil
	}
	return n.fn(ctx, run)
}

// fakeNodes returns nodes that fill every stage output; overrides replace
// individual stages.
func fakeNodes(overrides map[models.StageName]func(context.Context, *dag.Run) error) []dag.NodeExecutor {
	defaults := map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageProfile: func(_ context.Context, r *dag.Run) error {
			r.Profile = &models.ProfileResult{Profile: models.StoreProfile{Niche: "moda"}}
			return nil
		},
		models.StageCollector: func(_ context.Context, r *dag.Run) error {
			r.Digest = &models.CollectorDigest{SpecialContext: "Natal"}
			return nil
		},
		models.StageAnalyst: func(_ context.Context, r *dag.Run) error {
			r.Analysis = &models.AnalystResult{}
			return nil
		},
		models.StageSimilarity: func(_ context.Context, r *dag.Run) error {
			r.Similarity = &models.SimilarityReport{}
			return nil
		},
		models.StageStrategist: func(_ context.Context, r *dag.Run) error {
			r.Candidates = &models.StrategistResult{Suggestions: []models.Suggestion{{ID: "s1", Title: "Vitrine"}}}
			return nil
		},
		models.StageCritic: func(_ context.Context, r *dag.Run) error {
			r.Curated = &models.CriticResult{
				Suggestions: []models.Suggestion{{ID: "s1", Category: models.CategoryConversion, Tier: models.TierMedium, Title: "Vitrine", Problem: "Conversão de 1%"}},
				Summary:     models.CriticSummary{AverageQuality: 6.5},
			}
			return nil
		},
	}
	var nodes []dag.NodeExecutor
	for _, stage := range models.AllStages() {
		fn := defaults[stage]
		if o, ok := overrides[stage]; ok {
			fn = o
		}
		nodes = append(nodes, &fakeNode{stage: stage, fn: fn})
	}
	return nodes
}

type recordingRefunder struct {
	mu      sync.Mutex
	reasons map[uuid.UUID]string
}

func (r *recordingRefunder) Refund(_ context.Context, _, analysisID uuid.UUID, reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reasons == nil {
		r.reasons = make(map[uuid.UUID]string)
	}
	r.reasons[analysisID] = reason
	return nil
}

func (r *recordingRefunder) reason(id uuid.UUID) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.reasons[id]
	return s, ok
}

type pipelineFixture struct {
	store    *repositories.MemoryStore
	refunder *recordingRefunder
	pipeline AnalysisPipeline
}

func newPipelineFixture(t *testing.T, nodes []dag.NodeExecutor) *pipelineFixture {
	t.Helper()
	store := repositories.NewMemoryStore()
	refunder := &recordingRefunder{}
	p, err := NewAnalysisPipeline(store.Analyses(), store.Suggestions(),
		NewKnowledgeSource(store.Knowledge(), 5, zap.NewNop()), refunder, nodes, zap.NewNop())
	require.NoError(t, err)
	return &pipelineFixture{store: store, refunder: refunder, pipeline: p}
}

func testRequest() *models.AnalysisRequest {
	return &models.AnalysisRequest{StoreID: uuid.New(), Store: testStore()}
}

// blockUntilCancelled is a stage that only returns when its run is cancelled.
func blockUntilCancelled(started chan<- struct{}) func(context.Context, *dag.Run) error {
	return func(ctx context.Context, _ *dag.Run) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	}
}

func TestNewAnalysisPipeline_RejectsMisorderedNodes(t *testing.T) {
	nodes := fakeNodes(nil)
	nodes[0], nodes[1] = nodes[1], nodes[0]
	store := repositories.NewMemoryStore()

	_, err := NewAnalysisPipeline(store.Analyses(), store.Suggestions(), nil, nil, nodes, zap.NewNop())
	require.Error(t, err)
}

func TestAnalysisPipeline_RunCompletes(t *testing.T) {
	f := newPipelineFixture(t, fakeNodes(nil))
	req := testRequest()

	a, err := f.pipeline.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, a.Status)

	stored, err := f.pipeline.GetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, stored.Status)
	assert.Nil(t, stored.CurrentStage)
	require.Len(t, stored.Suggestions, 1)
	assert.Equal(t, "Vitrine", stored.Suggestions[0].Title)
	require.NotNil(t, stored.Quality)
	assert.Equal(t, 6.5, stored.Quality.AverageQuality)

	require.Len(t, stored.Stages, len(models.AllStages()))
	for i, st := range stored.Stages {
		assert.Equal(t, models.AllStages()[i], st.Name)
		assert.Equal(t, stageCompleted, st.Status)
		assert.Equal(t, 1, st.Attempts)
		assert.NotNil(t, st.DurationMs)
	}

	// Delivered suggestions become history for the next run.
	history, err := f.store.Suggestions().History(context.Background(), req.StoreID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, models.SuggestionStatusPending, history[0].Status)

	_, refunded := f.refunder.reason(a.ID)
	assert.False(t, refunded)
}

func TestAnalysisPipeline_StagesSeeSharedSnapshot(t *testing.T) {
	var seen *dag.Run
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageCollector: func(_ context.Context, r *dag.Run) error {
			seen = r
			r.Digest = &models.CollectorDigest{}
			return nil
		},
	})
	f := newPipelineFixture(t, nodes)
	req := testRequest()
	f.store.SeedHistory(req.StoreID, loyaltyHistory())

	_, err := f.pipeline.Run(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, seen)
	assert.Len(t, seen.History, 3)
	assert.NotNil(t, seen.Knowledge)
	assert.False(t, seen.Date.IsZero())
	assert.NotNil(t, seen.Prior)
}

func TestAnalysisPipeline_StageFailureFailsRunAndRefunds(t *testing.T) {
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageStrategist: func(context.Context, *dag.Run) error {
			return errors.New("strategist produced no valid suggestions")
		},
	})
	f := newPipelineFixture(t, nodes)
	req := testRequest()

	_, err := f.pipeline.Run(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "strategist produced no valid suggestions")

	list, err := f.store.Analyses().ListPrior(context.Background(), req.StoreID, 10)
	require.NoError(t, err)
	assert.Empty(t, list, "failed runs are not prior analyses")

	history, err := f.store.Suggestions().History(context.Background(), req.StoreID)
	require.NoError(t, err)
	assert.Empty(t, history, "partial results are never persisted")
}

// failingHistory is a suggestion repository whose history cannot be read.
type failingHistory struct {
	repositories.SuggestionRepository
}

func (failingHistory) History(context.Context, uuid.UUID) ([]models.HistoricalSuggestion, error) {
	return nil, errors.New("connection reset by peer")
}

func TestAnalysisPipeline_UnreadableHistoryFailsRun(t *testing.T) {
	var executed sync.Map
	overrides := make(map[models.StageName]func(context.Context, *dag.Run) error)
	for _, stage := range models.AllStages() {
		overrides[stage] = func(context.Context, *dag.Run) error {
			executed.Store(stage, true)
			return nil
		}
	}
	store := repositories.NewMemoryStore()
	refunder := &recordingRefunder{}
	p, err := NewAnalysisPipeline(store.Analyses(), failingHistory{store.Suggestions()},
		NewKnowledgeSource(store.Knowledge(), 5, zap.NewNop()), refunder, fakeNodes(overrides), zap.NewNop())
	require.NoError(t, err)

	started, err := p.Start(context.Background(), testRequest())
	require.NoError(t, err)

	var stored *models.Analysis
	require.Eventually(t, func() bool {
		stored, err = p.GetStatus(context.Background(), started.ID)
		return err == nil && stored.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.AnalysisStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "load suggestion history")
	executed.Range(func(k, _ any) bool {
		t.Errorf("stage %v ran without history", k)
		return true
	})

	reason, ok := refunder.reason(started.ID)
	require.True(t, ok)
	assert.Equal(t, *stored.ErrorMessage, reason)
}

func TestAnalysisPipeline_FailureRecordsStageProgress(t *testing.T) {
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageAnalyst: func(context.Context, *dag.Run) error {
			return llm.NewError(llm.ErrorTypeTruncated, "response ends with \"...\"", true, nil)
		},
	})
	f := newPipelineFixture(t, nodes)

	started, err := f.pipeline.Start(context.Background(), testRequest())
	require.NoError(t, err)

	var stored *models.Analysis
	require.Eventually(t, func() bool {
		stored, err = f.pipeline.GetStatus(context.Background(), started.ID)
		return err == nil && stored.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)

	assert.Equal(t, models.AnalysisStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "analyst")
	assert.Nil(t, stored.Profile, "results are cleared on failure")

	require.Len(t, stored.Stages, 6)
	assert.Equal(t, stageCompleted, stored.Stages[1].Status)
	assert.Equal(t, stageFailed, stored.Stages[2].Status)
	require.NotNil(t, stored.Stages[2].ErrorMessage)
	assert.Equal(t, stagePending, stored.Stages[3].Status)

	reason, ok := f.refunder.reason(started.ID)
	require.True(t, ok)
	assert.Equal(t, *stored.ErrorMessage, reason)
}

func TestAnalysisPipeline_RejectsConcurrentRunForStore(t *testing.T) {
	started := make(chan struct{})
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageProfile: blockUntilCancelled(started),
	})
	f := newPipelineFixture(t, nodes)
	req := testRequest()

	first, err := f.pipeline.Start(context.Background(), req)
	require.NoError(t, err)
	<-started

	_, err = f.pipeline.Run(context.Background(), req)
	assert.ErrorIs(t, err, apperrors.ErrAnalysisRunning)

	require.NoError(t, f.pipeline.Cancel(context.Background(), first.ID))
	require.NoError(t, f.pipeline.Shutdown(context.Background()))
}

func TestAnalysisPipeline_CancelRunningAnalysis(t *testing.T) {
	started := make(chan struct{})
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageSimilarity: blockUntilCancelled(started),
	})
	f := newPipelineFixture(t, nodes)

	a, err := f.pipeline.Start(context.Background(), testRequest())
	require.NoError(t, err)
	<-started

	progress, err := f.pipeline.GetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusRunning, progress.Status)
	require.NotNil(t, progress.CurrentStage)
	assert.Equal(t, models.StageSimilarity, *progress.CurrentStage)

	require.NoError(t, f.pipeline.Cancel(context.Background(), a.ID))
	require.Eventually(t, func() bool {
		_, ok := f.refunder.reason(a.ID)
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	stored, err := f.pipeline.GetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Equal(t, "análise cancelada", *stored.ErrorMessage)
}

func TestAnalysisPipeline_CancelOrphanedAnalysis(t *testing.T) {
	f := newPipelineFixture(t, fakeNodes(nil))
	ctx := context.Background()

	orphan := &models.Analysis{StoreID: uuid.New(), Status: models.AnalysisStatusRunning}
	require.NoError(t, f.store.Analyses().Create(ctx, orphan))

	require.NoError(t, f.pipeline.Cancel(ctx, orphan.ID))
	stored, err := f.pipeline.GetStatus(ctx, orphan.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, stored.Status)

	err = f.pipeline.Cancel(ctx, orphan.ID)
	assert.ErrorIs(t, err, apperrors.ErrConflict)

	err = f.pipeline.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestAnalysisPipeline_ShutdownCancelsRuns(t *testing.T) {
	defer goleak.VerifyNone(t)

	started := make(chan struct{})
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageCritic: blockUntilCancelled(started),
	})
	f := newPipelineFixture(t, nodes)

	a, err := f.pipeline.Start(context.Background(), testRequest())
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.pipeline.Shutdown(ctx))

	stored, err := f.pipeline.GetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusFailed, stored.Status)

	_, err = f.pipeline.Start(context.Background(), testRequest())
	assert.ErrorIs(t, err, apperrors.ErrShuttingDown)
}

func TestAnalysisPipeline_RecoversFromPanic(t *testing.T) {
	nodes := fakeNodes(map[models.StageName]func(context.Context, *dag.Run) error{
		models.StageCollector: func(context.Context, *dag.Run) error { panic("nil map") },
	})
	f := newPipelineFixture(t, nodes)

	a, err := f.pipeline.Start(context.Background(), testRequest())
	require.NoError(t, err)

	var stored *models.Analysis
	require.Eventually(t, func() bool {
		stored, err = f.pipeline.GetStatus(context.Background(), a.ID)
		return err == nil && stored.Status.IsTerminal()
	}, 5*time.Second, 10*time.Millisecond)
	require.NoError(t, f.pipeline.Shutdown(context.Background()))

	assert.Equal(t, models.AnalysisStatusFailed, stored.Status)
	require.NotNil(t, stored.ErrorMessage)
	assert.Contains(t, *stored.ErrorMessage, "panic")
}

func TestAnalysisPipeline_ValidatesRequest(t *testing.T) {
	f := newPipelineFixture(t, fakeNodes(nil))

	_, err := f.pipeline.Run(context.Background(), &models.AnalysisRequest{Store: testStore()})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, err = f.pipeline.Run(context.Background(), &models.AnalysisRequest{StoreID: uuid.New()})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

// End to end through the real stages with a scripted backend.
func TestAnalysisPipeline_EndToEndWithScriptedModel(t *testing.T) {
	cfg := &config.Config{
		Pipeline: config.PipelineConfig{
			StrategicCount:           2,
			TacticalCount:            2,
			SelectionRatio:           0.5,
			TitleSimilarityThreshold: 0.7,
			TargetQualityAverage:     6.5,
			MaxQualityAverage:        8,
			MinExternalJustified:     2,
			TopPriorities:            3,
			MinActionSteps:           3,
			GoalCoverageRatio:        0.8,
		},
	}

	high := func(id string, cat models.SuggestionCategory, title string, value float64) models.Suggestion {
		s := testSuggestion(id, cat, models.TierHigh, title, value)
		s.AddressesProblem = models.ProblemGoalGap
		return s
	}
	slate := []models.Suggestion{
		high("s1", models.CategoryGrowth, "Abrir canal para revendedores regionais", 1500),
		high("s2", models.CategoryStrategy, "Expandir linha de acessórios para ampliar ticket", 2000),
		testSuggestion("s3", models.CategoryConversion, models.TierMedium, "Reorganizar vitrine da página inicial", 800),
		testSuggestion("s4", models.CategoryProduct, models.TierMedium, "Melhorar fotos dos produtos mais vendidos", 600),
		testSuggestion("s5", models.CategoryOperational, models.TierLow, "Padronizar prazo de postagem dos pedidos", 300),
		testSuggestion("s6", models.CategoryMarketing, models.TierLow, "Publicar guia de medidas nas redes sociais", 250),
	}

	gen := llm.NewMockGenerator().
		On(string(models.StageProfile), `{"perfil_loja": {"nicho": "moda", "publico_alvo": "mulheres de 25 a 40 anos"}, "contexto_analise": {"observacoes_iniciais": []}}`).
		On(string(models.StageCollector), `{"historical_summary": [], "success_patterns": [], "suggestions_to_avoid": [], "relevant_benchmarks": {}, "identified_gaps": ["Meta de receita distante"], "special_context": ""}`).
		On(string(models.StageAnalyst), `{"anomalies": [], "identified_patterns": ["Vendas concentradas em vestidos"], "data_quality": {"missing_metrics": [], "recommendations": []}}`).
		On(string(models.StageStrategist), mustJSON(t, map[string]any{"suggestions": slate})).
		On(string(models.StageCritic), `{"selected": [], "alternatives": []}`)

	stages := NewStages(gen, prompts.NewRenderer(), cfg, zap.NewNop())
	f := newPipelineFixture(t, stages.Nodes(zap.NewNop()))

	req := testRequest()
	req.Store.Goals.MonthlyRevenue = ptr(30000.0)
	req.Period = models.PeriodData{
		Days:   30,
		Orders: models.OrdersSummary{Count: ptr(100), Revenue: ptr(15000.0)},
	}
	req.Date = time.Date(2026, 10, 19, 0, 0, 0, 0, time.UTC)

	a, err := f.pipeline.Run(context.Background(), req)
	require.NoError(t, err)

	stored, err := f.pipeline.GetStatus(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AnalysisStatusCompleted, stored.Status)
	require.NotNil(t, stored.Profile)
	assert.Equal(t, models.SizeSmall, stored.Profile.Profile.SizeTier)
	require.NotNil(t, stored.Metrics)
	require.NotNil(t, stored.Metrics.Metrics.AverageTicket)
	assert.Equal(t, 150.0, *stored.Metrics.Metrics.AverageTicket)

	// Half of each tier survives review.
	require.Len(t, stored.Suggestions, 3)
	tiers := map[models.ImpactTier]int{}
	for _, s := range stored.Suggestions {
		tiers[s.Tier]++
		require.NotNil(t, s.Review)
	}
	assert.Equal(t, map[models.ImpactTier]int{models.TierHigh: 1, models.TierMedium: 1, models.TierLow: 1}, tiers)
	require.NotNil(t, stored.GoalCoverage)
	assert.Equal(t, 10000.0, stored.GoalCoverage.Gap)

	// The similarity stage has no history to analyze and never calls the model.
	assert.Empty(t, gen.CallsFor(string(models.StageSimilarity)))
	assert.Equal(t, 0, stored.Stages[3].Attempts)
	for _, i := range []int{0, 1, 2, 4, 5} {
		assert.Equal(t, 1, stored.Stages[i].Attempts, "stage %s", stored.Stages[i].Name)
	}
}
