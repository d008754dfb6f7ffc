package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// MemoryStore implements every repository in process. It backs the analyze
// CLI command and service tests; rows are deep-copied through JSON so callers
// never share state with the store.
type MemoryStore struct {
	mu            sync.RWMutex
	analyses      map[uuid.UUID]*models.Analysis
	suggestions   []memorySuggestion
	benchmarks    map[string]*models.NicheBenchmarks
	strategies    map[string]models.StrategySnippet
	trends        map[string][]string
	conversations []*models.LLMConversation
}

type memorySuggestion struct {
	id         uuid.UUID
	analysisID uuid.UUID
	storeID    uuid.UUID
	status     models.SuggestionStatus
	createdAt  time.Time
	payload    models.Suggestion
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		analyses:   make(map[uuid.UUID]*models.Analysis),
		benchmarks: make(map[string]*models.NicheBenchmarks),
		strategies: make(map[string]models.StrategySnippet),
		trends:     make(map[string][]string),
	}
}

var (
	_ AnalysisRepository     = (*memoryAnalyses)(nil)
	_ SuggestionRepository   = (*memorySuggestions)(nil)
	_ KnowledgeRepository    = (*memoryKnowledge)(nil)
	_ ConversationRepository = (*memoryConversations)(nil)
)

// Analyses returns the store's AnalysisRepository view.
func (m *MemoryStore) Analyses() AnalysisRepository { return (*memoryAnalyses)(m) }

// Suggestions returns the store's SuggestionRepository view.
func (m *MemoryStore) Suggestions() SuggestionRepository { return (*memorySuggestions)(m) }

// Knowledge returns the store's KnowledgeRepository view.
func (m *MemoryStore) Knowledge() KnowledgeRepository { return (*memoryKnowledge)(m) }

// Conversations returns the store's ConversationRepository view.
func (m *MemoryStore) Conversations() ConversationRepository { return (*memoryConversations)(m) }

// SeedHistory records suggestions delivered by an earlier, completed run.
func (m *MemoryStore) SeedHistory(storeID uuid.UUID, history []models.HistoricalSuggestion) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, h := range history {
		id := h.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		m.suggestions = append(m.suggestions, memorySuggestion{
			id:         id,
			analysisID: h.AnalysisID,
			storeID:    storeID,
			status:     h.Status,
			createdAt:  h.CreatedAt,
			payload: models.Suggestion{
				ID:       id.String(),
				Category: h.Category,
				Tier:     h.Tier,
				Title:    h.Title,
				Problem:  h.Description,
			},
		})
	}
}

func clone[T any](in T) T {
	var out T
	data, err := json.Marshal(in)
	if err != nil {
		panic(fmt.Sprintf("memory store: marshal %T: %v", in, err))
	}
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("memory store: unmarshal %T: %v", in, err))
	}
	return out
}

type memoryAnalyses MemoryStore

func (m *memoryAnalyses) Create(_ context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.analyses {
		if existing.StoreID == a.StoreID && !existing.Status.IsTerminal() {
			return apperrors.ErrAnalysisRunning
		}
	}
	now := time.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AnalysisStatusPending
	}
	a.CreatedAt = now
	a.UpdatedAt = now
	stored := clone(*a)
	m.analyses[a.ID] = &stored
	return nil
}

func (m *memoryAnalyses) UpdateProgress(_ context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.analyses[a.ID]
	if !ok {
		return apperrors.ErrNotFound
	}
	a.UpdatedAt = time.Now()
	stored.Status = a.Status
	stored.CurrentStage = clone(a.CurrentStage)
	stored.Stages = clone(a.Stages)
	stored.StartedAt = a.StartedAt
	stored.UpdatedAt = a.UpdatedAt
	return nil
}

func (m *memoryAnalyses) Complete(_ context.Context, a *models.Analysis) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.analyses[a.ID]; !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	a.Status = models.AnalysisStatusCompleted
	a.CurrentStage = nil
	a.ErrorMessage = nil
	a.CompletedAt = &now
	a.UpdatedAt = now

	stored := clone(*a)
	stored.Suggestions = nil
	m.analyses[a.ID] = &stored
	for _, s := range a.Suggestions {
		m.suggestions = append(m.suggestions, memorySuggestion{
			id:         uuid.New(),
			analysisID: a.ID,
			storeID:    a.StoreID,
			status:     models.SuggestionStatusPending,
			createdAt:  now,
			payload:    clone(s),
		})
	}
	return nil
}

func (m *memoryAnalyses) Fail(_ context.Context, id uuid.UUID, message string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored, ok := m.analyses[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	now := time.Now()
	*stored = models.Analysis{
		ID:           stored.ID,
		StoreID:      stored.StoreID,
		Status:       models.AnalysisStatusFailed,
		Stages:       stored.Stages,
		ErrorMessage: &message,
		StartedAt:    stored.StartedAt,
		CompletedAt:  &now,
		CreatedAt:    stored.CreatedAt,
		UpdatedAt:    now,
	}
	return nil
}

func (m *memoryAnalyses) Get(_ context.Context, id uuid.UUID) (*models.Analysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored, ok := m.analyses[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	out := clone(*stored)
	if out.Status != models.AnalysisStatusCompleted {
		return &out, nil
	}
	out.Suggestions = []models.Suggestion{}
	for _, s := range m.suggestions {
		if s.analysisID == id {
			out.Suggestions = append(out.Suggestions, clone(s.payload))
		}
	}
	return &out, nil
}

func (m *memoryAnalyses) ListPrior(_ context.Context, storeID uuid.UUID, limit int) ([]models.PriorAnalysis, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.PriorAnalysis, 0)
	for _, a := range m.analyses {
		if a.StoreID != storeID || a.Status != models.AnalysisStatusCompleted || a.CompletedAt == nil {
			continue
		}
		p := models.PriorAnalysis{ID: a.ID, CompletedAt: *a.CompletedAt}
		if a.Metrics != nil {
			if s := a.Metrics.Metrics.Health.Score; s != nil {
				score := *s
				p.HealthScore = &score
			}
			p.Classification = a.Metrics.Metrics.Health.Classification
		}
		if a.Digest != nil {
			p.Summary = a.Digest.SpecialContext
		}
		for _, s := range m.suggestions {
			if s.analysisID == a.ID {
				p.SuggestionCount++
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CompletedAt.After(out[j].CompletedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memorySuggestions MemoryStore

func (m *memorySuggestions) ListByAnalysis(_ context.Context, analysisID uuid.UUID) ([]models.Suggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Suggestion, 0)
	for _, s := range m.suggestions {
		if s.analysisID == analysisID {
			out = append(out, clone(s.payload))
		}
	}
	return out, nil
}

func (m *memorySuggestions) History(_ context.Context, storeID uuid.UUID) ([]models.HistoricalSuggestion, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.HistoricalSuggestion, 0)
	for _, s := range m.suggestions {
		if s.storeID != storeID {
			continue
		}
		out = append(out, models.HistoricalSuggestion{
			ID:          s.id,
			AnalysisID:  s.analysisID,
			Category:    s.payload.Category,
			Tier:        s.payload.Tier,
			Title:       s.payload.Title,
			Description: s.payload.Problem,
			Status:      s.status,
			CreatedAt:   s.createdAt,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (m *memorySuggestions) UpdateStatus(_ context.Context, id uuid.UUID, status models.SuggestionStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.suggestions {
		if m.suggestions[i].id == id {
			m.suggestions[i].status = status
			return nil
		}
	}
	return apperrors.ErrNotFound
}

type memoryKnowledge MemoryStore

func (m *memoryKnowledge) GetBenchmarks(_ context.Context, niche string) (*models.NicheBenchmarks, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.benchmarks[niche]
	if !ok {
		return nil, nil
	}
	out := clone(*b)
	return &out, nil
}

func (m *memoryKnowledge) UpsertBenchmarks(_ context.Context, b *models.NicheBenchmarks) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := clone(*b)
	m.benchmarks[b.Niche] = &stored
	return nil
}

func (m *memoryKnowledge) ListStrategies(_ context.Context, niche string, limit int) ([]models.StrategySnippet, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.StrategySnippet, 0)
	for _, s := range m.strategies {
		if s.Niche == niche {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryKnowledge) UpsertStrategy(_ context.Context, s *models.StrategySnippet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.strategies[s.ID] = *s
	return nil
}

func (m *memoryKnowledge) ListTrends(_ context.Context, niche string, limit int) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	all := m.trends[niche]
	out := make([]string, 0, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		out = append(out, all[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *memoryKnowledge) AddTrend(_ context.Context, niche, trend string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trends[niche] = append(m.trends[niche], trend)
	return nil
}

type memoryConversations MemoryStore

func (m *memoryConversations) Save(_ context.Context, conv *models.LLMConversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	stored := *conv
	m.conversations = append(m.conversations, &stored)
	return nil
}

func (m *memoryConversations) GetByAnalysis(_ context.Context, analysisID uuid.UUID) ([]*models.LLMConversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.LLMConversation, 0)
	for _, c := range m.conversations {
		if c.AnalysisID != nil && *c.AnalysisID == analysisID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryConversations) GetByStore(_ context.Context, storeID uuid.UUID, limit int) ([]*models.LLMConversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.LLMConversation, 0)
	for i := len(m.conversations) - 1; i >= 0; i-- {
		if m.conversations[i].StoreID == storeID {
			cp := *m.conversations[i]
			out = append(out, &cp)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
