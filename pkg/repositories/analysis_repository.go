package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/database"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// AnalysisRepository provides data access for analysis runs.
type AnalysisRepository interface {
	// Create inserts a pending run. Returns apperrors.ErrAnalysisRunning when
	// the store already has an active run.
	Create(ctx context.Context, a *models.Analysis) error
	// UpdateProgress persists status, current stage and stage runs.
	UpdateProgress(ctx context.Context, a *models.Analysis) error
	// Complete stores every stage output and the curated slate atomically.
	Complete(ctx context.Context, a *models.Analysis) error
	// Fail marks the run failed. No stage output is kept.
	Fail(ctx context.Context, id uuid.UUID, message string) error
	Get(ctx context.Context, id uuid.UUID) (*models.Analysis, error)
	// ListPrior returns digests of completed runs for a store, newest first.
	ListPrior(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PriorAnalysis, error)
}

// analysisResult is the JSONB layout of analyses.result.
type analysisResult struct {
	Profile      *models.ProfileResult    `json:"profile,omitempty"`
	Digest       *models.CollectorDigest  `json:"digest,omitempty"`
	Analyst      *models.AnalystResult    `json:"analyst,omitempty"`
	Similarity   *models.SimilarityReport `json:"similarity,omitempty"`
	Quality      *models.CriticSummary    `json:"quality,omitempty"`
	GoalCoverage *models.GoalCoverage     `json:"goal_coverage,omitempty"`
}

type analysisRepository struct {
	db          *database.DB
	suggestions *suggestionRepository
}

// NewAnalysisRepository creates a new AnalysisRepository.
func NewAnalysisRepository(db *database.DB) AnalysisRepository {
	return &analysisRepository{db: db, suggestions: &suggestionRepository{db: db}}
}

var _ AnalysisRepository = (*analysisRepository)(nil)

func (r *analysisRepository) Create(ctx context.Context, a *models.Analysis) error {
	now := time.Now()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = models.AnalysisStatusPending
	}
	a.CreatedAt = now
	a.UpdatedAt = now

	stagesJSON, err := json.Marshal(stagesOrEmpty(a.Stages))
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	query := `
		INSERT INTO analyses (id, store_id, status, stages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err = r.db.Conn(ctx).Exec(ctx, query, a.ID, a.StoreID, a.Status, stagesJSON, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return apperrors.ErrAnalysisRunning
		}
		return fmt.Errorf("failed to create analysis: %w", err)
	}
	return nil
}

func (r *analysisRepository) UpdateProgress(ctx context.Context, a *models.Analysis) error {
	a.UpdatedAt = time.Now()
	stagesJSON, err := json.Marshal(stagesOrEmpty(a.Stages))
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	var stage *string
	if a.CurrentStage != nil {
		s := string(*a.CurrentStage)
		stage = &s
	}

	query := `
		UPDATE analyses
		SET status = $2, current_stage = $3, stages = $4, started_at = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, a.ID, a.Status, stage, stagesJSON, a.StartedAt, a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to update analysis progress: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *analysisRepository) Complete(ctx context.Context, a *models.Analysis) error {
	now := time.Now()
	a.Status = models.AnalysisStatusCompleted
	a.CurrentStage = nil
	a.CompletedAt = &now
	a.UpdatedAt = now

	resultJSON, err := json.Marshal(analysisResult{
		Profile:      a.Profile,
		Digest:       a.Digest,
		Analyst:      a.Metrics,
		Similarity:   a.Similarity,
		Quality:      a.Quality,
		GoalCoverage: a.GoalCoverage,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal analysis result: %w", err)
	}
	stagesJSON, err := json.Marshal(stagesOrEmpty(a.Stages))
	if err != nil {
		return fmt.Errorf("failed to marshal stages: %w", err)
	}

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE analyses
			SET status = $2, current_stage = NULL, stages = $3, result = $4,
			    error_message = NULL, completed_at = $5, updated_at = $5
			WHERE id = $1`

		tag, err := r.db.Conn(ctx).Exec(ctx, query, a.ID, a.Status, stagesJSON, resultJSON, now)
		if err != nil {
			return fmt.Errorf("failed to complete analysis: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}
		return r.suggestions.insertSlate(ctx, a.ID, a.StoreID, a.Suggestions)
	})
}

func (r *analysisRepository) Fail(ctx context.Context, id uuid.UUID, message string) error {
	query := `
		UPDATE analyses
		SET status = 'failed', current_stage = NULL, result = NULL,
		    error_message = $2, completed_at = now(), updated_at = now()
		WHERE id = $1`

	tag, err := r.db.Conn(ctx).Exec(ctx, query, id, message)
	if err != nil {
		return fmt.Errorf("failed to mark analysis failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *analysisRepository) Get(ctx context.Context, id uuid.UUID) (*models.Analysis, error) {
	query := `
		SELECT id, store_id, status, current_stage, stages, error_message, result,
		       started_at, completed_at, created_at, updated_at
		FROM analyses
		WHERE id = $1`

	var a models.Analysis
	var stage *string
	var stagesJSON, resultJSON []byte
	err := r.db.Conn(ctx).QueryRow(ctx, query, id).Scan(
		&a.ID, &a.StoreID, &a.Status, &stage, &stagesJSON, &a.ErrorMessage, &resultJSON,
		&a.StartedAt, &a.CompletedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get analysis: %w", err)
	}

	if stage != nil {
		s := models.StageName(*stage)
		a.CurrentStage = &s
	}
	if len(stagesJSON) > 0 {
		if err := json.Unmarshal(stagesJSON, &a.Stages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal stages: %w", err)
		}
	}

	// Outputs are only exposed for completed runs.
	if a.Status != models.AnalysisStatusCompleted || len(resultJSON) == 0 {
		return &a, nil
	}

	var res analysisResult
	if err := json.Unmarshal(resultJSON, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal analysis result: %w", err)
	}
	a.Profile = res.Profile
	a.Digest = res.Digest
	a.Metrics = res.Analyst
	a.Similarity = res.Similarity
	a.Quality = res.Quality
	a.GoalCoverage = res.GoalCoverage

	a.Suggestions, err = r.suggestions.ListByAnalysis(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *analysisRepository) ListPrior(ctx context.Context, storeID uuid.UUID, limit int) ([]models.PriorAnalysis, error) {
	query := `
		SELECT a.id, a.completed_at,
		       (a.result->'analyst'->'metrics'->'health'->>'score')::int,
		       COALESCE(a.result->'analyst'->'metrics'->'health'->>'classification', ''),
		       COALESCE(a.result->'digest'->>'special_context', ''),
		       (SELECT COUNT(*) FROM suggestions s WHERE s.analysis_id = a.id)
		FROM analyses a
		WHERE a.store_id = $1 AND a.status = 'completed'
		ORDER BY a.completed_at DESC
		LIMIT $2`

	rows, err := r.db.Conn(ctx).Query(ctx, query, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list prior analyses: %w", err)
	}
	defer rows.Close()

	out := make([]models.PriorAnalysis, 0)
	for rows.Next() {
		var p models.PriorAnalysis
		var class string
		if err := rows.Scan(&p.ID, &p.CompletedAt, &p.HealthScore, &class, &p.Summary, &p.SuggestionCount); err != nil {
			return nil, fmt.Errorf("failed to scan prior analysis: %w", err)
		}
		p.Classification = models.HealthClass(class)
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating prior analyses: %w", err)
	}
	return out, nil
}

func stagesOrEmpty(stages []models.StageRun) []models.StageRun {
	if stages == nil {
		return []models.StageRun{}
	}
	return stages
}
