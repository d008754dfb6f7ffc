package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/growth-engine/pkg/apperrors"
	"github.com/ekaya-inc/growth-engine/pkg/database"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// SuggestionRepository provides data access for delivered suggestions.
type SuggestionRepository interface {
	ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.Suggestion, error)
	// History returns every suggestion delivered to the store, oldest first.
	History(ctx context.Context, storeID uuid.UUID) ([]models.HistoricalSuggestion, error)
	// UpdateStatus records the merchant's outcome for a delivered suggestion.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.SuggestionStatus) error
}

type suggestionRepository struct {
	db *database.DB
}

// NewSuggestionRepository creates a new SuggestionRepository.
func NewSuggestionRepository(db *database.DB) SuggestionRepository {
	return &suggestionRepository{db: db}
}

var _ SuggestionRepository = (*suggestionRepository)(nil)

// insertSlate runs inside the completion transaction.
func (r *suggestionRepository) insertSlate(ctx context.Context, analysisID, storeID uuid.UUID, slate []models.Suggestion) error {
	query := `
		INSERT INTO suggestions (
			id, analysis_id, store_id, slate_id, position, category, tier,
			title, description, status, payload, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'pending', $10, $11, $11)`

	now := time.Now()
	for i, s := range slate {
		payload, err := json.Marshal(s)
		if err != nil {
			return fmt.Errorf("failed to marshal suggestion %s: %w", s.ID, err)
		}
		_, err = r.db.Conn(ctx).Exec(ctx, query,
			uuid.New(), analysisID, storeID, s.ID, i, s.Category, s.Tier,
			s.Title, s.Problem, payload, now,
		)
		if err != nil {
			return fmt.Errorf("failed to save suggestion %s: %w", s.ID, err)
		}
	}
	return nil
}

func (r *suggestionRepository) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.Suggestion, error) {
	query := `
		SELECT payload
		FROM suggestions
		WHERE analysis_id = $1
		ORDER BY position`

	rows, err := r.db.Conn(ctx).Query(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to list suggestions: %w", err)
	}
	defer rows.Close()

	out := make([]models.Suggestion, 0)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan suggestion: %w", err)
		}
		var s models.Suggestion
		if err := json.Unmarshal(payload, &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal suggestion: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating suggestions: %w", err)
	}
	return out, nil
}

func (r *suggestionRepository) History(ctx context.Context, storeID uuid.UUID) ([]models.HistoricalSuggestion, error) {
	query := `
		SELECT id, analysis_id, category, tier, title, description, status, created_at
		FROM suggestions
		WHERE store_id = $1
		ORDER BY created_at, position`

	rows, err := r.db.Conn(ctx).Query(ctx, query, storeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestion history: %w", err)
	}
	defer rows.Close()

	out := make([]models.HistoricalSuggestion, 0)
	for rows.Next() {
		var h models.HistoricalSuggestion
		if err := rows.Scan(&h.ID, &h.AnalysisID, &h.Category, &h.Tier, &h.Title, &h.Description, &h.Status, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history item: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}
	return out, nil
}

func (r *suggestionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SuggestionStatus) error {
	tag, err := r.db.Conn(ctx).Exec(ctx,
		`UPDATE suggestions SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update suggestion status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
