package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/growth-engine/pkg/database"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// KnowledgeRepository provides data access for niche benchmarks, strategy
// snippets and market trends.
type KnowledgeRepository interface {
	// GetBenchmarks returns nil without error when the niche has none.
	GetBenchmarks(ctx context.Context, niche string) (*models.NicheBenchmarks, error)
	UpsertBenchmarks(ctx context.Context, b *models.NicheBenchmarks) error
	ListStrategies(ctx context.Context, niche string, limit int) ([]models.StrategySnippet, error)
	UpsertStrategy(ctx context.Context, s *models.StrategySnippet) error
	ListTrends(ctx context.Context, niche string, limit int) ([]string, error)
	AddTrend(ctx context.Context, niche, trend string) error
}

type knowledgeRepository struct {
	db *database.DB
}

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(db *database.DB) KnowledgeRepository {
	return &knowledgeRepository{db: db}
}

var _ KnowledgeRepository = (*knowledgeRepository)(nil)

func (r *knowledgeRepository) GetBenchmarks(ctx context.Context, niche string) (*models.NicheBenchmarks, error) {
	var payload []byte
	err := r.db.Conn(ctx).QueryRow(ctx, `SELECT payload FROM niche_benchmarks WHERE niche = $1`, niche).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get benchmarks: %w", err)
	}

	var b models.NicheBenchmarks
	if err := json.Unmarshal(payload, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal benchmarks: %w", err)
	}
	b.Niche = niche
	return &b, nil
}

func (r *knowledgeRepository) UpsertBenchmarks(ctx context.Context, b *models.NicheBenchmarks) error {
	payload, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal benchmarks: %w", err)
	}

	query := `
		INSERT INTO niche_benchmarks (niche, payload, updated_at)
		VALUES ($1, $2, now())
		ON CONFLICT (niche)
		DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`

	if _, err := r.db.Conn(ctx).Exec(ctx, query, b.Niche, payload); err != nil {
		return fmt.Errorf("failed to upsert benchmarks: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) ListStrategies(ctx context.Context, niche string, limit int) ([]models.StrategySnippet, error) {
	query := `
		SELECT id, niche, category, title, content, source
		FROM strategy_snippets
		WHERE niche = $1
		ORDER BY created_at DESC, id
		LIMIT $2`

	rows, err := r.db.Conn(ctx).Query(ctx, query, niche, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list strategies: %w", err)
	}
	defer rows.Close()

	out := make([]models.StrategySnippet, 0)
	for rows.Next() {
		var s models.StrategySnippet
		if err := rows.Scan(&s.ID, &s.Niche, &s.Category, &s.Title, &s.Content, &s.Source); err != nil {
			return nil, fmt.Errorf("failed to scan strategy: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating strategies: %w", err)
	}
	return out, nil
}

func (r *knowledgeRepository) UpsertStrategy(ctx context.Context, s *models.StrategySnippet) error {
	query := `
		INSERT INTO strategy_snippets (id, niche, category, title, content, source)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id)
		DO UPDATE SET
			niche = EXCLUDED.niche,
			category = EXCLUDED.category,
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			source = EXCLUDED.source`

	_, err := r.db.Conn(ctx).Exec(ctx, query, s.ID, s.Niche, s.Category, s.Title, s.Content, s.Source)
	if err != nil {
		return fmt.Errorf("failed to upsert strategy: %w", err)
	}
	return nil
}

func (r *knowledgeRepository) ListTrends(ctx context.Context, niche string, limit int) ([]string, error) {
	rows, err := r.db.Conn(ctx).Query(ctx,
		`SELECT trend FROM market_trends WHERE niche = $1 ORDER BY created_at DESC, id DESC LIMIT $2`, niche, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list trends: %w", err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan trend: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trends: %w", err)
	}
	return out, nil
}

func (r *knowledgeRepository) AddTrend(ctx context.Context, niche, trend string) error {
	if _, err := r.db.Conn(ctx).Exec(ctx, `INSERT INTO market_trends (niche, trend) VALUES ($1, $2)`, niche, trend); err != nil {
		return fmt.Errorf("failed to add trend: %w", err)
	}
	return nil
}
