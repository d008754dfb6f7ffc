package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ekaya-inc/growth-engine/pkg/database"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// ConversationRepository provides data access for LLM conversation records.
type ConversationRepository interface {
	Save(ctx context.Context, conv *models.LLMConversation) error
	GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.LLMConversation, error)
	GetByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]*models.LLMConversation, error)
}

type conversationRepository struct {
	db *database.DB
}

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(db *database.DB) ConversationRepository {
	return &conversationRepository{db: db}
}

var _ ConversationRepository = (*conversationRepository)(nil)

func (r *conversationRepository) Save(ctx context.Context, conv *models.LLMConversation) error {
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = time.Now()
	}
	if conv.ID == uuid.Nil {
		conv.ID = uuid.New()
	}

	// Marshal JSONB fields
	requestMessagesJSON, err := json.Marshal(conv.RequestMessages)
	if err != nil {
		return fmt.Errorf("failed to marshal request_messages: %w", err)
	}
	var contextJSON []byte
	if conv.Context != nil {
		contextJSON, err = json.Marshal(conv.Context)
		if err != nil {
			return fmt.Errorf("failed to marshal context: %w", err)
		}
	}

	// Use NULL for empty error_message (success cases)
	var errorMessage *string
	if conv.ErrorMessage != "" {
		errorMessage = &conv.ErrorMessage
	}

	query := `
		INSERT INTO llm_conversations (
			id, store_id, analysis_id, stage, context,
			provider, model, request_messages, temperature, max_tokens,
			response_content, duration_ms, status, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.Conn(ctx).Exec(ctx, query,
		conv.ID, conv.StoreID, conv.AnalysisID, conv.Stage, contextJSON,
		conv.Provider, conv.Model, requestMessagesJSON, conv.Temperature, conv.MaxTokens,
		conv.ResponseContent, conv.DurationMs, conv.Status, errorMessage, conv.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save llm conversation: %w", err)
	}
	return nil
}

func (r *conversationRepository) GetByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*models.LLMConversation, error) {
	query := `
		SELECT id, store_id, analysis_id, stage, context,
		       provider, model, request_messages, temperature, max_tokens,
		       response_content, duration_ms, status, error_message, created_at
		FROM llm_conversations
		WHERE analysis_id = $1
		ORDER BY created_at ASC`

	rows, err := r.db.Conn(ctx).Query(ctx, query, analysisID)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	return scanConversationRows(rows)
}

func (r *conversationRepository) GetByStore(ctx context.Context, storeID uuid.UUID, limit int) ([]*models.LLMConversation, error) {
	query := `
		SELECT id, store_id, analysis_id, stage, context,
		       provider, model, request_messages, temperature, max_tokens,
		       response_content, duration_ms, status, error_message, created_at
		FROM llm_conversations
		WHERE store_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.db.Conn(ctx).Query(ctx, query, storeID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query conversations: %w", err)
	}
	defer rows.Close()

	return scanConversationRows(rows)
}

func scanConversationRows(rows pgx.Rows) ([]*models.LLMConversation, error) {
	conversations := make([]*models.LLMConversation, 0)

	for rows.Next() {
		var conv models.LLMConversation
		var contextJSON, requestMessagesJSON []byte
		var responseContent, errorMessage *string

		err := rows.Scan(
			&conv.ID, &conv.StoreID, &conv.AnalysisID, &conv.Stage, &contextJSON,
			&conv.Provider, &conv.Model, &requestMessagesJSON, &conv.Temperature, &conv.MaxTokens,
			&responseContent, &conv.DurationMs, &conv.Status, &errorMessage, &conv.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}

		if len(contextJSON) > 0 {
			if err := json.Unmarshal(contextJSON, &conv.Context); err != nil {
				return nil, fmt.Errorf("failed to unmarshal context: %w", err)
			}
		}
		if err := json.Unmarshal(requestMessagesJSON, &conv.RequestMessages); err != nil {
			return nil, fmt.Errorf("failed to unmarshal request_messages: %w", err)
		}
		if responseContent != nil {
			conv.ResponseContent = *responseContent
		}
		if errorMessage != nil {
			conv.ErrorMessage = *errorMessage
		}
		conversations = append(conversations, &conv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return conversations, nil
}
