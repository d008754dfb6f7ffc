package llm

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	llmContextKey contextKey = "llm_context"
)

// Context keys recorded with every conversation.
const (
	ContextAnalysisID = "analysis_id"
	ContextStoreID    = "store_id"
	ContextStage      = "stage"
	ContextAttempt    = "attempt"
)

// WithContext returns a context with LLM recording context attached.
// The context map is merged with any existing context.
func WithContext(ctx context.Context, values map[string]any) context.Context {
	existing := GetContext(ctx)
	if existing == nil {
		existing = make(map[string]any)
	}
	for k, v := range values {
		existing[k] = v
	}
	return context.WithValue(ctx, llmContextKey, existing)
}

// GetContext retrieves the LLM recording context from context, if present.
func GetContext(ctx context.Context) map[string]any {
	if c, ok := ctx.Value(llmContextKey).(map[string]any); ok {
		// Return a copy to prevent mutation
		out := make(map[string]any, len(c))
		for k, v := range c {
			out[k] = v
		}
		return out
	}
	return nil
}

// WithStageContext tags calls made on behalf of one pipeline stage.
func WithStageContext(ctx context.Context, analysisID, storeID uuid.UUID, stage string) context.Context {
	values := map[string]any{ContextStage: stage}
	if analysisID != uuid.Nil {
		values[ContextAnalysisID] = analysisID.String()
	}
	if storeID != uuid.Nil {
		values[ContextStoreID] = storeID.String()
	}
	return WithContext(ctx, values)
}

// StageFromContext returns the stage tag, or "".
func StageFromContext(ctx context.Context) string {
	s, _ := GetContext(ctx)[ContextStage].(string)
	return s
}

// uuidFromContext parses a uuid stored under key.
func uuidFromContext(values map[string]any, key string) *uuid.UUID {
	s, ok := values[key].(string)
	if !ok {
		return nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return nil
	}
	return &id
}
