package models

import (
	"time"

	"github.com/google/uuid"
)

// LLMConversation records a single backend call with verbatim input/output.
type LLMConversation struct {
	ID         uuid.UUID      `json:"id"`
	StoreID    uuid.UUID      `json:"store_id"`
	AnalysisID *uuid.UUID     `json:"analysis_id,omitempty"`
	Stage      string         `json:"stage,omitempty"`
	Context    map[string]any `json:"context,omitempty"` // Caller context (stage, attempt, ...)

	// Backend
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Request (VERBATIM)
	RequestMessages []any    `json:"request_messages"`
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxTokens       int      `json:"max_tokens,omitempty"`

	// Response (VERBATIM)
	ResponseContent string `json:"response_content,omitempty"`

	DurationMs int `json:"duration_ms"`

	// Status
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Status values for LLM conversations.
const (
	LLMConversationStatusSuccess   = "success"
	LLMConversationStatusError     = "error"
	LLMConversationStatusTimeout   = "timeout"
	LLMConversationStatusTruncated = "truncated"
)
