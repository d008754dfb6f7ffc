// Package llm is the text-generation boundary of the pipeline: a
// provider-agnostic TextGenerator, one adapter per vendor, and the
// wrappers (routing, circuit breaking, recording) stacked on top.
package llm

import (
	"context"
)

// Role is the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one chat turn sent to a backend.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Provider names a backend vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderMock      Provider = "mock"
)

// GenerateOptions tune a single call. A zero Provider means the router's default.
type GenerateOptions struct {
	Temperature float64
	MaxTokens   int
	Provider    Provider
}

// TextGenerator returns the text of one completion. Implementations must
// not assume anything about the caller beyond "messages in, text out".
type TextGenerator interface {
	Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)
}

// Described is implemented by generators that can name their backend for
// logs and conversation records.
type Described interface {
	Provider() Provider
	Model() string
	Endpoint() string
}

// SplitSystem separates system messages (joined) from the chat turns, for
// vendors that take the system prompt as a separate field.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	turns := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		turns = append(turns, m)
	}
	return system, turns
}

func describe(g TextGenerator) (Provider, string, string) {
	if d, ok := g.(Described); ok {
		return d.Provider(), d.Model(), d.Endpoint()
	}
	return "", "", ""
}
