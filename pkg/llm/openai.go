package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Config holds configuration for creating a backend adapter.
type Config struct {
	Endpoint string // Base URL, e.g., "https://api.openai.com/v1"
	Model    string // Model name, e.g., "gpt-4o"
	APIKey   string // Optional for local endpoints
}

// OpenAIGenerator talks to OpenAI-compatible chat completion endpoints.
type OpenAIGenerator struct {
	client   *openai.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// NewOpenAIGenerator creates an adapter for an OpenAI-compatible endpoint.
func NewOpenAIGenerator(cfg *Config, logger *zap.Logger) (*OpenAIGenerator, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.BaseURL = strings.TrimSuffix(cfg.Endpoint, "/")

	return &OpenAIGenerator{
		client:   openai.NewClientWithConfig(clientConfig),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger.Named("llm.openai"),
	}, nil
}

// Generate implements TextGenerator.
func (g *OpenAIGenerator) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	chat := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		chat = append(chat, openai.ChatCompletionMessage{Role: string(m.Role), Content: m.Content})
	}

	g.logger.Debug("LLM request",
		zap.String("model", g.model),
		zap.Int("messages", len(messages)),
		zap.Float64("temperature", opts.Temperature))

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Messages:    chat,
		Temperature: float32(opts.Temperature),
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		g.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", g.wrap(ClassifyError(err))
	}
	if len(resp.Choices) == 0 {
		return "", g.wrap(NewError(ErrorTypeMalformed, "no choices in response", true, nil))
	}

	choice := resp.Choices[0]
	g.logger.Info("LLM request completed",
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		zap.String("finish_reason", string(choice.FinishReason)),
		zap.Duration("elapsed", time.Since(start)))

	if choice.FinishReason == openai.FinishReasonLength {
		return choice.Message.Content, g.wrap(NewError(ErrorTypeTruncated, "response hit max_tokens", true, nil))
	}
	return choice.Message.Content, nil
}

func (g *OpenAIGenerator) wrap(e *Error) *Error {
	e.Model = g.model
	e.Endpoint = g.endpoint
	return e
}

// Provider implements Described.
func (g *OpenAIGenerator) Provider() Provider { return ProviderOpenAI }

// Model implements Described.
func (g *OpenAIGenerator) Model() string { return g.model }

// Endpoint implements Described.
func (g *OpenAIGenerator) Endpoint() string { return g.endpoint }

var _ TextGenerator = (*OpenAIGenerator)(nil)
