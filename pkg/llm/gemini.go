package llm

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// GeminiGenerator talks to the Gemini API through the GenAI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiGenerator creates a Gemini adapter.
func NewGeminiGenerator(ctx context.Context, cfg *Config, logger *zap.Logger) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
		model:  cfg.Model,
		logger: logger.Named("llm.gemini"),
	}, nil
}

// Generate implements TextGenerator.
func (g *GeminiGenerator) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	system, turns := SplitSystem(messages)
	contents := make([]*genai.Content, 0, len(turns))
	for _, m := range turns {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(opts.Temperature)),
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		g.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", g.wrap(ClassifyError(err))
	}

	text := resp.Text()
	g.logger.Info("LLM request completed",
		zap.Int("response_len", len(text)),
		zap.Duration("elapsed", time.Since(start)))

	if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens {
		return text, g.wrap(NewError(ErrorTypeTruncated, "response hit max_tokens", true, nil))
	}
	return text, nil
}

func (g *GeminiGenerator) wrap(e *Error) *Error {
	e.Model = g.model
	return e
}

// Provider implements Described.
func (g *GeminiGenerator) Provider() Provider { return ProviderGemini }

// Model implements Described.
func (g *GeminiGenerator) Model() string { return g.model }

// Endpoint implements Described.
func (g *GeminiGenerator) Endpoint() string { return "" }

var _ TextGenerator = (*GeminiGenerator)(nil)
