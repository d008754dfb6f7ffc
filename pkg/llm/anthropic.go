package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/liushuangls/go-anthropic/v2"
	"go.uber.org/zap"
)

const defaultAnthropicMaxTokens = 8192

// AnthropicGenerator talks to the Anthropic Messages API.
type AnthropicGenerator struct {
	client   *anthropic.Client
	endpoint string
	model    string
	logger   *zap.Logger
}

// NewAnthropicGenerator creates an Anthropic adapter. Endpoint is optional.
func NewAnthropicGenerator(cfg *Config, logger *zap.Logger) (*AnthropicGenerator, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("api key is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("model is required")
	}

	var opts []anthropic.ClientOption
	if cfg.Endpoint != "" {
		opts = append(opts, anthropic.WithBaseURL(strings.TrimSuffix(cfg.Endpoint, "/")))
	}

	return &AnthropicGenerator{
		client:   anthropic.NewClient(cfg.APIKey, opts...),
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		logger:   logger.Named("llm.anthropic"),
	}, nil
}

// Generate implements TextGenerator.
func (g *AnthropicGenerator) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	system, turns := SplitSystem(messages)
	msgs := make([]anthropic.Message, 0, len(turns))
	for _, m := range turns {
		text := m.Content
		role := anthropic.RoleUser
		if m.Role == RoleAssistant {
			role = anthropic.RoleAssistant
		}
		msgs = append(msgs, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{{Type: "text", Text: &text}},
		})
	}

	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	temperature := float32(opts.Temperature)

	start := time.Now()
	resp, err := g.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model:       anthropic.Model(g.model),
		System:      system,
		Messages:    msgs,
		MaxTokens:   maxTokens,
		Temperature: &temperature,
	})
	if err != nil {
		g.logger.Error("LLM request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return "", g.wrap(ClassifyError(err))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}

	g.logger.Info("LLM request completed",
		zap.Int("input_tokens", resp.Usage.InputTokens),
		zap.Int("output_tokens", resp.Usage.OutputTokens),
		zap.String("stop_reason", string(resp.StopReason)),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StopReason == anthropic.MessagesStopReasonMaxTokens {
		return text.String(), g.wrap(NewError(ErrorTypeTruncated, "response hit max_tokens", true, nil))
	}
	return text.String(), nil
}

func (g *AnthropicGenerator) wrap(e *Error) *Error {
	e.Model = g.model
	e.Endpoint = g.endpoint
	return e
}

// Provider implements Described.
func (g *AnthropicGenerator) Provider() Provider { return ProviderAnthropic }

// Model implements Described.
func (g *AnthropicGenerator) Model() string { return g.model }

// Endpoint implements Described.
func (g *AnthropicGenerator) Endpoint() string { return g.endpoint }

var _ TextGenerator = (*AnthropicGenerator)(nil)
