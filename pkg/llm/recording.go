package llm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ekaya-inc/growth-engine/pkg/logging"
	"github.com/ekaya-inc/growth-engine/pkg/models"
)

// RecordingGenerator wraps a TextGenerator and records every call, with the
// verbatim request and response, tagged with the stage context of ctx.
type RecordingGenerator struct {
	inner    TextGenerator
	recorder ConversationRecorder
}

// NewRecordingGenerator creates a new recording wrapper around a TextGenerator.
func NewRecordingGenerator(inner TextGenerator, recorder ConversationRecorder) *RecordingGenerator {
	return &RecordingGenerator{inner: inner, recorder: recorder}
}

// Generate calls the inner generator and records the conversation.
func (g *RecordingGenerator) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	values := GetContext(ctx)
	provider, model, _ := describe(g.inner)

	requestMessages := make([]any, 0, len(messages))
	for _, m := range messages {
		requestMessages = append(requestMessages, map[string]string{"role": string(m.Role), "content": m.Content})
	}

	temperature := opts.Temperature
	conv := &models.LLMConversation{
		ID:              uuid.New(),
		Context:         values,
		Provider:        string(provider),
		Model:           model,
		RequestMessages: requestMessages,
		Temperature:     &temperature,
		MaxTokens:       opts.MaxTokens,
	}
	if opts.Provider != "" && conv.Provider == "" {
		conv.Provider = string(opts.Provider)
	}
	conv.Stage, _ = values[ContextStage].(string)
	if id := uuidFromContext(values, ContextStoreID); id != nil {
		conv.StoreID = *id
	}
	conv.AnalysisID = uuidFromContext(values, ContextAnalysisID)

	start := time.Now()
	text, err := g.inner.Generate(ctx, messages, opts)
	conv.DurationMs = int(time.Since(start).Milliseconds())
	conv.ResponseContent = text

	switch {
	case err == nil:
		conv.Status = models.LLMConversationStatusSuccess
	case IsTruncated(err):
		conv.Status = models.LLMConversationStatusTruncated
		conv.ErrorMessage = logging.SanitizeError(err)
	case errors.Is(err, context.DeadlineExceeded):
		conv.Status = models.LLMConversationStatusTimeout
		conv.ErrorMessage = logging.SanitizeError(err)
	default:
		conv.Status = models.LLMConversationStatusError
		conv.ErrorMessage = logging.SanitizeError(err)
	}

	g.recorder.Record(conv)
	return text, err
}

// Provider returns the inner generator's provider.
func (g *RecordingGenerator) Provider() Provider { p, _, _ := describe(g.inner); return p }

// Model returns the inner generator's model.
func (g *RecordingGenerator) Model() string { _, m, _ := describe(g.inner); return m }

// Endpoint returns the inner generator's endpoint.
func (g *RecordingGenerator) Endpoint() string { _, _, e := describe(g.inner); return e }

var _ TextGenerator = (*RecordingGenerator)(nil)
