package llm

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ekaya-inc/growth-engine/pkg/models"
)

type captureRecorder struct {
	mu    sync.Mutex
	convs []*models.LLMConversation
}

func (c *captureRecorder) Record(conv *models.LLMConversation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.convs = append(c.convs, conv)
}

func (c *captureRecorder) last(t *testing.T) *models.LLMConversation {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	require.NotEmpty(t, c.convs)
	return c.convs[len(c.convs)-1]
}

func TestRecordingGenerator_RecordsSuccess(t *testing.T) {
	analysisID, storeID := uuid.New(), uuid.New()
	mock := NewMockGenerator().On("analyst", `{"anomalies": []}`)
	rec := &captureRecorder{}
	g := NewRecordingGenerator(mock, rec)

	ctx := WithStageContext(context.Background(), analysisID, storeID, "analyst")
	ctx = WithContext(ctx, map[string]any{ContextAttempt: 1})
	text, err := g.Generate(ctx, []Message{
		{Role: RoleSystem, Content: "Você é um analista."},
		{Role: RoleUser, Content: "Analise a loja."},
	}, GenerateOptions{Temperature: 0.2, MaxTokens: 4096})
	require.NoError(t, err)
	assert.Equal(t, `{"anomalies": []}`, text)

	conv := rec.last(t)
	assert.Equal(t, models.LLMConversationStatusSuccess, conv.Status)
	assert.Equal(t, "analyst", conv.Stage)
	assert.Equal(t, storeID, conv.StoreID)
	require.NotNil(t, conv.AnalysisID)
	assert.Equal(t, analysisID, *conv.AnalysisID)
	assert.Equal(t, string(ProviderMock), conv.Provider)
	assert.Equal(t, "mock-model", conv.Model)
	assert.Equal(t, `{"anomalies": []}`, conv.ResponseContent)
	require.NotNil(t, conv.Temperature)
	assert.InDelta(t, 0.2, *conv.Temperature, 1e-9)
	assert.Equal(t, 4096, conv.MaxTokens)
	assert.Equal(t, 1, conv.Context[ContextAttempt])
	require.Len(t, conv.RequestMessages, 2)
	assert.Equal(t, map[string]string{"role": "system", "content": "Você é um analista."}, conv.RequestMessages[0])
	assert.Empty(t, conv.ErrorMessage)
}

func TestRecordingGenerator_StatusFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status string
	}{
		{"truncated", NewError(ErrorTypeTruncated, "response ends with \"...\"", true, nil), models.LLMConversationStatusTruncated},
		{"timeout", context.DeadlineExceeded, models.LLMConversationStatusTimeout},
		{"error", errors.New("status 503 overloaded"), models.LLMConversationStatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockGenerator().OnResult("critic", "partial", tt.err)
			rec := &captureRecorder{}
			g := NewRecordingGenerator(mock, rec)

			ctx := WithStageContext(context.Background(), uuid.New(), uuid.New(), "critic")
			_, err := g.Generate(ctx, []Message{{Role: RoleUser, Content: "x"}}, GenerateOptions{})
			require.ErrorIs(t, err, tt.err)

			conv := rec.last(t)
			assert.Equal(t, tt.status, conv.Status)
			assert.NotEmpty(t, conv.ErrorMessage)
			assert.Equal(t, "partial", conv.ResponseContent)
		})
	}
}

func TestRecordingGenerator_SanitizesErrorMessage(t *testing.T) {
	mock := NewMockGenerator().OnError("profile", errors.New("401 invalid api key sk-abcdefghijklmnopqrstuvwxyz123456"))
	rec := &captureRecorder{}
	g := NewRecordingGenerator(mock, rec)

	ctx := WithStageContext(context.Background(), uuid.Nil, uuid.New(), "profile")
	_, err := g.Generate(ctx, nil, GenerateOptions{})
	require.Error(t, err)

	conv := rec.last(t)
	assert.NotContains(t, conv.ErrorMessage, "sk-abcdefghijklmnopqrstuvwxyz123456")
	assert.Nil(t, conv.AnalysisID)
}

func TestRecordingGenerator_WithoutStageContext(t *testing.T) {
	mock := NewMockGenerator().On("", "{}")
	rec := &captureRecorder{}
	g := NewRecordingGenerator(mock, rec)

	_, err := g.Generate(context.Background(), nil, GenerateOptions{Provider: ProviderGemini})
	require.NoError(t, err)

	conv := rec.last(t)
	assert.Nil(t, conv.Context)
	assert.Equal(t, uuid.Nil, conv.StoreID)
	assert.Empty(t, conv.Stage)
	assert.Equal(t, string(ProviderMock), conv.Provider, "described provider wins over the requested one")
}

func TestRecordingGenerator_DescribesInner(t *testing.T) {
	mock := NewMockGenerator()
	mock.ModelName = "gpt-4o-mini"
	g := NewRecordingGenerator(mock, &captureRecorder{})

	assert.Equal(t, ProviderMock, g.Provider())
	assert.Equal(t, "gpt-4o-mini", g.Model())
	assert.Equal(t, "http://mock-endpoint", g.Endpoint())
}
