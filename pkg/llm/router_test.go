package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewRouter_RequiresDefault(t *testing.T) {
	_, err := NewRouter(ProviderAnthropic, map[Provider]TextGenerator{
		ProviderOpenAI: NewMockGenerator(),
	}, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic")
}

func TestRouter_RoutesByProvider(t *testing.T) {
	openai := NewMockGenerator().On("", "from-openai")
	anthropic := NewMockGenerator().On("", "from-anthropic")

	r, err := NewRouter(ProviderOpenAI, map[Provider]TextGenerator{
		ProviderOpenAI:    openai,
		ProviderAnthropic: anthropic,
	}, zap.NewNop())
	require.NoError(t, err)

	text, err := r.Generate(context.Background(), nil, GenerateOptions{})
	require.NoError(t, err)
	assert.Equal(t, "from-openai", text)

	text, err = r.Generate(context.Background(), nil, GenerateOptions{Provider: ProviderAnthropic})
	require.NoError(t, err)
	assert.Equal(t, "from-anthropic", text)

	assert.Equal(t, 1, openai.Calls())
	assert.Equal(t, 1, anthropic.Calls())
	assert.Equal(t, []Provider{ProviderAnthropic, ProviderOpenAI}, r.Providers())
}

func TestRouter_UnknownProvider(t *testing.T) {
	r, err := NewRouter(ProviderOpenAI, map[Provider]TextGenerator{
		ProviderOpenAI: NewMockGenerator(),
	}, zap.NewNop())
	require.NoError(t, err)

	_, err = r.Generate(context.Background(), nil, GenerateOptions{Provider: ProviderGemini})
	require.Error(t, err)
	assert.Equal(t, ErrorTypeModel, GetErrorType(err))
	assert.False(t, IsRetryable(err))
}

func TestRouter_BreakerStates(t *testing.T) {
	failing := NewMockGenerator().OnError("", NewError(ErrorTypeEndpoint, "server error", true, nil))
	breaker := NewBreakerGenerator(failing, CircuitBreakerConfig{Threshold: 1, ResetAfter: time.Minute}, zap.NewNop())

	r, err := NewRouter(ProviderOpenAI, map[Provider]TextGenerator{
		ProviderOpenAI: breaker,
		ProviderMock:   NewMockGenerator(),
	}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, map[Provider]CircuitState{ProviderOpenAI: CircuitClosed}, r.BreakerStates())

	_, err = r.Generate(context.Background(), nil, GenerateOptions{})
	require.Error(t, err)
	assert.Equal(t, CircuitOpen, r.BreakerStates()[ProviderOpenAI])

	_, err = r.Generate(context.Background(), nil, GenerateOptions{})
	assert.Equal(t, ErrorTypeCircuitOpen, GetErrorType(err))
}

func TestRouter_DescribesDefault(t *testing.T) {
	mock := NewMockGenerator()
	mock.ModelName = "claude-sonnet"
	r, err := NewRouter(ProviderMock, map[Provider]TextGenerator{ProviderMock: mock}, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, ProviderMock, r.Provider())
	assert.Equal(t, "claude-sonnet", r.Model())
	assert.Equal(t, "http://mock-endpoint", r.Endpoint())
}

func TestBuildRouter_UnknownProvider(t *testing.T) {
	_, err := BuildRouter(context.Background(), ProviderOpenAI, []ProviderConfig{
		{Provider: "mistral", Model: "large", APIKey: "x"},
	}, DefaultCircuitBreakerConfig(), nil, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mistral")
}
