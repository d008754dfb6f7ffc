package llm

import (
	"context"
	"fmt"
	"sync"
)

// MockCall records one Generate invocation.
type MockCall struct {
	Stage    string
	Messages []Message
	Options  GenerateOptions
}

// MockGenerator is a configurable TextGenerator for tests. Responses are
// scripted per stage (the "stage" value of the LLM context) and consumed
// in order; the last scripted response repeats. GenerateFunc, when set,
// takes precedence.
type MockGenerator struct {
	GenerateFunc func(ctx context.Context, messages []Message, opts GenerateOptions) (string, error)

	// ModelName is returned by Model. Defaults to "mock-model".
	ModelName string

	mu        sync.Mutex
	responses map[string][]mockResponse
	calls     []MockCall
}

type mockResponse struct {
	text string
	err  error
}

// NewMockGenerator creates a new mock with sensible defaults.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{
		ModelName: "mock-model",
		responses: make(map[string][]mockResponse),
	}
}

// On queues a response for stage.
func (m *MockGenerator) On(stage, text string) *MockGenerator {
	return m.OnResult(stage, text, nil)
}

// OnError queues a failure for stage.
func (m *MockGenerator) OnError(stage string, err error) *MockGenerator {
	return m.OnResult(stage, "", err)
}

// OnResult queues a response and error for stage.
func (m *MockGenerator) OnResult(stage, text string, err error) *MockGenerator {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[stage] = append(m.responses[stage], mockResponse{text: text, err: err})
	return m
}

// Generate implements TextGenerator.
func (m *MockGenerator) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	stage := StageFromContext(ctx)

	m.mu.Lock()
	m.calls = append(m.calls, MockCall{Stage: stage, Messages: append([]Message(nil), messages...), Options: opts})
	fn := m.GenerateFunc
	var resp *mockResponse
	if queue := m.responses[stage]; len(queue) > 0 {
		r := queue[0]
		resp = &r
		if len(queue) > 1 {
			m.responses[stage] = queue[1:]
		}
	}
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}
	if fn != nil {
		return fn(ctx, messages, opts)
	}
	if resp == nil {
		return "", fmt.Errorf("mock generator: no response scripted for stage %q", stage)
	}
	return resp.text, resp.err
}

// Calls returns how many times Generate was invoked.
func (m *MockGenerator) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// CallsFor returns the recorded calls for stage.
func (m *MockGenerator) CallsFor(stage string) []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []MockCall
	for _, c := range m.calls {
		if c.Stage == stage {
			out = append(out, c)
		}
	}
	return out
}

// Reset clears call tracking and scripted responses.
func (m *MockGenerator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
	m.responses = make(map[string][]mockResponse)
}

// Provider implements Described.
func (m *MockGenerator) Provider() Provider { return ProviderMock }

// Model implements Described.
func (m *MockGenerator) Model() string {
	if m.ModelName == "" {
		return "mock-model"
	}
	return m.ModelName
}

// Endpoint implements Described.
func (m *MockGenerator) Endpoint() string { return "http://mock-endpoint" }

var _ TextGenerator = (*MockGenerator)(nil)
