package llm

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ProviderConfig configures one backend in a Router.
type ProviderConfig struct {
	Provider Provider
	Endpoint string
	Model    string
	APIKey   string
}

// Router dispatches each call to the backend named by GenerateOptions.Provider,
// or to the default backend when none is named.
type Router struct {
	generators map[Provider]TextGenerator
	fallback   Provider
	logger     *zap.Logger
}

// NewRouter creates a router over prebuilt generators. The default provider
// must be among them.
func NewRouter(defaultProvider Provider, generators map[Provider]TextGenerator, logger *zap.Logger) (*Router, error) {
	if _, ok := generators[defaultProvider]; !ok {
		return nil, fmt.Errorf("default provider %q is not configured", defaultProvider)
	}
	return &Router{
		generators: generators,
		fallback:   defaultProvider,
		logger:     logger.Named("llm.router"),
	}, nil
}

// BuildRouter constructs one adapter per config and stacks the wrappers on
// each: calls are recorded (when recorder is non-nil) and guarded by a
// per-provider circuit breaker.
func BuildRouter(
	ctx context.Context,
	defaultProvider Provider,
	providers []ProviderConfig,
	breaker CircuitBreakerConfig,
	recorder ConversationRecorder,
	logger *zap.Logger,
) (*Router, error) {
	generators := make(map[Provider]TextGenerator, len(providers))
	for _, pc := range providers {
		adapter, err := newAdapter(ctx, pc, logger)
		if err != nil {
			return nil, fmt.Errorf("configure %s: %w", pc.Provider, err)
		}
		var g TextGenerator = adapter
		if recorder != nil {
			g = NewRecordingGenerator(g, recorder)
		}
		generators[pc.Provider] = NewBreakerGenerator(g, breaker, logger)
	}
	return NewRouter(defaultProvider, generators, logger)
}

func newAdapter(ctx context.Context, pc ProviderConfig, logger *zap.Logger) (TextGenerator, error) {
	cfg := &Config{Endpoint: pc.Endpoint, Model: pc.Model, APIKey: pc.APIKey}
	switch pc.Provider {
	case ProviderOpenAI:
		if cfg.Endpoint == "" {
			cfg.Endpoint = "https://api.openai.com/v1"
		}
		return NewOpenAIGenerator(cfg, logger)
	case ProviderAnthropic:
		return NewAnthropicGenerator(cfg, logger)
	case ProviderGemini:
		return NewGeminiGenerator(ctx, cfg, logger)
	}
	return nil, fmt.Errorf("unknown provider %q", pc.Provider)
}

// Generate implements TextGenerator.
func (r *Router) Generate(ctx context.Context, messages []Message, opts GenerateOptions) (string, error) {
	g, err := r.route(opts.Provider)
	if err != nil {
		return "", err
	}
	return g.Generate(ctx, messages, opts)
}

func (r *Router) route(p Provider) (TextGenerator, error) {
	if p == "" {
		p = r.fallback
	}
	g, ok := r.generators[p]
	if !ok {
		return nil, NewError(ErrorTypeModel, fmt.Sprintf("provider %q is not configured", p), false, nil)
	}
	return g, nil
}

// Providers lists the configured providers in name order.
func (r *Router) Providers() []Provider {
	out := make([]Provider, 0, len(r.generators))
	for p := range r.generators {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// BreakerStates reports the circuit state of every provider that has one.
func (r *Router) BreakerStates() map[Provider]CircuitState {
	out := make(map[Provider]CircuitState)
	for p, g := range r.generators {
		if b, ok := g.(*BreakerGenerator); ok {
			out[p] = b.Breaker().State()
		}
	}
	return out
}

// Provider implements Described for the default backend.
func (r *Router) Provider() Provider { return r.fallback }

// Model implements Described for the default backend.
func (r *Router) Model() string { _, m, _ := describe(r.generators[r.fallback]); return m }

// Endpoint implements Described for the default backend.
func (r *Router) Endpoint() string { _, _, e := describe(r.generators[r.fallback]); return e }

var _ TextGenerator = (*Router)(nil)
