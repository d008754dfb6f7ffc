package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/config"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/prompts"
	"github.com/ekaya-inc/growth-engine/pkg/retry"
)

// StageSettings tunes the backend calls of one stage.
type StageSettings struct {
	MaxRetries  int
	Timeout     time.Duration
	Temperature float64
	MaxTokens   int
	Provider    llm.Provider
}

// ExtractionSettings is used by the stages that summarize data: low
// temperature, same retry budget.
func ExtractionSettings(cfg *config.Config) StageSettings {
	return StageSettings{
		MaxRetries:  cfg.Pipeline.StageMaxRetries,
		Timeout:     cfg.Pipeline.StageTimeout,
		Temperature: cfg.AI.ExtractionTemperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Provider:    llm.Provider(cfg.AI.Provider),
	}
}

// CreativeSettings is used by the Strategist and the Critic.
func CreativeSettings(cfg *config.Config) StageSettings {
	s := ExtractionSettings(cfg)
	s.Temperature = cfg.AI.CreativeTemperature
	return s
}

// stageCaller runs a rendered prompt against the backend and validates the
// answer. Every failure mode (transport, truncation, malformed JSON, missing
// keys, English text) is retried locally within the stage budget.
type stageCaller struct {
	gen      llm.TextGenerator
	settings StageSettings
	logger   *zap.Logger
}

func newStageCaller(gen llm.TextGenerator, settings StageSettings, logger *zap.Logger) *stageCaller {
	return &stageCaller{gen: gen, settings: settings, logger: logger}
}

type stageRequest struct {
	prompt       prompts.Prompt
	required     []string
	skipLanguage []string
}

func callStage[T any](ctx context.Context, c *stageCaller, req stageRequest) (*llm.StageResponse[T], error) {
	stage := llm.StageFromContext(ctx)
	cfg := retry.StageConfig(c.settings.MaxRetries)
	cfg.OnRetry = func(attempt int, err error) {
		c.logger.Warn("Stage attempt failed, retrying",
			zap.String("stage", stage),
			zap.Int("attempt", attempt),
			zap.String("error_type", string(llm.GetErrorType(err))),
			zap.Error(err))
	}

	messages := []llm.Message{
		{Role: llm.RoleSystem, Content: req.prompt.System},
		{Role: llm.RoleUser, Content: req.prompt.User},
	}
	opts := llm.GenerateOptions{
		Temperature: c.settings.Temperature,
		MaxTokens:   c.settings.MaxTokens,
		Provider:    c.settings.Provider,
	}

	return retry.DoIfRetryableWithResult(ctx, cfg, func(attempt int) (*llm.StageResponse[T], error) {
		countAttempt(ctx)
		callCtx := llm.WithContext(ctx, map[string]any{llm.ContextAttempt: attempt})
		if c.settings.Timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(callCtx, c.settings.Timeout)
			defer cancel()
		}

		started := time.Now()
		text, err := c.gen.Generate(callCtx, messages, opts)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, llm.ClassifyError(err)
		}

		resp, err := llm.ParseStageResponse[T](text, req.required...)
		if err != nil {
			return nil, err
		}
		if err := llm.CheckLanguage(resp.Tree(), req.skipLanguage...); err != nil {
			return nil, err
		}

		c.logger.Debug("Stage response accepted",
			zap.String("stage", stage),
			zap.Int("attempt", attempt),
			zap.Duration("elapsed", time.Since(started)))
		return resp, nil
	})
}

type attemptsKey struct{}

// withAttemptCounter returns a context whose stage calls are counted.
func withAttemptCounter(ctx context.Context) (context.Context, *atomic.Int32) {
	counter := &atomic.Int32{}
	return context.WithValue(ctx, attemptsKey{}, counter), counter
}

func countAttempt(ctx context.Context) {
	if counter, ok := ctx.Value(attemptsKey{}).(*atomic.Int32); ok {
		counter.Add(1)
	}
}
