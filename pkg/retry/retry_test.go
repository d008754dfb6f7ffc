package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) *Config {
	return &Config{
		MaxRetries:   maxRetries,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 100*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 5*time.Second, cfg.MaxDelay)
	assert.InDelta(t, 2.0, cfg.Multiplier, 1e-9)
	assert.Equal(t, 5, cfg.MaxSameErrorType)
}

func TestStageConfig(t *testing.T) {
	assert.Equal(t, 2, StageConfig(2).MaxRetries)
	assert.Equal(t, 0, StageConfig(-1).MaxRetries)
	assert.Zero(t, StageConfig(2).MaxSameErrorType)
}

func TestDo_SuccessAfterRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(3), func() error {
		calls++
		if calls < 3 {
			return errors.New("permanent-looking error")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestDo_MaxRetriesExhausted(t *testing.T) {
	calls := 0
	boom := errors.New("boom")
	err := Do(context.Background(), fastConfig(2), func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)
}

func TestDo_ContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{MaxRetries: 5, InitialDelay: time.Hour, MaxDelay: time.Hour, Multiplier: 2}

	calls := 0
	err := Do(ctx, cfg, func() error {
		calls++
		cancel()
		return errors.New("connection refused")
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestDoWithResult_KeepsLastResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), fastConfig(1), func() (int, error) {
		calls++
		return calls * 10, errors.New("still failing")
	})
	require.Error(t, err)
	assert.Equal(t, 20, got)
}

func TestDoWithResult_NilConfigUsesDefaults(t *testing.T) {
	got, err := DoWithResult(context.Background(), nil, func() (string, error) { return "ok", nil })
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
}

func TestWait_CapsAtMaxDelay(t *testing.T) {
	cfg := &Config{InitialDelay: time.Millisecond, MaxDelay: 3 * time.Millisecond, Multiplier: 10}
	next, err := cfg.wait(context.Background(), time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, 3*time.Millisecond, next)
}

func TestApplyJitter(t *testing.T) {
	assert.Equal(t, time.Second, applyJitter(time.Second, 0))
	for i := 0; i < 50; i++ {
		d := applyJitter(time.Second, 0.1)
		assert.GreaterOrEqual(t, d, 900*time.Millisecond)
		assert.LessOrEqual(t, d, 1100*time.Millisecond)
	}
}

type declared struct{ retryable bool }

func (d declared) Error() string     { return "declared 503" }
func (d declared) IsRetryable() bool { return d.retryable }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"connection refused", errors.New("dial tcp: connection refused"), true},
		{"503", errors.New("HTTP 503"), true},
		{"anthropic overloaded", errors.New("overloaded_error"), true},
		{"auth", errors.New("invalid api key"), false},
		{"canceled", context.Canceled, false},
		{"declares retryable", declared{true}, true},
		{"declares permanent despite 503 text", declared{false}, false},
		{"wrapped declaration", errors.Join(errors.New("stage analyst"), declared{false}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}

func TestDoIfRetryable_StopsOnPermanentError(t *testing.T) {
	calls := 0
	perm := errors.New("authentication failed")
	err := DoIfRetryable(context.Background(), fastConfig(3), func() error {
		calls++
		return perm
	})
	assert.Equal(t, perm, err)
	assert.Equal(t, 1, calls)
}

func TestDoIfRetryable_EscalatesRepeatedErrorType(t *testing.T) {
	cfg := fastConfig(10)
	cfg.MaxSameErrorType = 3

	calls := 0
	err := DoIfRetryable(context.Background(), cfg, func() error {
		calls++
		return errors.New("HTTP 503")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "repeated error (3 times, type=503)")
	assert.Equal(t, 3, calls)
}

func TestDoIfRetryableWithResult_AttemptsAndOnRetry(t *testing.T) {
	cfg := fastConfig(2)
	var retried []int
	cfg.OnRetry = func(attempt int, err error) { retried = append(retried, attempt) }

	var attempts []int
	got, err := DoIfRetryableWithResult(context.Background(), cfg, func(attempt int) (string, error) {
		attempts = append(attempts, attempt)
		if attempt < 3 {
			return "", declared{true}
		}
		return "done", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "done", got)
	assert.Equal(t, []int{1, 2, 3}, attempts)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoIfRetryableWithResult_Exhausted(t *testing.T) {
	calls := 0
	_, err := DoIfRetryableWithResult(context.Background(), fastConfig(2), func(attempt int) (int, error) {
		calls++
		return 0, declared{true}
	})
	require.Error(t, err)
	assert.Equal(t, 3, calls)
}
