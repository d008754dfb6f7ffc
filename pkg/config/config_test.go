package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig writes yamlContent to a temp config.yaml and returns its path.
func writeConfig(t *testing.T, yamlContent string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0644))
	return path
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"PGHOST", "BASE_URL", "PORT", "ENVIRONMENT", "AI_PROVIDER", "OPENAI_API_KEY", "PIPELINE_SELECTION_RATIO"} {
		if v, ok := os.LookupEnv(key); ok {
			os.Unsetenv(key)
			t.Cleanup(func() { os.Setenv(key, v) })
		}
	}
}

func TestLoad_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
port: "3443"
env: "test"
database:
  host: "db.example.com"
  port: 5432
  user: "testuser"
  database: "testdb"
redis:
  host: "redis.example.com"
  port: 6379
`)

	// Change to the temp directory so Load() finds config.yaml
	originalDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(filepath.Dir(path)))
	t.Cleanup(func() { _ = os.Chdir(originalDir) })

	t.Setenv("PORT", "4443")
	t.Setenv("ENVIRONMENT", "production")

	cfg, err := Load("test-version")
	require.NoError(t, err)

	assert.Equal(t, "4443", cfg.Port)
	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "test-version", cfg.Version)
	assert.Equal(t, "http://localhost:4443", cfg.BaseURL)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr())
}

func TestLoad_PipelineDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadFile(writeConfig(t, "env: test\n"), "v")
	require.NoError(t, err)

	p := cfg.Pipeline
	assert.Equal(t, 6, p.StrategicCount)
	assert.Equal(t, 6, p.TacticalCount)
	assert.InDelta(t, 0.5, p.SelectionRatio, 1e-9)
	assert.InDelta(t, 0.70, p.TitleSimilarityThreshold, 1e-9)
	assert.InDelta(t, 6.5, p.TargetQualityAverage, 1e-9)
	assert.InDelta(t, 8.0, p.MaxQualityAverage, 1e-9)
	assert.Equal(t, 2, p.MinExternalJustified)
	assert.Equal(t, 3, p.TopPriorities)
	assert.Equal(t, 2, p.MinActionSteps)
	assert.InDelta(t, 0.8, p.GoalCoverageRatio, 1e-9)
	assert.Equal(t, 2, p.StageMaxRetries)
	assert.Equal(t, 180*time.Second, p.StageTimeout)

	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, time.Hour, cfg.Knowledge.CacheTTL)
	assert.Empty(t, cfg.Redis.Addr(), "redis disabled without host")
}

func TestLoad_SecretsOnlyFromEnv(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
ai:
  provider: Anthropic
  openai:
    model: gpt-4o-mini
`)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := LoadFile(path, "v")
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.AI.Provider)
	assert.Equal(t, "sk-test", cfg.AI.OpenAI.APIKey)
	assert.True(t, cfg.AI.OpenAI.IsAvailable())
	assert.False(t, cfg.AI.Anthropic.IsAvailable())
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"ratio one", "pipeline:\n  selection_ratio: 1\n", "selection_ratio"},
		{"ratio zero env", "", "selection_ratio"},
		{"threshold", "pipeline:\n  title_similarity_threshold: 1.5\n", "title_similarity_threshold"},
		{"counts", "pipeline:\n  strategic_count: -1\n", "strategic_count"},
		{"provider", "ai:\n  provider: cohere\n", "unknown ai provider"},
		{"quality", "pipeline:\n  target_quality_average: 9\n", "target_quality_average"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			if tt.name == "ratio zero env" {
				t.Setenv("PIPELINE_SELECTION_RATIO", "0")
			}
			_, err := LoadFile(writeConfig(t, "env: test\n"+tt.yaml), "v")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoad_MissingConfigFile(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{Host: "db.internal", Port: 5433, User: "u", Password: "p", Database: "d", SSLMode: "require"}
	assert.Equal(t, "host=db.internal port=5433 user=u password=p dbname=d sslmode=require", cfg.ConnectionString())
}

func TestLoadEnv_WithoutFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("PIPELINE_SELECTION_RATIO", "0.4")

	cfg, err := LoadEnv("v")
	require.NoError(t, err)
	assert.Equal(t, 0.4, cfg.Pipeline.SelectionRatio)
	assert.Equal(t, "openai", cfg.AI.Provider)
	assert.Equal(t, "http://localhost:3443", cfg.BaseURL)
}
