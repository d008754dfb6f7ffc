package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for growth-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, API keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"3443"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	BaseURL  string `yaml:"base_url" env:"BASE_URL" env-default:""` // Auto-derived from Port if empty
	Version  string `yaml:"-"`                                      // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Redis caches the knowledge bundle. Optional.
	Redis RedisConfig `yaml:"redis"`

	// Text-generation backends
	AI AIConfig `yaml:"ai"`

	// Pipeline tuning
	Pipeline PipelineConfig `yaml:"pipeline"`

	// Knowledge retrieval
	Knowledge KnowledgeConfig `yaml:"knowledge"`

	Logging LoggingConfig `yaml:"logging"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"growth"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"growth_engine"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// RedisConfig holds Redis connection configuration.
// An empty Host disables caching.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST" env-default:""`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

// ProviderConfig is one text-generation backend.
type ProviderConfig struct {
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"-"`
}

// IsAvailable returns true if the backend can be called.
func (p *ProviderConfig) IsAvailable() bool {
	return p.Model != "" && p.APIKey != ""
}

// AIConfig holds the text-generation backends and call defaults.
type AIConfig struct {
	// Provider is the default backend: openai, anthropic or gemini.
	Provider string `yaml:"provider" env:"AI_PROVIDER" env-default:"openai"`

	OpenAI    ProviderConfig `yaml:"openai"`
	Anthropic ProviderConfig `yaml:"anthropic"`
	Gemini    ProviderConfig `yaml:"gemini"`

	OpenAIKey    string `yaml:"-" env:"OPENAI_API_KEY"`
	AnthropicKey string `yaml:"-" env:"ANTHROPIC_API_KEY"`
	GeminiKey    string `yaml:"-" env:"GEMINI_API_KEY"`

	MaxTokens int `yaml:"max_tokens" env:"AI_MAX_TOKENS" env-default:"8192"`

	// Temperatures per kind of stage. Extraction stages run cold.
	ExtractionTemperature float64 `yaml:"extraction_temperature" env:"AI_EXTRACTION_TEMPERATURE" env-default:"0.2"`
	CreativeTemperature   float64 `yaml:"creative_temperature" env:"AI_CREATIVE_TEMPERATURE" env-default:"0.7"`

	// Consecutive backend failures before a provider is short-circuited.
	BreakerThreshold int           `yaml:"breaker_threshold" env:"AI_BREAKER_THRESHOLD" env-default:"5"`
	BreakerCooldown  time.Duration `yaml:"breaker_cooldown" env:"AI_BREAKER_COOLDOWN" env-default:"30s"`
}

// PipelineConfig tunes the analysis stages.
type PipelineConfig struct {
	StrategicCount           int           `yaml:"strategic_count" env:"PIPELINE_STRATEGIC_COUNT" env-default:"6"`
	TacticalCount            int           `yaml:"tactical_count" env:"PIPELINE_TACTICAL_COUNT" env-default:"6"`
	SelectionRatio           float64       `yaml:"selection_ratio" env:"PIPELINE_SELECTION_RATIO" env-default:"0.5"`
	TitleSimilarityThreshold float64       `yaml:"title_similarity_threshold" env:"PIPELINE_TITLE_SIMILARITY_THRESHOLD" env-default:"0.70"`
	TargetQualityAverage     float64       `yaml:"target_quality_average" env:"PIPELINE_TARGET_QUALITY_AVERAGE" env-default:"6.5"`
	MaxQualityAverage        float64       `yaml:"max_quality_average" env:"PIPELINE_MAX_QUALITY_AVERAGE" env-default:"8.0"`
	MinExternalJustified     int           `yaml:"min_external_justified" env:"PIPELINE_MIN_EXTERNAL_JUSTIFIED" env-default:"2"`
	TopPriorities            int           `yaml:"top_priorities" env:"PIPELINE_TOP_PRIORITIES" env-default:"3"`
	MinActionSteps           int           `yaml:"min_action_steps" env:"PIPELINE_MIN_ACTION_STEPS" env-default:"2"`
	GoalCoverageRatio        float64       `yaml:"goal_coverage_ratio" env:"PIPELINE_GOAL_COVERAGE_RATIO" env-default:"0.8"`
	StageMaxRetries          int           `yaml:"stage_max_retries" env:"PIPELINE_STAGE_MAX_RETRIES" env-default:"2"`
	StageTimeout             time.Duration `yaml:"stage_timeout" env:"PIPELINE_STAGE_TIMEOUT" env-default:"180s"`
	// BatchConcurrency bounds how many stores a batch analyzes at once.
	BatchConcurrency int `yaml:"batch_concurrency" env:"PIPELINE_BATCH_CONCURRENCY" env-default:"4"`
}

// KnowledgeConfig controls knowledge retrieval.
type KnowledgeConfig struct {
	CacheTTL     time.Duration `yaml:"cache_ttl" env:"KNOWLEDGE_CACHE_TTL" env-default:"1h"`
	SnippetLimit int           `yaml:"snippet_limit" env:"KNOWLEDGE_SNIPPET_LIMIT" env-default:"8"`
}

// LoggingConfig selects the logger flavour.
type LoggingConfig struct {
	Level  string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"` // json or console
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile("config.yaml", version)
}

// LoadFile is Load with an explicit path.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return cfg.finish()
}

// LoadEnv builds the configuration from defaults and environment variables
// only, for runs without a config file.
func LoadEnv(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	return cfg.finish()
}

func (c *Config) finish() (*Config, error) {
	c.bindSecrets()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	// Auto-derive BaseURL from Port if not explicitly set
	if c.BaseURL == "" {
		c.BaseURL = (&url.URL{
			Scheme: "http",
			Host:   "localhost:" + c.Port,
		}).String()
	}

	return c, nil
}

// bindSecrets copies env-only API keys into their provider sections.
func (c *Config) bindSecrets() {
	c.AI.OpenAI.APIKey = c.AI.OpenAIKey
	c.AI.Anthropic.APIKey = c.AI.AnthropicKey
	c.AI.Gemini.APIKey = c.AI.GeminiKey
	c.AI.Provider = strings.ToLower(strings.TrimSpace(c.AI.Provider))
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	p := c.Pipeline
	switch {
	case p.StrategicCount <= 0 || p.TacticalCount <= 0:
		return fmt.Errorf("strategic_count and tactical_count must be positive")
	case p.SelectionRatio <= 0 || p.SelectionRatio >= 1:
		return fmt.Errorf("selection_ratio must be in (0,1), got %v", p.SelectionRatio)
	case p.TitleSimilarityThreshold <= 0 || p.TitleSimilarityThreshold > 1:
		return fmt.Errorf("title_similarity_threshold must be in (0,1], got %v", p.TitleSimilarityThreshold)
	case p.MaxQualityAverage <= 0 || p.MaxQualityAverage > 10:
		return fmt.Errorf("max_quality_average must be in (0,10], got %v", p.MaxQualityAverage)
	case p.TargetQualityAverage > p.MaxQualityAverage:
		return fmt.Errorf("target_quality_average must not exceed max_quality_average")
	case p.GoalCoverageRatio <= 0 || p.GoalCoverageRatio > 1:
		return fmt.Errorf("goal_coverage_ratio must be in (0,1], got %v", p.GoalCoverageRatio)
	case p.TopPriorities <= 0 || p.MinActionSteps <= 0:
		return fmt.Errorf("top_priorities and min_action_steps must be positive")
	case p.MinExternalJustified < 0 || p.StageMaxRetries < 0:
		return fmt.Errorf("min_external_justified and stage_max_retries must not be negative")
	case p.StageTimeout <= 0:
		return fmt.Errorf("stage_timeout must be positive")
	case p.BatchConcurrency <= 0:
		return fmt.Errorf("batch_concurrency must be positive")
	}

	switch c.AI.Provider {
	case "openai", "anthropic", "gemini":
	default:
		return fmt.Errorf("unknown ai provider %q", c.AI.Provider)
	}
	return nil
}

// ConnectionString returns a PostgreSQL connection string.
func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		ResolveHost(c.Host), c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr returns host:port, or "" when Redis is disabled.
func (c *RedisConfig) Addr() string {
	if c.Host == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", ResolveHost(c.Host), c.Port)
}
