package cmd

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/config"
	"github.com/ekaya-inc/growth-engine/pkg/database"
	"github.com/ekaya-inc/growth-engine/pkg/llm"
	"github.com/ekaya-inc/growth-engine/pkg/prompts"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
	"github.com/ekaya-inc/growth-engine/pkg/services"
)

// storage is the repository set a pipeline runs against.
type storage struct {
	analyses      repositories.AnalysisRepository
	suggestions   repositories.SuggestionRepository
	knowledge     repositories.KnowledgeRepository
	conversations repositories.ConversationRepository

	// memory is set when nothing is persisted.
	memory *repositories.MemoryStore
	db     *database.DB
}

func memoryStorage() *storage {
	m := repositories.NewMemoryStore()
	return &storage{
		analyses:      m.Analyses(),
		suggestions:   m.Suggestions(),
		knowledge:     m.Knowledge(),
		conversations: m.Conversations(),
		memory:        m,
	}
}

// postgresStorage connects to the configured database and applies pending
// migrations.
func postgresStorage(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage, error) {
	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return &storage{
		analyses:      repositories.NewAnalysisRepository(db),
		suggestions:   repositories.NewSuggestionRepository(db),
		knowledge:     repositories.NewKnowledgeRepository(db),
		conversations: repositories.NewConversationRepository(db),
		db:            db,
	}, nil
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*database.DB, error) {
	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB := db.SQLDB()
	defer func() { _ = sqlDB.Close() }()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("Connected to database",
		zap.String("host", cfg.Database.Host),
		zap.Int("port", cfg.Database.Port),
		zap.String("database", cfg.Database.Database))
	return db, nil
}

func (s *storage) close() {
	if s.db != nil {
		s.db.Close()
	}
}

// engine is everything a command needs to run analyses.
type engine struct {
	store    *storage
	router   *llm.Router
	recorder *llm.AsyncConversationRecorder
	redis    *redis.Client
	pipeline services.AnalysisPipeline
	logger   *zap.Logger
}

// buildEngine wires the text-generation router, knowledge retrieval and the
// six stages into a pipeline over store. redisClient may be nil.
func buildEngine(ctx context.Context, cfg *config.Config, store *storage, redisClient *redis.Client, logger *zap.Logger) (*engine, error) {
	providers := configuredProviders(cfg)
	if len(providers) == 0 {
		return nil, fmt.Errorf("no text-generation provider configured: set a model and API key for %q", cfg.AI.Provider)
	}

	recorder := llm.NewAsyncConversationRecorder(store.conversations, logger, 200)
	router, err := llm.BuildRouter(ctx, llm.Provider(cfg.AI.Provider), providers,
		llm.CircuitBreakerConfig{Threshold: cfg.AI.BreakerThreshold, ResetAfter: cfg.AI.BreakerCooldown},
		recorder, logger)
	if err != nil {
		recorder.Close()
		return nil, err
	}

	knowledge := services.NewKnowledgeSource(store.knowledge, cfg.Knowledge.SnippetLimit, logger)
	knowledge = services.NewCachedKnowledgeSource(knowledge, redisClient, cfg.Knowledge.CacheTTL, logger)

	stages := services.NewStages(router, prompts.NewRenderer(), cfg, logger)
	pipeline, err := services.NewAnalysisPipeline(store.analyses, store.suggestions, knowledge,
		services.NoopRefunder{Logger: logger}, stages.Nodes(logger), logger)
	if err != nil {
		recorder.Close()
		return nil, err
	}

	logger.Info("Analysis engine ready",
		zap.String("default_provider", cfg.AI.Provider),
		zap.Any("providers", router.Providers()),
		zap.Bool("knowledge_cache", redisClient != nil))

	return &engine{
		store:    store,
		router:   router,
		recorder: recorder,
		redis:    redisClient,
		pipeline: pipeline,
		logger:   logger,
	}, nil
}

// close stops the pipeline, flushes recorded conversations and releases
// connections, in that order.
func (e *engine) close(ctx context.Context) {
	if err := e.pipeline.Shutdown(ctx); err != nil {
		e.logger.Warn("Pipeline shutdown incomplete", zap.Error(err))
	}
	e.recorder.Close()
	if e.redis != nil {
		if err := e.redis.Close(); err != nil {
			e.logger.Warn("Failed to close Redis client", zap.Error(err))
		}
	}
	e.store.close()
}

// configuredProviders lists the backends that have a model and an API key.
func configuredProviders(cfg *config.Config) []llm.ProviderConfig {
	var out []llm.ProviderConfig
	add := func(p llm.Provider, pc config.ProviderConfig) {
		if pc.IsAvailable() {
			out = append(out, llm.ProviderConfig{Provider: p, Endpoint: config.ResolveBaseURL(pc.BaseURL), Model: pc.Model, APIKey: pc.APIKey})
		}
	}
	add(llm.ProviderOpenAI, cfg.AI.OpenAI)
	add(llm.ProviderAnthropic, cfg.AI.Anthropic)
	add(llm.ProviderGemini, cfg.AI.Gemini)
	return out
}
