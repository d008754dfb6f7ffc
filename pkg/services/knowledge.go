package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ekaya-inc/growth-engine/pkg/locale"
	"github.com/ekaya-inc/growth-engine/pkg/models"
	"github.com/ekaya-inc/growth-engine/pkg/repositories"
)

// repositoryKnowledgeSource reads the knowledge store directly.
type repositoryKnowledgeSource struct {
	repo   repositories.KnowledgeRepository
	limit  int
	logger *zap.Logger
}

// NewKnowledgeSource returns a KnowledgeSource backed by the knowledge
// repository. limit caps strategy snippets and trends.
func NewKnowledgeSource(repo repositories.KnowledgeRepository, limit int, logger *zap.Logger) KnowledgeSource {
	return &repositoryKnowledgeSource{
		repo:   repo,
		limit:  limit,
		logger: logger.Named("knowledge"),
	}
}

var _ KnowledgeSource = (*repositoryKnowledgeSource)(nil)

// Load returns the niche bundle. Missing benchmarks are not an error: the
// Analyst reports the benchmark comparison as unavailable.
func (s *repositoryKnowledgeSource) Load(ctx context.Context, niche string) (*models.KnowledgeBundle, error) {
	niche = nicheKey(niche)

	bench, err := s.repo.GetBenchmarks(ctx, niche)
	if err != nil {
		return nil, fmt.Errorf("get benchmarks for %q: %w", niche, err)
	}
	strategies, err := s.repo.ListStrategies(ctx, niche, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list strategies for %q: %w", niche, err)
	}
	trends, err := s.repo.ListTrends(ctx, niche, s.limit)
	if err != nil {
		return nil, fmt.Errorf("list trends for %q: %w", niche, err)
	}

	if bench == nil {
		s.logger.Info("No benchmarks for niche", zap.String("niche", niche))
	}
	return &models.KnowledgeBundle{
		Benchmarks:   bench,
		Strategies:   strategies,
		MarketTrends: trends,
	}, nil
}

func nicheKey(niche string) string {
	return strings.ToLower(strings.TrimSpace(niche))
}

// KnowledgeCache is the subset of the Redis client the cache uses.
type KnowledgeCache interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

var _ KnowledgeCache = (*redis.Client)(nil)

// CachedKnowledgeSource serves bundles from Redis and falls back to the
// wrapped source. Cache failures are logged and never fail a run.
type CachedKnowledgeSource struct {
	inner  KnowledgeSource
	cache  KnowledgeCache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCachedKnowledgeSource wraps inner with a Redis cache. A nil cache
// returns inner unchanged.
func NewCachedKnowledgeSource(inner KnowledgeSource, cache KnowledgeCache, ttl time.Duration, logger *zap.Logger) KnowledgeSource {
	if cache == nil {
		return inner
	}
	// A typed nil client from an unconfigured Redis is still "no cache".
	if c, ok := cache.(*redis.Client); ok && c == nil {
		return inner
	}
	return &CachedKnowledgeSource{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		logger: logger.Named("knowledge-cache"),
	}
}

func knowledgeCacheKey(niche string) string {
	return "knowledge:v1:" + strings.ReplaceAll(locale.Normalize(niche), " ", "-")
}

// Load implements KnowledgeSource.
func (c *CachedKnowledgeSource) Load(ctx context.Context, niche string) (*models.KnowledgeBundle, error) {
	key := knowledgeCacheKey(niche)

	data, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var bundle models.KnowledgeBundle
		jsonErr := json.Unmarshal(data, &bundle)
		if jsonErr == nil {
			c.logger.Debug("Knowledge cache hit", zap.String("key", key))
			return &bundle, nil
		}
		c.logger.Warn("Discarding unreadable cache entry", zap.String("key", key), zap.Error(jsonErr))
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("Knowledge cache read failed", zap.String("key", key), zap.Error(err))
	}

	bundle, err := c.inner.Load(ctx, niche)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(bundle); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Knowledge cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
	return bundle, nil
}
