package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"psi-rag/internal/models"
	"psi-rag/pkg/config"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ComputeFunc produces the result for a cache miss.
type ComputeFunc func(ctx context.Context) (models.RetrievalResult, error)

// RetrievalCache memoises retrieval results by query. Concurrent misses for
// the same key may both compute; the last write wins. Errors are never cached.
type RetrievalCache interface {
	GetOrCompute(ctx context.Context, query models.RetrievalQuery, compute ComputeFunc) (models.RetrievalResult, error)
	Clear(ctx context.Context) error
}

// CacheKey hashes category, context and top_k. encoding/json writes map keys
// in sorted order, so equal contexts give equal keys.
func CacheKey(query models.RetrievalQuery) string {
	ctxJSON, err := json.Marshal(query.Context)
	if err != nil {
		ctxJSON = []byte(fmt.Sprintf("%v", query.Context))
	}

	h := sha256.New()
	h.Write([]byte(query.Category))
	h.Write([]byte{0})
	h.Write(ctxJSON)
	h.Write([]byte{0})
	h.Write([]byte(fmt.Sprintf("%d", query.TopK)))
	return hex.EncodeToString(h.Sum(nil))
}

// NewRetrievalCache builds the cache selected by cfg.
func NewRetrievalCache(ctx context.Context, cfg *config.CacheConfig, logger *zap.Logger) (RetrievalCache, error) {
	if !cfg.Enabled {
		return NoopCache{}, nil
	}

	switch cfg.Backend {
	case "memory", "":
		return NewLRUCache(cfg.Size, cfg.TTL, logger), nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}
		return NewRedisCache(client, cfg.TTL, logger), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Backend)
	}
}

// LRUCache keeps results in process memory. A size of 0 means unbounded and
// a TTL of 0 means entries never expire.
type LRUCache struct {
	cache  *expirable.LRU[string, models.RetrievalResult]
	logger *zap.Logger
}

func NewLRUCache(size int, ttl time.Duration, logger *zap.Logger) *LRUCache {
	if size < 0 {
		size = 0
	}
	if ttl < 0 {
		ttl = 0
	}
	return &LRUCache{
		cache:  expirable.NewLRU[string, models.RetrievalResult](size, nil, ttl),
		logger: logger,
	}
}

func (c *LRUCache) GetOrCompute(ctx context.Context, query models.RetrievalQuery, compute ComputeFunc) (models.RetrievalResult, error) {
	key := CacheKey(query)
	if cached, ok := c.cache.Get(key); ok {
		c.logger.Debug("retrieval cache hit", zap.String("category", query.Category))
		return cloneResult(cached), nil
	}

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, cloneResult(result))
	return result, nil
}

func (c *LRUCache) Clear(ctx context.Context) error {
	c.cache.Purge()
	return nil
}

func (c *LRUCache) Len() int {
	return c.cache.Len()
}

// RedisCache shares results between service instances. Redis failures fall
// back to computing the result.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	prefix string
	logger *zap.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisCache {
	return &RedisCache{
		client: client,
		ttl:    ttl,
		prefix: "psi-rag:retrieval:",
		logger: logger,
	}
}

func (c *RedisCache) GetOrCompute(ctx context.Context, query models.RetrievalQuery, compute ComputeFunc) (models.RetrievalResult, error) {
	key := c.prefix + CacheKey(query)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached models.RetrievalResult
		if err := json.Unmarshal(data, &cached); err == nil {
			c.logger.Debug("retrieval cache hit", zap.String("category", query.Category))
			return cached, nil
		}
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", key))
	case err != redis.Nil:
		c.logger.Warn("Redis cache read failed", zap.Error(err))
	}

	result, err := compute(ctx)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.logger.Warn("Redis cache write failed", zap.Error(err))
		}
	}
	return result, nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete cache keys: %w", err)
	}
	return nil
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// NoopCache always computes.
type NoopCache struct{}

func (NoopCache) GetOrCompute(ctx context.Context, query models.RetrievalQuery, compute ComputeFunc) (models.RetrievalResult, error) {
	return compute(ctx)
}

func (NoopCache) Clear(ctx context.Context) error {
	return nil
}

func cloneResult(r models.RetrievalResult) models.RetrievalResult {
	if r == nil {
		return nil
	}
	out := make(models.RetrievalResult, len(r))
	copy(out, r)
	return out
}
