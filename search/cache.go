package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultCacheTTL is how long a search result stays cached.
	DefaultCacheTTL = time.Minute

	cacheKeyPrefix = "search:"
)

// Cache stores search results by request. Every write to the corpus must call Invalidate.
// Get returns the key the result belongs under as of the lookup; Set must be given
// that key so a result computed before an Invalidate is never stored after it.
// An empty key disables Set.
type Cache interface {
	Get(ctx context.Context, req Request) (result *Result, key string, ok bool)
	Set(ctx context.Context, key string, result *Result)
	Invalidate(ctx context.Context)
}

type NoopCache struct{}

func (NoopCache) Get(context.Context, Request) (*Result, string, bool) { return nil, "", false }
func (NoopCache) Set(context.Context, string, *Result)                {}
func (NoopCache) Invalidate(context.Context)                          {}

// ConnectRedis creates a Redis client and verifies the connection with a ping.
func ConnectRedis(addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

// RedisCache keys results under a generation counter; Invalidate bumps the
// generation so stale entries are never read again and expire by TTL.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

func NewRedisCache(client *redis.Client, ttl time.Duration) *RedisCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &RedisCache{
		client: client,
		ttl:    ttl,
		logger: log.With().Str("component", "searchCache").Logger(),
	}
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, cacheKeyPrefix+"generation").Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *RedisCache) key(ctx context.Context, req Request) (string, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return "", err
	}
	encoded, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%d:%s", cacheKeyPrefix, gen, encoded), nil
}

func (c *RedisCache) Get(ctx context.Context, req Request) (*Result, string, bool) {
	key, err := c.key(ctx, req)
	if err != nil {
		c.logger.Warn().Err(err).Msg("search cache key error")
		return nil, "", false
	}

	val, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, key, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Msg("search cache get error")
		return nil, "", false
	}

	var result Result
	if err := json.Unmarshal(val, &result); err != nil {
		c.logger.Warn().Err(err).Msg("search cache entry is corrupt")
		return nil, key, false
	}
	c.logger.Debug().Str("key", key).Msg("search cache hit")
	return &result, key, true
}

// Set stores result under key, as returned by the Get that missed.
func (c *RedisCache) Set(ctx context.Context, key string, result *Result) {
	if key == "" {
		return
	}
	val, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Msg("search cache encode error")
		return
	}
	if err := c.client.Set(ctx, key, val, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("search cache set error")
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, cacheKeyPrefix+"generation").Err(); err != nil {
		c.logger.Warn().Err(err).Msg("search cache invalidate error")
	}
}
