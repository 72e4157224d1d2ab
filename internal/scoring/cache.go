package scoring

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/calderbuild/BenchScope/internal/model"
	scoreschema "github.com/calderbuild/BenchScope/schema"
)

const (
	cacheKeyPrefix = "benchscope:score:"
	localCacheSize = 512
)

// Cache stores validated score responses in redis with an in-process LRU in
// front of it. Every operation degrades gracefully: a broken cache never
// fails a scoring run, it only removes the shortcut.
type Cache struct {
	rdb    *redis.Client
	local  *lru.Cache[string, *scoreschema.ScoreResponse]
	ttl    time.Duration
	logger zerolog.Logger
}

// NewCache connects to redis and verifies the connection. A nil return with
// error means redis is unreachable; callers may still construct a local-only
// cache via NewLocalCache.
func NewCache(ctx context.Context, redisURL string, ttlDays int, logger zerolog.Logger) (*Cache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	local, err := lru.New[string, *scoreschema.ScoreResponse](localCacheSize)
	if err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("build local cache: %w", err)
	}

	return &Cache{
		rdb:    rdb,
		local:  local,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		logger: logger.With().Str("component", "score-cache").Logger(),
	}, nil
}

// NewLocalCache builds a cache without a redis backend. Used when redis is
// down so the current batch still avoids duplicate scoring calls.
func NewLocalCache(logger zerolog.Logger) *Cache {
	local, err := lru.New[string, *scoreschema.ScoreResponse](localCacheSize)
	if err != nil {
		// Only possible with a non-positive size constant.
		panic(err)
	}
	return &Cache{
		local:  local,
		logger: logger.With().Str("component", "score-cache").Logger(),
	}
}

// Key derives the stable cache key for a candidate.
func Key(cand model.RawCandidate) string {
	digest := md5.Sum([]byte(cand.Title + ":" + cand.URL))
	return cacheKeyPrefix + hex.EncodeToString(digest[:])
}

// Get returns a cached response or nil.
func (c *Cache) Get(ctx context.Context, cand model.RawCandidate) *scoreschema.ScoreResponse {
	if c == nil {
		return nil
	}
	key := Key(cand)

	if resp, ok := c.local.Get(key); ok {
		return resp
	}
	if c.rdb == nil {
		return nil
	}

	raw, err := c.rdb.Get(ctx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("redis read failed")
		}
		return nil
	}

	var resp scoreschema.ScoreResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cached score is corrupt, dropping")
		c.rdb.Del(ctx, key)
		return nil
	}

	c.local.Add(key, &resp)
	return &resp
}

// Put stores a validated response.
func (c *Cache) Put(ctx context.Context, cand model.RawCandidate, resp *scoreschema.ScoreResponse) {
	if c == nil || resp == nil {
		return
	}
	key := Key(cand)
	c.local.Add(key, resp)

	if c.rdb == nil {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		c.logger.Warn().Err(err).Msg("marshal cached score failed")
		return
	}
	if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("redis write failed")
	}
}

// Ping reports backend health for the health command.
func (c *Cache) Ping(ctx context.Context) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis is not connected")
	}
	return c.rdb.Ping(ctx).Err()
}

// Close releases the redis connection.
func (c *Cache) Close() error {
	if c == nil || c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}
