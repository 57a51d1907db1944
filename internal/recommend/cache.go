package recommend

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/AlkaloidWells/GraphWork/internal/domain"
	"github.com/AlkaloidWells/GraphWork/internal/pkg/logger"
)

// Cache holds ranked results between identical queries. Misses and cache
// errors are never fatal: the engine just recomputes.
type Cache interface {
	Get(ctx context.Context, key string) ([]domain.Ranked, bool)
	Set(ctx context.Context, key string, results []domain.Ranked)
	Close() error
}

type redisCache struct {
	log *logger.Logger
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisCache connects to the Redis instance named by REDIS_ADDR. Callers
// gate on that variable being set; here an empty address is an error.
func NewRedisCache(log *logger.Logger, ttl time.Duration) (Cache, error) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &redisCache{
		log: log.With("service", "RecommendationCache"),
		rdb: rdb,
		ttl: ttl,
	}, nil
}

func (c *redisCache) Get(ctx context.Context, key string) ([]domain.Ranked, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			c.log.Warn("cache get failed", "key", key, "error", err)
		}
		return nil, false
	}
	var results []domain.Ranked
	if err := json.Unmarshal(raw, &results); err != nil {
		c.log.Warn("cache entry unreadable, ignoring", "key", key, "error", err)
		return nil, false
	}
	return results, true
}

func (c *redisCache) Set(ctx context.Context, key string, results []domain.Ranked) {
	raw, err := json.Marshal(results)
	if err != nil {
		c.log.Warn("cache set marshal failed", "key", key, "error", err)
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(key), raw, c.ttl).Err(); err != nil {
		c.log.Warn("cache set failed", "key", key, "error", err)
	}
}

func (c *redisCache) Close() error { return c.rdb.Close() }

func cacheKey(key string) string { return "rec:" + key }
