package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"ytmanager-backend-go/internal/metrics"
	"ytmanager-backend-go/internal/models"
)

// Cache is the byte store behind CachedAnalytics.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	rdb *redis.Client
}

// NewRedisCache connects to url and pings it.
func NewRedisCache(ctx context.Context, url string) (*RedisCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisCache{rdb: rdb}, nil
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.rdb.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Close() error {
	return c.rdb.Close()
}

// Reporter fetches daily analytics rows.
type Reporter interface {
	Report(ctx context.Context, accessToken string, q ReportQuery) ([]models.AnalyticsDailyRow, error)
}

// CachedAnalytics serves reports from Cache when present. Cache failures
// fall through to Next.
type CachedAnalytics struct {
	Next   Reporter
	Cache  Cache
	TTL    time.Duration
	Logger zerolog.Logger
}

func (c *CachedAnalytics) Report(ctx context.Context, accessToken string, q ReportQuery) ([]models.AnalyticsDailyRow, error) {
	key := q.Key()
	if data, ok, err := c.Cache.Get(ctx, key); err != nil {
		c.Logger.Warn().Err(err).Str("key", key).Msg("analytics cache read failed")
	} else if ok {
		rows := []models.AnalyticsDailyRow{}
		if err := json.Unmarshal(data, &rows); err == nil {
			metrics.CacheHits.Inc()
			return rows, nil
		}
	}
	metrics.CacheMisses.Inc()

	rows, err := c.Next.Report(ctx, accessToken, q)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rows); err == nil {
		if err := c.Cache.Set(ctx, key, data, c.TTL); err != nil {
			c.Logger.Warn().Err(err).Str("key", key).Msg("analytics cache write failed")
		}
	}
	return rows, nil
}
