package cache

import (
	"context"
	"crypto/sha1"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"parkspace-backend/internal/domain"
	"parkspace-backend/internal/logger"
)

// LotCache holds recent search pages. It is read-through only: a miss or a
// backend failure always falls back to the store.
type LotCache interface {
	// GetSearch resolves the versioned key for f once and returns it with
	// the page. A miss is refilled through SetSearch under that same key, so
	// an invalidation in between orphans the write instead of serving it.
	// The key is empty when the cache cannot be used.
	GetSearch(ctx context.Context, f domain.LotFilter) (page *domain.LotPage, key string, hit bool)
	SetSearch(ctx context.Context, key string, page *domain.LotPage)
	// Invalidate drops every cached page. Called whenever availability or
	// lot data changes.
	Invalidate(ctx context.Context)
}

const defaultPrefix = "parkspace:lots"

type redisLotCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	prefix string
}

// NewRedisLotCache versions its keys through a counter so one INCR
// invalidates all pages without scanning.
func NewRedisLotCache(rdb *redis.Client, ttl time.Duration) LotCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &redisLotCache{rdb: rdb, ttl: ttl, prefix: defaultPrefix}
}

// NewRedisClient builds a client and pings it; a nil client means the cache
// should be disabled.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (c *redisLotCache) versionKey() string {
	return c.prefix + ":version"
}

func (c *redisLotCache) version(ctx context.Context) (int64, error) {
	v, err := c.rdb.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// FilterKey derives a stable key suffix for a filter.
func FilterKey(f domain.LotFilter) string {
	raw, _ := json.Marshal(f)
	return fmt.Sprintf("%x", sha1.Sum(raw))
}

func (c *redisLotCache) key(ctx context.Context, f domain.LotFilter) (string, error) {
	v, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:v%d:%s", c.prefix, v, FilterKey(f)), nil
}

func (c *redisLotCache) GetSearch(ctx context.Context, f domain.LotFilter) (*domain.LotPage, string, bool) {
	key, err := c.key(ctx, f)
	if err != nil {
		logger.Warn("Search cache unavailable", "error", err)
		return nil, "", false
	}
	bs, err := c.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("Search cache read failed", "key", key, "error", err)
		}
		return nil, key, false
	}
	var page domain.LotPage
	if err := json.Unmarshal(bs, &page); err != nil {
		logger.Warn("Search cache entry corrupt", "key", key, "error", err)
		return nil, key, false
	}
	return &page, key, true
}

func (c *redisLotCache) SetSearch(ctx context.Context, key string, page *domain.LotPage) {
	if key == "" {
		return
	}
	bs, err := json.Marshal(page)
	if err != nil {
		logger.Warn("Search cache encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, key, bs, c.ttl).Err(); err != nil {
		logger.Warn("Search cache write failed", "key", key, "error", err)
	}
}

func (c *redisLotCache) Invalidate(ctx context.Context) {
	if err := c.rdb.Incr(ctx, c.versionKey()).Err(); err != nil {
		logger.Warn("Search cache invalidation failed", "error", err)
	}
}

type nopLotCache struct{}

// NewNopLotCache returns a cache that never hits.
func NewNopLotCache() LotCache {
	return nopLotCache{}
}

func (nopLotCache) GetSearch(context.Context, domain.LotFilter) (*domain.LotPage, string, bool) {
	return nil, "", false
}

func (nopLotCache) SetSearch(context.Context, string, *domain.LotPage) {}

func (nopLotCache) Invalidate(context.Context) {}
