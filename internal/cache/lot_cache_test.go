package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"parkspace-backend/internal/domain"
)

func TestFilterKey(t *testing.T) {
	a := domain.LotFilter{Query: "mall", Limit: 10}
	b := domain.LotFilter{Query: "mall", Limit: 10}
	c := domain.LotFilter{Query: "mall", Limit: 20}

	assert.Equal(t, FilterKey(a), FilterKey(b))
	assert.NotEqual(t, FilterKey(a), FilterKey(c))
	assert.Len(t, FilterKey(a), 40)
}

func TestNopLotCache(t *testing.T) {
	c := NewNopLotCache()
	ctx := context.Background()

	page, key, ok := c.GetSearch(ctx, domain.LotFilter{})
	assert.False(t, ok)
	assert.Nil(t, page)
	assert.Empty(t, key)
	c.SetSearch(ctx, key, &domain.LotPage{Total: 1})
	c.Invalidate(ctx)
}

func newMiniredisCache(t *testing.T) (LotCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisLotCache(rdb, time.Minute), mr
}

func TestRedisLotCache(t *testing.T) {
	ctx := context.Background()
	f := domain.LotFilter{Query: "mall", AvailableOnly: true, Limit: 10}
	page := &domain.LotPage{Total: 1, Lots: []domain.RankedLot{{ParkingLot: domain.ParkingLot{ID: 4, AvailableSpaces: 1}}}}

	t.Run("Hit after fill", func(t *testing.T) {
		c, mr := newMiniredisCache(t)

		_, key, ok := c.GetSearch(ctx, f)
		require.False(t, ok)
		require.NotEmpty(t, key)
		c.SetSearch(ctx, key, page)

		got, _, ok := c.GetSearch(ctx, f)
		require.True(t, ok)
		assert.Equal(t, 1, got.Total)
		assert.Equal(t, int64(4), got.Lots[0].ID)
		assert.Equal(t, time.Minute, mr.TTL(key))
	})

	t.Run("Invalidate drops pages", func(t *testing.T) {
		c, _ := newMiniredisCache(t)

		_, key, _ := c.GetSearch(ctx, f)
		c.SetSearch(ctx, key, page)
		c.Invalidate(ctx)

		_, newKey, ok := c.GetSearch(ctx, f)
		assert.False(t, ok)
		assert.NotEqual(t, key, newKey)
	})

	t.Run("Fill racing an invalidation is never served", func(t *testing.T) {
		c, _ := newMiniredisCache(t)

		_, key, ok := c.GetSearch(ctx, f)
		require.False(t, ok)
		// availability changes while the store is being read
		c.Invalidate(ctx)
		c.SetSearch(ctx, key, page)

		got, _, ok := c.GetSearch(ctx, f)
		assert.False(t, ok)
		assert.Nil(t, got)
	})

	t.Run("Unreachable server degrades to a miss", func(t *testing.T) {
		rdb := redis.NewClient(&redis.Options{
			Addr:        "127.0.0.1:1",
			MaxRetries:  -1,
			DialTimeout: 50 * time.Millisecond,
		})
		defer rdb.Close()
		c := NewRedisLotCache(rdb, time.Minute)

		page, key, ok := c.GetSearch(ctx, domain.LotFilter{})
		assert.False(t, ok)
		assert.Nil(t, page)
		assert.Empty(t, key)
		c.SetSearch(ctx, key, &domain.LotPage{Total: 1})
		c.Invalidate(ctx)
	})
}
