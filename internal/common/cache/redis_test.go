package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	rc, err := NewRedisCacheWithClient(client)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rc.Close() })
	return rc, mr
}

func TestRedisCacheBasicOps(t *testing.T) {
	rc, mr := newTestRedis(t)
	ctx := context.Background()

	val, err := rc.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, "", val)

	n, err := rc.Incr(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	ttl, err := rc.TTL(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ttl < 0)

	require.NoError(t, rc.Expire(ctx, "k", time.Minute))
	ttl, err = rc.TTL(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(2 * time.Minute)
	val, err = rc.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "", val)
}

func TestRedisCacheSortedSet(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()

	_, err := rc.ZIncrBy(ctx, "lb", 1, "alice")
	require.NoError(t, err)
	_, err = rc.ZIncrBy(ctx, "lb", 3, "bob")
	require.NoError(t, err)

	members, err := rc.ZRevRangeWithScores(ctx, "lb", 0, -1)
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, ZMember{Member: "bob", Score: 3}, members[0])

	count, err := rc.ZCard(ctx, "lb")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestGetWithCachedStoresNullValue(t *testing.T) {
	rc, _ := newTestRedis(t)
	ctx := context.Background()
	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "", nil
	}

	for i := 0; i < 2; i++ {
		got, err := GetWithCached[string](ctx, rc, "p:1", time.Minute, time.Minute,
			func(s string) bool { return s == "" },
			func(s string) string { return s },
			func(s string) (string, error) { return s, nil },
			fetch)
		require.NoError(t, err)
		assert.Equal(t, "", got)
	}
	assert.Equal(t, 1, calls)

	_, err := GetWithCached[string](ctx, rc, "p:2", time.Minute, time.Minute,
		func(s string) bool { return s == "" },
		func(s string) string { return s },
		func(s string) (string, error) { return s, nil },
		func(context.Context) (string, error) { return "", errors.New("db down") })
	assert.Error(t, err)
}

func TestJitterTTL(t *testing.T) {
	for i := 0; i < 20; i++ {
		got := JitterTTL(time.Minute)
		assert.LessOrEqual(t, got, time.Minute)
		assert.GreaterOrEqual(t, got, 54*time.Second)
	}
	assert.Equal(t, time.Duration(0), JitterTTL(0))
}
