package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/pkg/config"
)

func TestNewClient_Disabled(t *testing.T) {
	client, err := New(config.RedisConfig{Enabled: false})
	require.NoError(t, err)
	assert.False(t, client.Enabled())
	assert.NoError(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(Disabled(), "test")

	allowed, remaining, err := limiter.Allow(context.Background(), KISRateLimit)
	require.NoError(t, err)
	assert.True(t, allowed)
	assert.Equal(t, KISRateLimit.Limit, remaining)

	assert.NoError(t, limiter.Wait(context.Background(), NaverRateLimit))
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(Disabled(), "test")
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "quote:005930", map[string]int{"price": 72000}, time.Minute))

	var result map[string]int
	found, err := cache.Get(ctx, "quote:005930", &result)
	require.NoError(t, err)
	assert.False(t, found)

	assert.NoError(t, cache.Delete(ctx, "quote:005930"))
}

func TestCache_FullKey(t *testing.T) {
	cache := NewCache(Disabled(), "paper")
	assert.Equal(t, "paper:cache:quote:005930", cache.fullKey("quote:005930"))
}
