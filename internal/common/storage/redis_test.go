package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"deal-analyzer-client/internal/common/config"
)

type pair struct {
	Access  string `json:"access"`
	Refresh string `json:"refresh"`
}

func newTestRedis(t *testing.T) (*RedisClient, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedis(config.RedisConfig{Address: mr.Addr(), PoolSize: 2})
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisClient_JSONRoundTrip(t *testing.T) {
	c, mr := newTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Ping(ctx))
	require.NoError(t, c.SetJSON(ctx, "tokens", pair{Access: "a", Refresh: "r"}, time.Hour))

	var got pair
	require.NoError(t, c.GetJSON(ctx, "tokens", &got))
	assert.Equal(t, pair{Access: "a", Refresh: "r"}, got)
	assert.Equal(t, time.Hour, mr.TTL("tokens"))

	require.NoError(t, c.Del(ctx, "tokens"))
	assert.ErrorIs(t, c.GetJSON(ctx, "tokens", &got), ErrNotFound)
}

func TestRedisClient_CorruptValue(t *testing.T) {
	c, mr := newTestRedis(t)
	require.NoError(t, mr.Set("tokens", "not-json"))

	var got pair
	err := c.GetJSON(context.Background(), "tokens", &got)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
