package database

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestGenerateSearchCacheKey(t *testing.T) {
	assert.Equal(t, "flight_search:SFO:JFK:2025-01-02", GenerateSearchCacheKey("sfo", "JFK", "2025-01-02"))
}

func TestMemorySearchCache(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	c := NewMemorySearchCache(time.Hour)
	c.now = func() time.Time { return now }

	_, err := c.GetFlightIDs(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	ids := []string{"UA100-20250101-0", "UA200-20250101-1"}
	require.NoError(t, c.SetFlightIDs(ctx, "k", ids))

	got, err := c.GetFlightIDs(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	// returned slice is a copy
	got[0] = "changed"
	again, err := c.GetFlightIDs(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "UA100-20250101-0", again[0])

	now = now.Add(time.Hour)
	_, err = c.GetFlightIDs(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetFlightIDs(ctx, "k", ids))
	require.NoError(t, c.Invalidate(ctx, "k"))
	_, err = c.GetFlightIDs(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
	assert.Equal(t, 0, c.Len())
}

func TestNoopSearchCache(t *testing.T) {
	var c SearchCache = NoopSearchCache{}
	require.NoError(t, c.SetFlightIDs(context.Background(), "k", []string{"a"}))
	_, err := c.GetFlightIDs(context.Background(), "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestRedisSearchCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := context.Background()

	client, err := NewRedisClient(ctx, mr.Addr(), zap.NewNop())
	require.NoError(t, err)

	var c SearchCache = NewRedisSearchCache(client, 2*time.Hour)
	defer c.Close()

	key := GenerateSearchCacheKey("SFO", "JFK", "2025-01-02")
	_, err = c.GetFlightIDs(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	ids := []string{"UA100-20250102-0"}
	require.NoError(t, c.SetFlightIDs(ctx, key, ids))
	assert.True(t, mr.Exists(key))
	assert.Equal(t, 2*time.Hour, mr.TTL(key))

	got, err := c.GetFlightIDs(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, ids, got)

	mr.FastForward(3 * time.Hour)
	_, err = c.GetFlightIDs(ctx, key)
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.SetFlightIDs(ctx, key, ids))
	require.NoError(t, c.Invalidate(ctx, key))
	assert.False(t, mr.Exists(key))
}

func TestNewRedisClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(context.Background(), addr, zap.NewNop())
	assert.Error(t, err)
}
