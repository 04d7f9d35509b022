package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type payload struct {
	Symbol string  `json:"symbol"`
	Price  float64 `json:"price"`
}

func TestMemoryCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", payload{Symbol: "X", Price: 1.5}, time.Hour))

	var got payload
	require.NoError(t, mc.Get(ctx, "a", &got))
	assert.Equal(t, payload{Symbol: "X", Price: 1.5}, got)

	assert.ErrorIs(t, mc.Get(ctx, "missing", &got), ErrCacheMiss)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithClock(clock.Now))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "k", 1, time.Hour))
	clock.Advance(59 * time.Minute)
	var v int
	require.NoError(t, mc.Get(ctx, "k", &v))

	clock.Advance(2 * time.Minute)
	assert.ErrorIs(t, mc.Get(ctx, "k", &v), ErrCacheMiss)
	assert.Equal(t, 0, mc.Len())
}

func TestMemoryCacheDeleteByPattern(t *testing.T) {
	ctx := context.Background()
	mc := NewMemoryCache()
	defer mc.Close()

	for _, k := range []string{"analysis:AAA:x", "analysis:AAA:y", "analysis:BBB:x"} {
		require.NoError(t, mc.Set(ctx, k, k, 0))
	}
	require.NoError(t, mc.DeleteByPattern(ctx, BuildPattern("analysis:AAA:")))

	var s string
	assert.ErrorIs(t, mc.Get(ctx, "analysis:AAA:x", &s), ErrCacheMiss)
	assert.ErrorIs(t, mc.Get(ctx, "analysis:AAA:y", &s), ErrCacheMiss)
	require.NoError(t, mc.Get(ctx, "analysis:BBB:x", &s))
	assert.Equal(t, "analysis:BBB:x", s)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	mc := NewMemoryCache(WithMemoryMaxSize(2), WithClock(clock.Now))
	defer mc.Close()

	require.NoError(t, mc.Set(ctx, "a", 1, 0))
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "b", 2, 0))
	clock.Advance(time.Second)

	var v int
	require.NoError(t, mc.Get(ctx, "a", &v))
	clock.Advance(time.Second)
	require.NoError(t, mc.Set(ctx, "c", 3, 0))

	assert.NoError(t, mc.Get(ctx, "a", &v))
	assert.ErrorIs(t, mc.Get(ctx, "b", &v), ErrCacheMiss)
	assert.NoError(t, mc.Get(ctx, "c", &v))
}

func TestGenerateKeyWithParams(t *testing.T) {
	assert.Equal(t, "analysis:AAA:extended:42", GenerateKeyWithParams("analysis", "AAA", "extended", 42))
}
