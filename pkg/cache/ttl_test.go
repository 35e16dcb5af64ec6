package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/cache"
)

func TestTTLCache_SetGet(t *testing.T) {
	t.Parallel()

	c := cache.NewTTLCache[string, int](10, time.Minute)
	c.Set("a", 1)

	v, ok := c.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestTTLCache_Expiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cache.NewTTLCache[string, bool](10, 30*time.Second)
	c.SetClock(func() time.Time { return now })

	c.Set("entitled:abc", true)

	_, ok := c.Get("entitled:abc")
	assert.True(t, ok)

	now = now.Add(31 * time.Second)
	_, ok = c.Get("entitled:abc")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry should be dropped on access")
}

func TestTTLCache_SetResetsExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := cache.NewTTLCache[string, int](10, time.Minute)
	c.SetClock(func() time.Time { return now })

	c.Set("k", 1)
	now = now.Add(45 * time.Second)
	c.Set("k", 2)
	now = now.Add(30 * time.Second)

	v, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, v)
}

func TestTTLCache_CapacityEviction(t *testing.T) {
	t.Parallel()

	c := cache.NewTTLCache[int, int](2, time.Minute)
	c.Set(1, 1)
	c.Set(2, 2)

	// Touch 1 so 2 becomes the eviction candidate.
	_, ok := c.Get(1)
	require.True(t, ok)

	c.Set(3, 3)

	_, ok = c.Get(2)
	assert.False(t, ok)
	_, ok = c.Get(1)
	assert.True(t, ok)
	_, ok = c.Get(3)
	assert.True(t, ok)
}

func TestTTLCache_DeleteAndClear(t *testing.T) {
	t.Parallel()

	c := cache.NewTTLCache[string, int](10, time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	assert.True(t, c.Delete("a"))
	assert.False(t, c.Delete("a"))

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestNewTTLCache_PanicsOnInvalidArgs(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { cache.NewTTLCache[string, int](0, time.Minute) })
	assert.Panics(t, func() { cache.NewTTLCache[string, int](1, 0) })
}
