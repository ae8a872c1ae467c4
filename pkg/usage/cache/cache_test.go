package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfslender/Media-Usage-Checker/internal/config"
	"github.com/wolfslender/Media-Usage-Checker/pkg/usage"
)

func exerciseCache(t *testing.T, c usage.VerdictCache) {
	t.Helper()
	ctx := context.Background()

	got, err := c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	checkedAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, c.Set(ctx, usage.Verdict{
		AttachmentID: 42,
		Used:         true,
		Reason:       usage.ReasonPostContent,
		Detail:       "posts:page#7",
		CheckedAt:    checkedAt,
	}))
	require.NoError(t, c.Set(ctx, usage.Verdict{AttachmentID: 44, CheckedAt: checkedAt}))

	got, err = c.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Used)
	assert.Equal(t, usage.ReasonPostContent, got.Reason)
	assert.True(t, checkedAt.Equal(got.CheckedAt))

	require.NoError(t, c.Delete(ctx, 42, 1000))
	got, err = c.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Clear(ctx))
	got, err = c.Get(ctx, 44)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, c.Close())
}

func TestMemoryCache(t *testing.T) {
	exerciseCache(t, NewMemoryCache(time.Hour))
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemoryCache(time.Minute)
	now := time.Now()
	c.now = func() time.Time { return now }

	ctx := context.Background()
	require.NoError(t, c.Set(ctx, usage.Verdict{AttachmentID: 1}))

	now = now.Add(59 * time.Second)
	got, err := c.Get(ctx, 1)
	require.NoError(t, err)
	assert.NotNil(t, got)

	now = now.Add(time.Second)
	got, err = c.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestBadgerCache(t *testing.T) {
	c, err := NewBadgerCache(BadgerConfig{InMemory: true, TTL: time.Hour})
	require.NoError(t, err)
	exerciseCache(t, c)
}

func TestBadgerCacheOnDisk(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c, err := NewBadgerCache(BadgerConfig{Path: dir, TTL: time.Hour})
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, usage.Verdict{AttachmentID: 9, Used: true}))
	require.NoError(t, c.Close())

	c, err = NewBadgerCache(BadgerConfig{Path: dir, TTL: time.Hour})
	require.NoError(t, err)
	defer c.Close()

	got, err := c.Get(ctx, 9)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Used)
}

func TestNew(t *testing.T) {
	c, err := New(config.CacheConfig{Type: "memory", TTL: "5m"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	c, err = New(config.CacheConfig{Type: "none"})
	require.NoError(t, err)
	assert.Nil(t, c)

	_, err = New(config.CacheConfig{Type: "redis"})
	assert.Error(t, err)
}
