package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"telecom-relay/internal/carrier"
)

const testPhone = "13800138000"

func newTestCache(kv *fakeKV, maxAge time.Duration) (*QueryCache, *time.Time) {
	cache := NewQueryCache(kv, maxAge)
	now := time.Now()
	cache.now = func() time.Time { return now }
	return cache, &now
}

func sampleBundle() *CachedBundle {
	return &CachedBundle{
		Bundle: carrier.Bundle{
			Summary: &carrier.Summary{
				Phonenum: testPhone,
				Balance:  12345,
				FlowUse:  1024 * 1024,
			},
		},
		FormattedText: "basic",
		EnhancedText:  "enhanced",
	}
}

func TestQueryCacheSetAndGet(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, _ := newTestCache(kv, 2*time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testPhone, sampleBundle()))
	assert.True(t, kv.has(queryCachePrefix+testPhone))

	got, err := cache.Get(ctx, testPhone)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "basic", got.FormattedText)
	assert.Equal(t, "enhanced", got.EnhancedText)
	assert.Equal(t, int64(12345), got.Summary.Balance)
}

func TestQueryCacheMiss(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(newFakeKV(), 2*time.Minute)

	got, err := cache.Get(context.Background(), testPhone)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryCacheFreshnessBoundary(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, now := newTestCache(kv, 2*time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testPhone, sampleBundle()))

	// Aged exactly maxAge: still a hit.
	*now = now.Add(2 * time.Minute)
	got, err := cache.Get(ctx, testPhone)
	require.NoError(t, err)
	assert.NotNil(t, got)

	// One millisecond past: miss, and the read evicts the entry.
	*now = now.Add(time.Millisecond)
	got, err = cache.Get(ctx, testPhone)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, kv.has(queryCachePrefix+testPhone))
}

func TestQueryCacheCorruptEntryEvicted(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, _ := newTestCache(kv, 2*time.Minute)
	ctx := context.Background()

	kv.data[queryCachePrefix+testPhone] = "{not json"

	got, err := cache.Get(ctx, testPhone)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.False(t, kv.has(queryCachePrefix+testPhone))
}

func TestQueryCacheSetStampsTimestamp(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, now := newTestCache(kv, 2*time.Minute)

	bundle := sampleBundle()
	bundle.Timestamp = 42
	require.NoError(t, cache.Set(context.Background(), testPhone, bundle))
	assert.Equal(t, now.UnixMilli(), bundle.Timestamp)
}

func TestQueryCacheGetBackendError(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.getErr = errors.New("connection refused")
	cache, _ := newTestCache(kv, 2*time.Minute)

	_, err := cache.Get(context.Background(), testPhone)
	assert.Error(t, err)
}

func TestQueryCacheClear(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, _ := newTestCache(kv, 2*time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "13800138000", sampleBundle()))
	require.NoError(t, cache.Set(ctx, "13900139000", sampleBundle()))
	kv.data["telecom_session:13800138000"] = "untouched"

	count, err := cache.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, kv.len())

	count, err = cache.Clear(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestQueryCacheStats(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, now := newTestCache(kv, 2*time.Minute)
	ctx := context.Background()

	first := *now
	require.NoError(t, cache.Set(ctx, "13800138000", sampleBundle()))

	*now = now.Add(5 * time.Minute)
	second := *now
	require.NoError(t, cache.Set(ctx, "13900139000", sampleBundle()))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalEntries)
	assert.Greater(t, stats.TotalSize, 0)
	require.NotNil(t, stats.OldestEntry)
	require.NotNil(t, stats.NewestEntry)
	assert.Equal(t, first.UnixMilli(), stats.OldestEntry.UnixMilli())
	assert.Equal(t, second.UnixMilli(), stats.NewestEntry.UnixMilli())
}

func TestQueryCacheStatsCountsStaleEntries(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	cache, now := newTestCache(kv, 2*time.Minute)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, testPhone, sampleBundle()))
	*now = now.Add(time.Hour)

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalEntries)
}

func TestQueryCacheHealthCheck(t *testing.T) {
	t.Parallel()

	cache, _ := newTestCache(newFakeKV(), 2*time.Minute)

	health := cache.HealthCheck(context.Background())
	assert.True(t, health.IsHealthy)
	assert.True(t, health.CanWrite)
	assert.True(t, health.CanRead)
	assert.True(t, health.CanDelete)
}

func TestQueryCacheHealthCheckWriteFailure(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	kv.setErr = errors.New("read only replica")
	cache, _ := newTestCache(kv, 2*time.Minute)

	health := cache.HealthCheck(context.Background())
	assert.False(t, health.IsHealthy)
	assert.False(t, health.CanWrite)
	assert.False(t, health.CanRead)
}
