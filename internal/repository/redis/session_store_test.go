package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSessionStore(kv *fakeKV) (*SessionStore, *time.Time) {
	store := NewSessionStore(kv)
	now := time.Now()
	store.now = func() time.Time { return now }
	return store, &now
}

func TestSessionStoreCreateAndValidate(t *testing.T) {
	t.Parallel()

	store, _ := newTestSessionStore(newFakeKV())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testPhone, "token-1", "10.0.0.1"))

	assert.True(t, store.Validate(ctx, testPhone, "token-1"))
	assert.False(t, store.Validate(ctx, testPhone, "token-2"))
	assert.False(t, store.Validate(ctx, "13900139000", "token-1"))
}

func TestSessionStoreValidateRefreshesLastUsed(t *testing.T) {
	t.Parallel()

	store, now := newTestSessionStore(newFakeKV())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testPhone, "token-1", ""))
	loginTime := now.UnixMilli()

	*now = now.Add(10 * time.Minute)
	require.True(t, store.Validate(ctx, testPhone, "token-1"))

	record, err := store.Get(ctx, testPhone)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, loginTime, record.LoginTime)
	assert.Equal(t, now.UnixMilli(), record.LastUsed)
}

func TestSessionStoreExpiryDeletesOnRead(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store, now := newTestSessionStore(kv)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testPhone, "token-1", ""))

	*now = now.Add(SessionTTL + time.Second)
	assert.False(t, store.Validate(ctx, testPhone, "token-1"))
	assert.False(t, kv.has(sessionPrefix+testPhone))
}

func TestSessionStoreGetExpired(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store, now := newTestSessionStore(kv)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testPhone, "token-1", ""))

	*now = now.Add(SessionTTL + time.Second)
	record, err := store.Get(ctx, testPhone)
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.False(t, kv.has(sessionPrefix+testPhone))
}

func TestSessionStoreCreateReplacesExisting(t *testing.T) {
	t.Parallel()

	store, _ := newTestSessionStore(newFakeKV())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testPhone, "token-1", ""))
	require.NoError(t, store.Create(ctx, testPhone, "token-2", ""))

	assert.False(t, store.Validate(ctx, testPhone, "token-1"))
	assert.True(t, store.Validate(ctx, testPhone, "token-2"))
}

func TestSessionStoreRefresh(t *testing.T) {
	t.Parallel()

	store, now := newTestSessionStore(newFakeKV())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, testPhone, "token-1", ""))

	*now = now.Add(20 * time.Hour)
	ok, err := store.Refresh(ctx, testPhone)
	require.NoError(t, err)
	assert.True(t, ok)

	// Still valid well past the original expiry.
	*now = now.Add(20 * time.Hour)
	assert.True(t, store.Validate(ctx, testPhone, "token-1"))
}

func TestSessionStoreRefreshMissing(t *testing.T) {
	t.Parallel()

	store, _ := newTestSessionStore(newFakeKV())

	ok, err := store.Refresh(context.Background(), testPhone)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSessionStoreCleanExpired(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store, now := newTestSessionStore(kv)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "13800138000", "token-1", ""))

	*now = now.Add(SessionTTL + time.Second)
	require.NoError(t, store.Create(ctx, "13900139000", "token-2", ""))

	cleaned, err := store.CleanExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cleaned)
	assert.False(t, kv.has(sessionPrefix+"13800138000"))
	assert.True(t, kv.has(sessionPrefix+"13900139000"))
}

func TestSessionStoreClearAll(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store, _ := newTestSessionStore(kv)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "13800138000", "token-1", ""))
	require.NoError(t, store.Create(ctx, "13900139000", "token-2", ""))
	kv.data[queryCachePrefix+"13800138000"] = "untouched"

	count, err := store.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, 1, kv.len())
}

func TestSessionStoreStats(t *testing.T) {
	t.Parallel()

	store, now := newTestSessionStore(newFakeKV())
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, "13800138000", "token-1", ""))

	*now = now.Add(SessionTTL + time.Second)
	require.NoError(t, store.Create(ctx, "13900139000", "token-2", ""))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalSessions)
	assert.Equal(t, 1, stats.ActiveSessions)
	assert.Equal(t, 1, stats.ExpiredSessions)
	assert.Contains(t, stats.SessionsByPhone, "138****8000")
	assert.Contains(t, stats.SessionsByPhone, "139****9000")
}

func TestSessionStoreCorruptRecord(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store, _ := newTestSessionStore(kv)
	ctx := context.Background()

	kv.data[sessionPrefix+testPhone] = "{broken"

	assert.False(t, store.Validate(ctx, testPhone, "token-1"))
	assert.False(t, kv.has(sessionPrefix+testPhone))
}
