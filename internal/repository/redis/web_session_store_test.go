package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSessionStoreCreateAndValidate(t *testing.T) {
	t.Parallel()

	kv := newFakeKV()
	store := NewWebSessionStore(kv, time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.True(t, store.Validate(ctx, id))
	assert.False(t, store.Validate(ctx, "unknown-id"))
	assert.False(t, store.Validate(ctx, ""))

	// Entries rely on Redis TTL, so the store must set one.
	assert.Equal(t, time.Hour, kv.ttls[webSessionPrefix+id])
}

func TestWebSessionStoreUniqueIDs(t *testing.T) {
	t.Parallel()

	store := NewWebSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()

	a, err := store.Create(ctx)
	require.NoError(t, err)
	b, err := store.Create(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestWebSessionStoreDelete(t *testing.T) {
	t.Parallel()

	store := NewWebSessionStore(newFakeKV(), time.Hour)
	ctx := context.Background()

	id, err := store.Create(ctx)
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, id))
	assert.False(t, store.Validate(ctx, id))

	// Deleting an already-gone session is not an error.
	assert.NoError(t, store.Delete(ctx, id))
}
