package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"telecom-relay/internal/repository/redis"
)

func newTestWebAuth(t *testing.T, password string) *WebAuthService {
	t.Helper()
	svc, err := NewWebAuthService(password, redis.NewWebSessionStore(newMemKV(), time.Hour), zap.NewNop())
	require.NoError(t, err)
	return svc
}

func TestWebAuthLoginAndValidate(t *testing.T) {
	t.Parallel()

	svc := newTestWebAuth(t, "secret-password")
	ctx := context.Background()

	id, err := svc.Login(ctx, "secret-password")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	assert.True(t, svc.Validate(ctx, id))
	assert.False(t, svc.Validate(ctx, "bogus"))

	require.NoError(t, svc.Logout(ctx, id))
	assert.False(t, svc.Validate(ctx, id))
}

func TestWebAuthWrongPassword(t *testing.T) {
	t.Parallel()

	svc := newTestWebAuth(t, "secret-password")

	_, err := svc.Login(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrWrongWebPassword)
}

func TestWebAuthDisabledGate(t *testing.T) {
	t.Parallel()

	svc, err := NewWebAuthService("", nil, zap.NewNop())
	require.NoError(t, err)
	require.Nil(t, svc)

	assert.False(t, svc.Enabled())
	assert.True(t, svc.Validate(context.Background(), "anything"))
	assert.NoError(t, svc.Logout(context.Background(), "anything"))
}
