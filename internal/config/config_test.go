package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Setenv("TELECOM_PHONENUM", "13800138000,13900139000")
	t.Setenv("TELECOM_PASSWORD", "654321,123456")
	t.Setenv("TELECOM_API_BASE", "https://example.com/api")
}

func TestLoadDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 120000*time.Millisecond, cfg.Telecom.CacheMaxAge)
	assert.Equal(t, "13800138000", cfg.DefaultPhoneNumber())
	assert.False(t, cfg.Kafka.Enabled)
	assert.False(t, cfg.ClickHouse.Enabled)
}

func TestLoadRejectsMissingAccounts(t *testing.T) {
	t.Setenv("TELECOM_PHONENUM", "")
	t.Setenv("TELECOM_PASSWORD", "")
	t.Setenv("TELECOM_API_BASE", "https://example.com/api")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsMismatchedLists(t *testing.T) {
	t.Setenv("TELECOM_PHONENUM", "13800138000,13900139000")
	t.Setenv("TELECOM_PASSWORD", "654321")
	t.Setenv("TELECOM_API_BASE", "https://example.com/api")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadCredentials(t *testing.T) {
	t.Setenv("TELECOM_PHONENUM", "23800138000")
	t.Setenv("TELECOM_PASSWORD", "654321")
	t.Setenv("TELECOM_API_BASE", "https://example.com/api")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("TELECOM_PHONENUM", "13800138000")
	t.Setenv("TELECOM_PASSWORD", "abc123")

	_, err = Load()
	require.Error(t, err)
}

func TestPasswordFor(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	pw, ok := cfg.PasswordFor("13900139000")
	require.True(t, ok)
	assert.Equal(t, "123456", pw)

	_, ok = cfg.PasswordFor("13700137000")
	assert.False(t, ok)
}

func TestWhitelisted(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WHITELIST_NUM", "13800138000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Whitelisted("13800138000"))
	assert.False(t, cfg.Whitelisted("13900139000"))
}

func TestWhitelistEmptyAllowsAll(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("WHITELIST_NUM", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.True(t, cfg.Whitelisted("13900139000"))
}
