package redis

import (
	"context"
	"fmt"
	"time"

	"telecom-relay/internal/bucketing"
	"telecom-relay/internal/util"
)

const loginAttemptPrefix = "login_attempts:"

// LoginRateLimiter counts login attempts per subject inside fixed time
// windows. Keys hold bucket numbers, not phone numbers.
type LoginRateLimiter struct {
	kv          kvStore
	bucketer    *bucketing.Bucketer
	maxAttempts int
	window      time.Duration
}

func NewLoginRateLimiter(kv kvStore, bucketer *bucketing.Bucketer, maxAttempts int, window time.Duration) *LoginRateLimiter {
	return &LoginRateLimiter{
		kv:          kv,
		bucketer:    bucketer,
		maxAttempts: maxAttempts,
		window:      window,
	}
}

// Allow records one attempt and reports whether the subject is still
// under the limit. A backend failure allows the attempt: the limiter
// protects the carrier, it must not take logins down with Redis.
func (l *LoginRateLimiter) Allow(ctx context.Context, subject string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	key := loginAttemptPrefix + l.bucketer.RateLimitKey(subject, l.window)

	count, err := l.kv.IncrWithExpire(ctx, key, l.window)
	if err != nil {
		util.Warn("rate limit counter unavailable, allowing attempt", util.ErrorField(err))
		return true, fmt.Errorf("rate limit counter failed: %w", err)
	}

	return count <= int64(l.maxAttempts), nil
}
