package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"telecom-relay/internal/client"
)

const webSessionPrefix = "web_session:"

// WebSessionStore holds browser cookie sessions for the password gate.
// Kept apart from the carrier-token sessions: different lifetime,
// different audience, and these use plain Redis TTL expiry.
type WebSessionStore struct {
	kv  kvStore
	ttl time.Duration
}

func NewWebSessionStore(kv kvStore, ttl time.Duration) *WebSessionStore {
	return &WebSessionStore{kv: kv, ttl: ttl}
}

// Create mints a new opaque session ID.
func (s *WebSessionStore) Create(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	id := uuid.NewString()
	if err := s.kv.Set(ctx, webSessionPrefix+id, "1", s.ttl); err != nil {
		return "", fmt.Errorf("web session write failed: %w", err)
	}
	return id, nil
}

// Validate reports whether id names a live session. Fails closed on
// backend errors.
func (s *WebSessionStore) Validate(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	_, err := s.kv.Get(ctx, webSessionPrefix+id)
	return err == nil
}

func (s *WebSessionStore) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := s.kv.Del(ctx, webSessionPrefix+id); err != nil && !errors.Is(err, client.ErrKeyNotFound) {
		return fmt.Errorf("web session delete failed: %w", err)
	}
	return nil
}
