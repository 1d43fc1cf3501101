package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"telecom-relay/internal/hashing"
	"telecom-relay/internal/repository/redis"
	"telecom-relay/internal/util"
)

var ErrWrongWebPassword = errors.New("wrong access password")

// WebAuthService gates the browser UI behind a single shared password.
// The plaintext from config is hashed once at startup and discarded.
type WebAuthService struct {
	hasher   *hashing.Hasher
	stored   *hashing.HashResult
	sessions *redis.WebSessionStore
	logger   *zap.Logger
}

// NewWebAuthService returns nil when no password is configured, which
// disables the gate.
func NewWebAuthService(password string, sessions *redis.WebSessionStore, logger *zap.Logger) (*WebAuthService, error) {
	if password == "" {
		return nil, nil
	}

	hasher := hashing.NewHasher()
	stored, err := hasher.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("hash web password: %w", err)
	}

	return &WebAuthService{
		hasher:   hasher,
		stored:   stored,
		sessions: sessions,
		logger:   logger,
	}, nil
}

// Enabled reports whether the gate is active. Safe on a nil receiver.
func (s *WebAuthService) Enabled() bool {
	return s != nil
}

// Login checks the password and mints a cookie session.
func (s *WebAuthService) Login(ctx context.Context, password string) (string, error) {
	ok, err := s.hasher.VerifyPassword(password, s.stored)
	if err != nil {
		return "", fmt.Errorf("verify web password: %w", err)
	}
	if !ok {
		s.logger.Warn("web login rejected")
		return "", ErrWrongWebPassword
	}

	id, err := s.sessions.Create(ctx)
	if err != nil {
		return "", err
	}
	s.logger.Info("web session opened", util.String("session", id[:8]))
	return id, nil
}

// Validate reports whether the cookie session is live. A disabled gate
// accepts everything.
func (s *WebAuthService) Validate(ctx context.Context, id string) bool {
	if s == nil {
		return true
	}
	return s.sessions.Validate(ctx, id)
}

func (s *WebAuthService) Logout(ctx context.Context, id string) error {
	if s == nil {
		return nil
	}
	return s.sessions.Delete(ctx, id)
}
