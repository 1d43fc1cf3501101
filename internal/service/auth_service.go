package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"telecom-relay/internal/audit"
	"telecom-relay/internal/carrier"
	"telecom-relay/internal/config"
	"telecom-relay/internal/metrics"
	"telecom-relay/internal/repository/redis"
	"telecom-relay/internal/util"
)

var (
	ErrInvalidPhone    = errors.New("invalid phone number")
	ErrInvalidPassword = errors.New("invalid service password")
	ErrNotWhitelisted  = errors.New("phone number not in whitelist")
	ErrRateLimited     = errors.New("too many login attempts")
	ErrLoginFailed     = errors.New("carrier login failed")
	ErrSessionInvalid  = errors.New("session invalid or expired")
	ErrUnknownAccount  = errors.New("no credentials configured for phone number")
)

// carrierGateway is the carrier surface the services depend on.
type carrierGateway interface {
	Login(ctx context.Context, phone, password string) error
	Summary(ctx context.Context, phone, token string) (*carrier.Summary, error)
	FluxPackage(ctx context.Context, phone, token string) (*carrier.FluxPackage, error)
	ImportantData(ctx context.Context, phone, token string) (*carrier.ImportantData, error)
	ShareUsage(ctx context.Context, phone, token string) (*carrier.ShareUsage, error)
	Ping(ctx context.Context) error
	ProbeEndpoints(ctx context.Context, phone, token string) *carrier.EndpointHealth
}

type loginLimiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

// LoginResult is what a successful login hands back to the caller.
type LoginResult struct {
	Phonenum  string `json:"phonenum"`
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expiresAt"`
}

// AuthService verifies credentials against the carrier and manages the
// relay's own session tokens on top.
type AuthService struct {
	cfg      *config.Config
	gateway  carrierGateway
	sessions *redis.SessionStore
	limiter  loginLimiter
	recorder *audit.Recorder
	metrics  *metrics.Metrics
	logger   *zap.Logger
}

func NewAuthService(
	cfg *config.Config,
	gateway carrierGateway,
	sessions *redis.SessionStore,
	limiter loginLimiter,
	recorder *audit.Recorder,
	m *metrics.Metrics,
	logger *zap.Logger,
) *AuthService {
	return &AuthService{
		cfg:      cfg,
		gateway:  gateway,
		sessions: sessions,
		limiter:  limiter,
		recorder: recorder,
		metrics:  m,
		logger:   logger,
	}
}

// Login validates the credentials with the carrier and mints a relay
// token. The carrier only confirms the credentials; the token the
// caller gets back is ours.
func (s *AuthService) Login(ctx context.Context, phone, password, ip string) (*LoginResult, error) {
	start := time.Now()

	if !util.ValidPhoneNumber(phone) {
		return nil, ErrInvalidPhone
	}
	if !util.ValidServicePassword(password) {
		return nil, ErrInvalidPassword
	}
	if !s.cfg.Whitelisted(phone) {
		s.logger.Warn("login rejected by whitelist",
			util.Phonenum(phone))
		return nil, ErrNotWhitelisted
	}

	if s.limiter != nil {
		allowed, err := s.limiter.Allow(ctx, phone)
		if err == nil && !allowed {
			s.logger.Warn("login rate limited",
				util.Phonenum(phone))
			s.observeLogin("rate_limited")
			return nil, ErrRateLimited
		}
	}

	if err := s.gateway.Login(ctx, phone, password); err != nil {
		s.logger.Warn("carrier login failed",
			util.Phonenum(phone),
			util.ErrorField(err))
		s.observeLogin("failure")
		s.record(ctx, audit.Event{
			Type:     audit.EventLogin,
			Phonenum: util.MaskPhoneNumber(phone),
			SourceIP: ip,
		})
		if errors.Is(err, carrier.ErrLoginRejected) {
			return nil, fmt.Errorf("%w: %v", ErrLoginFailed, err)
		}
		return nil, err
	}

	token := s.mintToken(phone)
	if err := s.sessions.Create(ctx, phone, token, ip); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}

	s.observeLogin("success")
	s.record(ctx, audit.Event{
		Type:      audit.EventLogin,
		Phonenum:  util.MaskPhoneNumber(phone),
		Success:   true,
		SourceIP:  ip,
		LatencyMS: time.Since(start).Milliseconds(),
	})
	s.logger.Info("login succeeded",
		util.Phonenum(phone),
		util.Duration("duration", time.Since(start)))

	return &LoginResult{
		Phonenum:  phone,
		Token:     token,
		ExpiresAt: time.Now().Add(redis.SessionTTL).UnixMilli(),
	}, nil
}

// EnsureSession returns a usable token for phone, logging in with the
// configured credentials when no live session exists.
func (s *AuthService) EnsureSession(ctx context.Context, phone string) (string, error) {
	record, err := s.sessions.Get(ctx, phone)
	if err == nil && record != nil {
		return record.Token, nil
	}

	password, ok := s.cfg.PasswordFor(phone)
	if !ok {
		return "", ErrUnknownAccount
	}

	result, err := s.Login(ctx, phone, password, "")
	if err != nil {
		return "", err
	}
	return result.Token, nil
}

// Validate reports whether the phone/token pair names a live session.
func (s *AuthService) Validate(ctx context.Context, phone, token string) bool {
	return s.sessions.Validate(ctx, phone, token)
}

// Session returns the live session record, or ErrSessionInvalid.
func (s *AuthService) Session(ctx context.Context, phone string) (*redis.SessionRecord, error) {
	record, err := s.sessions.Get(ctx, phone)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrSessionInvalid
	}
	return record, nil
}

func (s *AuthService) Logout(ctx context.Context, phone string) error {
	return s.sessions.Delete(ctx, phone)
}

func (s *AuthService) SessionStats(ctx context.Context) (*redis.SessionStats, error) {
	return s.sessions.Stats(ctx)
}

func (s *AuthService) CleanExpiredSessions(ctx context.Context) (int, error) {
	return s.sessions.CleanExpired(ctx)
}

// mintToken builds an opaque bearer token. The carrier never sees or
// issues these.
func (s *AuthService) mintToken(phone string) string {
	seed := phone + ":" + strconv.FormatInt(time.Now().UnixMilli(), 10) + ":" + uuid.NewString()
	return base64.RawURLEncoding.EncodeToString([]byte(seed))
}

func (s *AuthService) observeLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *AuthService) record(ctx context.Context, event audit.Event) {
	if s.recorder != nil {
		s.recorder.Record(ctx, event)
	}
}
