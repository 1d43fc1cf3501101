package service

import (
	"context"

	"go.uber.org/zap"

	"telecom-relay/internal/audit"
	"telecom-relay/internal/config"
	"telecom-relay/internal/format"
	"telecom-relay/internal/metrics"
	"telecom-relay/internal/notify"
	"telecom-relay/internal/repository/redis"
)

// ServiceFactory creates and manages service instances
type ServiceFactory struct {
	cfg         *config.Config
	gateway     carrierGateway
	sessions    *redis.SessionStore
	webSessions *redis.WebSessionStore
	cache       *redis.QueryCache
	limiter     loginLimiter
	notifier    *notify.Manager
	recorder    *audit.Recorder
	metrics     *metrics.Metrics
	logger      *zap.Logger

	authService    *AuthService
	queryService   *QueryService
	webAuthService *WebAuthService
	webAuthBuilt   bool
}

// NewServiceFactory creates a new service factory
func NewServiceFactory(
	cfg *config.Config,
	gateway carrierGateway,
	sessions *redis.SessionStore,
	webSessions *redis.WebSessionStore,
	cache *redis.QueryCache,
	limiter loginLimiter,
	notifier *notify.Manager,
	recorder *audit.Recorder,
	m *metrics.Metrics,
	logger *zap.Logger,
) *ServiceFactory {
	return &ServiceFactory{
		cfg:         cfg,
		gateway:     gateway,
		sessions:    sessions,
		webSessions: webSessions,
		cache:       cache,
		limiter:     limiter,
		notifier:    notifier,
		recorder:    recorder,
		metrics:     m,
		logger:      logger,
	}
}

// AuthService returns the auth service instance (singleton)
func (f *ServiceFactory) AuthService() *AuthService {
	if f.authService == nil {
		f.authService = NewAuthService(
			f.cfg,
			f.gateway,
			f.sessions,
			f.limiter,
			f.recorder,
			f.metrics,
			f.logger,
		)
	}
	return f.authService
}

// QueryService returns the query service instance (singleton)
func (f *ServiceFactory) QueryService() *QueryService {
	if f.queryService == nil {
		f.queryService = NewQueryService(
			f.cfg,
			f.gateway,
			f.AuthService(),
			f.cache,
			format.NewFormatter(),
			f.notifier,
			f.recorder,
			f.metrics,
			f.logger,
		)
	}
	return f.queryService
}

// WebAuthService returns the web gate service, nil when no web
// password is configured.
func (f *ServiceFactory) WebAuthService() (*WebAuthService, error) {
	if !f.webAuthBuilt {
		svc, err := NewWebAuthService(f.cfg.Web.Password, f.webSessions, f.logger)
		if err != nil {
			return nil, err
		}
		f.webAuthService = svc
		f.webAuthBuilt = true
	}
	return f.webAuthService, nil
}

// Cleanup flushes pending audit rows.
func (f *ServiceFactory) Cleanup() {
	if f.recorder != nil {
		f.recorder.Flush(context.Background())
	}
}
