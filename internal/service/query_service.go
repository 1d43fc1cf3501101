package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"telecom-relay/internal/audit"
	"telecom-relay/internal/carrier"
	"telecom-relay/internal/config"
	"telecom-relay/internal/format"
	"telecom-relay/internal/metrics"
	"telecom-relay/internal/notify"
	"telecom-relay/internal/repository/redis"
	"telecom-relay/internal/util"
)

var ErrUpstreamUnavailable = errors.New("carrier data unavailable")

// QueryResult is one answered data query.
type QueryResult struct {
	Phonenum string              `json:"phonenum"`
	Cached   bool                `json:"cached"`
	Data     *redis.CachedBundle `json:"data"`
}

// StatusReport aggregates service health for the status endpoint.
type StatusReport struct {
	Service         string                  `json:"service"`
	Timestamp       int64                   `json:"timestamp"`
	Summary         string                  `json:"summary,omitempty"`
	CacheHealth     *redis.CacheHealth      `json:"cacheHealth"`
	CacheStats      *redis.CacheStats       `json:"cacheStats,omitempty"`
	Endpoints       *carrier.EndpointHealth `json:"endpoints,omitempty"`
	Sessions        *redis.SessionStats     `json:"sessions,omitempty"`
	NotifyPlatforms []string                `json:"notifyPlatforms,omitempty"`
}

// QueryService answers usage queries, serving from the cache when it
// can and the carrier when it must.
type QueryService struct {
	cfg       *config.Config
	gateway   carrierGateway
	auth      *AuthService
	cache     *redis.QueryCache
	formatter *format.Formatter
	notifier  *notify.Manager
	recorder  *audit.Recorder
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func NewQueryService(
	cfg *config.Config,
	gateway carrierGateway,
	auth *AuthService,
	cache *redis.QueryCache,
	formatter *format.Formatter,
	notifier *notify.Manager,
	recorder *audit.Recorder,
	m *metrics.Metrics,
	logger *zap.Logger,
) *QueryService {
	return &QueryService{
		cfg:       cfg,
		gateway:   gateway,
		auth:      auth,
		cache:     cache,
		formatter: formatter,
		notifier:  notifier,
		recorder:  recorder,
		metrics:   m,
		logger:    logger,
	}
}

// Query returns the data bundle for phone. forceRefresh skips the
// cache read but still writes the fresh result back.
func (s *QueryService) Query(ctx context.Context, phone string, forceRefresh bool) (*QueryResult, error) {
	start := time.Now()

	if phone == "" {
		phone = s.cfg.DefaultPhoneNumber()
	}
	if !util.ValidPhoneNumber(phone) {
		return nil, ErrInvalidPhone
	}
	if !s.cfg.Whitelisted(phone) {
		return nil, ErrNotWhitelisted
	}

	masked := util.MaskPhoneNumber(phone)

	if !forceRefresh {
		cached, err := s.cache.Get(ctx, phone)
		if err != nil {
			s.logger.Warn("cache read failed, falling through to carrier",
				util.String("phonenum", masked), util.ErrorField(err))
		}
		// An entry without rendered text is degenerate; refetch.
		if cached != nil && cached.FormattedText != "" {
			s.observeQuery("success")
			if s.metrics != nil {
				s.metrics.CacheHits.Inc()
			}
			s.record(ctx, audit.Event{
				Type:      audit.EventQuery,
				Phonenum:  masked,
				Success:   true,
				Cached:    true,
				LatencyMS: time.Since(start).Milliseconds(),
			})
			return &QueryResult{Phonenum: phone, Cached: true, Data: cached}, nil
		}
	}

	if s.metrics != nil {
		s.metrics.CacheMisses.Inc()
	}

	bundle, err := s.fetchBundle(ctx, phone)
	if err != nil {
		s.observeQuery("error")
		s.record(ctx, audit.Event{
			Type:      audit.EventQuery,
			Phonenum:  masked,
			Detail:    err.Error(),
			LatencyMS: time.Since(start).Milliseconds(),
		})
		return nil, err
	}

	entry := &redis.CachedBundle{
		Bundle:        *bundle,
		FormattedText: s.formatter.Basic(bundle),
		EnhancedText:  s.formatter.Enhanced(bundle),
	}

	// A write failure costs a future cache hit, not this response.
	if err := s.cache.Set(ctx, phone, entry); err != nil {
		s.logger.Warn("cache write failed",
			util.String("phonenum", masked), util.ErrorField(err))
	}

	s.observeQuery("success")
	s.record(ctx, audit.Event{
		Type:      audit.EventQuery,
		Phonenum:  masked,
		Success:   true,
		LatencyMS: time.Since(start).Milliseconds(),
	})
	s.logger.Info("query served from carrier",
		util.String("phonenum", masked),
		util.Duration("duration", time.Since(start)))

	return &QueryResult{Phonenum: phone, Cached: false, Data: entry}, nil
}

// fetchBundle pulls everything from the carrier under one session.
// Summary and flux package are mandatory and fetched in parallel; the
// other two payloads are best effort. A session the carrier no longer
// accepts is dropped and retried once with a fresh login.
func (s *QueryService) fetchBundle(ctx context.Context, phone string) (*carrier.Bundle, error) {
	token, err := s.auth.EnsureSession(ctx, phone)
	if err != nil {
		return nil, err
	}

	bundle, err := s.fetchWithToken(ctx, phone, token)
	if err != nil && sessionRejected(err) {
		s.logger.Info("carrier rejected session, re-authenticating",
			util.Phonenum(phone))
		if logoutErr := s.auth.Logout(ctx, phone); logoutErr != nil {
			s.logger.Warn("stale session cleanup failed", util.ErrorField(logoutErr))
		}
		token, err = s.auth.EnsureSession(ctx, phone)
		if err != nil {
			return nil, err
		}
		bundle, err = s.fetchWithToken(ctx, phone, token)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	return bundle, nil
}

func (s *QueryService) fetchWithToken(ctx context.Context, phone, token string) (*carrier.Bundle, error) {
	bundle := &carrier.Bundle{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		start := time.Now()
		summary, err := s.gateway.Summary(gctx, phone, token)
		s.observeUpstream("summary", err, start)
		if err != nil {
			return err
		}
		bundle.Summary = summary
		return nil
	})
	g.Go(func() error {
		start := time.Now()
		pkg, err := s.gateway.FluxPackage(gctx, phone, token)
		s.observeUpstream("flux_package", err, start)
		if err != nil {
			return err
		}
		bundle.FluxPackage = pkg
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Optional payloads: failures only lose detail.
	var optional errgroup.Group
	optional.Go(func() error {
		start := time.Now()
		data, err := s.gateway.ImportantData(ctx, phone, token)
		s.observeUpstream("important_data", err, start)
		if err != nil {
			s.logger.Debug("important data unavailable", util.ErrorField(err))
			return nil
		}
		bundle.ImportantData = data
		return nil
	})
	optional.Go(func() error {
		start := time.Now()
		share, err := s.gateway.ShareUsage(ctx, phone, token)
		s.observeUpstream("share_usage", err, start)
		if err != nil {
			s.logger.Debug("share usage unavailable", util.ErrorField(err))
			return nil
		}
		bundle.ShareUsage = share
		return nil
	})
	_ = optional.Wait()

	return bundle, nil
}

// Notify runs a query and pushes the rendered report.
func (s *QueryService) Notify(ctx context.Context, platform notify.Platform, phone, chatID string, enhanced, markdown bool) ([]notify.SendResult, error) {
	result, err := s.Query(ctx, phone, false)
	if err != nil {
		return nil, err
	}

	message := result.Data.FormattedText
	if enhanced {
		message = result.Data.EnhancedText
	}

	results := s.notifier.Send(ctx, platform, message, chatID, markdown)
	for _, r := range results {
		outcome := "success"
		if !r.Success {
			outcome = "error"
		}
		if s.metrics != nil {
			s.metrics.NotifySends.WithLabelValues(r.Platform, outcome).Inc()
		}
		s.record(ctx, audit.Event{
			Type:     audit.EventNotify,
			Phonenum: util.MaskPhoneNumber(result.Phonenum),
			Success:  r.Success,
			Detail:   r.Platform,
		})
	}
	return results, nil
}

// ClearCache drops every cached bundle.
func (s *QueryService) ClearCache(ctx context.Context) (int, error) {
	count, err := s.cache.Clear(ctx)
	if err != nil {
		return 0, err
	}
	s.record(ctx, audit.Event{
		Type:    audit.EventCacheClear,
		Success: true,
		Detail:  fmt.Sprintf("%d entries", count),
	})
	return count, nil
}

// Status reports cache and carrier health. Endpoint probes need a
// session; without one only the cache side is filled in.
func (s *QueryService) Status(ctx context.Context) *StatusReport {
	report := &StatusReport{
		Service:     "telecom-relay",
		Timestamp:   time.Now().UnixMilli(),
		CacheHealth: s.cache.HealthCheck(ctx),
	}

	if stats, err := s.cache.Stats(ctx); err == nil {
		report.CacheStats = stats
	}
	if stats, err := s.auth.SessionStats(ctx); err == nil {
		report.Sessions = stats
	}
	if s.notifier != nil {
		report.NotifyPlatforms = s.notifier.AvailablePlatforms()
	}

	phone := s.cfg.DefaultPhoneNumber()

	// One-line overview from the cached bundle; status never queries
	// the carrier for data.
	if cached, err := s.cache.Get(ctx, phone); err == nil && cached != nil && cached.Summary != nil {
		report.Summary = s.formatter.StatusSummary(cached.Summary)
	}

	token, err := s.auth.EnsureSession(ctx, phone)
	if err != nil {
		s.logger.Warn("endpoint probe skipped, no session", util.ErrorField(err))
		return report
	}
	report.Endpoints = s.gateway.ProbeEndpoints(ctx, phone, token)
	return report
}

func (s *QueryService) observeUpstream(endpoint string, err error, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveUpstream(endpoint, err, time.Since(start))
	}
}

func (s *QueryService) observeQuery(outcome string) {
	if s.metrics != nil {
		s.metrics.QueriesTotal.WithLabelValues(outcome).Inc()
	}
}

func (s *QueryService) record(ctx context.Context, event audit.Event) {
	if s.recorder != nil {
		s.recorder.Record(ctx, event)
	}
}

// sessionRejected reports whether the carrier refused the token.
func sessionRejected(err error) bool {
	code := carrier.StatusCode(err)
	return code == 401 || code == 403
}
